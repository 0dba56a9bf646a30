package recommend

import (
	"fmt"

	"github.com/agenthub/tool-recommender/internal/insight"
)

// dominantSignal names the sub-score contributing most to the combined
// score, weighted by the effective weights.
func dominantSignal(scores AlgorithmScores, w Weights) string {
	best := "contextual"
	bestContribution := scores.Contextual * w.Contextual

	if c := scores.Collaborative * w.Collaborative; c > bestContribution {
		best, bestContribution = "collaborative", c
	}
	if c := scores.ContentBased * w.ContentBased; c > bestContribution {
		best, bestContribution = "content", c
	}
	if c := scores.Temporal * w.Temporal; c > bestContribution {
		best, bestContribution = "temporal", c
	}
	if c := scores.Behavioral * w.Behavioral; c > bestContribution {
		best = "behavioral"
	}
	return best
}

// whyRecommended renders the human-readable justification for the
// dominant signal.
func whyRecommended(toolID string, scores AlgorithmScores, w Weights) string {
	switch dominantSignal(scores, w) {
	case "collaborative":
		return fmt.Sprintf("Users with similar tool preferences rate %s highly", toolID)
	case "content":
		return fmt.Sprintf("%s matches your preferred tool categories and complexity", toolID)
	case "temporal":
		return fmt.Sprintf("Now is a good moment to use %s based on your usage timing", toolID)
	case "behavioral":
		return fmt.Sprintf("Your recent usage patterns favor %s", toolID)
	default:
		return fmt.Sprintf("%s fits your current intent and workflow stage", toolID)
	}
}

// contextualExplanation relates the tool to the derived insights.
func contextualExplanation(toolID string, ins insight.Insights) string {
	explanation := fmt.Sprintf("Suggested for %s intent during the %s stage", ins.PrimaryIntent, ins.WorkflowStage)
	if ins.Urgency == "high" || ins.Urgency == "critical" {
		explanation += fmt.Sprintf(" with %s urgency", ins.Urgency)
	}
	return explanation
}

// confidenceDetails summarizes the score composition for auditing.
func confidenceDetails(scores AlgorithmScores) string {
	return fmt.Sprintf(
		"combined %.2f (collaborative %.2f, content %.2f, contextual %.2f, temporal %.2f, behavioral %.2f)",
		scores.Combined,
		scores.Collaborative,
		scores.ContentBased,
		scores.Contextual,
		scores.Temporal,
		scores.Behavioral,
	)
}

// instructionsFor adapts usage guidance to the user's expertise.
func instructionsFor(toolID string, ins insight.Insights) string {
	switch ins.UserExpertise {
	case "beginner":
		return fmt.Sprintf("Start %s with the default options and follow the prompts step by step", toolID)
	case "advanced":
		return fmt.Sprintf("Invoke %s directly; all parameters are available", toolID)
	default:
		return fmt.Sprintf("Use %s with your usual settings; adjust parameters as needed", toolID)
	}
}

// adaptiveComplexity pitches the interaction complexity to the user.
func adaptiveComplexity(ins insight.Insights) string {
	switch ins.UserExpertise {
	case "beginner":
		return "simple"
	case "advanced":
		return "complex"
	default:
		return "moderate"
	}
}

// interactionGuidance adapts pacing to the derived urgency.
func interactionGuidance(ins insight.Insights) string {
	switch ins.Urgency {
	case "critical", "high":
		return "Act immediately; skip optional confirmation steps"
	case "low":
		return "No rush; review the options before proceeding"
	default:
		return "Proceed at a normal pace"
	}
}
