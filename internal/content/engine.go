/*
Package content implements content-based filtering over per-tool feature
vectors and per-user content profiles.

Feature vectors are created lazily by keyword inference from the tool
identifier and can be overwritten by explicit registration with declared
metadata. Scoring is a weighted similarity between tool features and the
user's content profile, informed by the derived context insights.
*/
package content

import (
	"context"
	"sync"

	"github.com/agenthub/tool-recommender/internal/insight"
)

const (
	// Content score sub-weights. They sum to 1.0.
	categoryWeight   = 0.30
	contextWeight    = 0.25
	complexityWeight = 0.20
	usageWeight      = 0.15
	intentWeight     = 0.10

	// unknownCategoryWeight is the default preference for categories the
	// user has no recorded weight for.
	unknownCategoryWeight = 0.3

	// complexityDecayPerLevel is the score penalty per level of distance
	// between the tool's complexity and the user's preferred complexity.
	complexityDecayPerLevel = 0.3

	// feedbackLearningRate moves category weights toward feedback outcomes.
	feedbackLearningRate = 0.2
)

// FeatureVector describes a tool for content matching.
type FeatureVector struct {
	// Categories the tool belongs to, e.g. "automation", "reporting".
	Categories []string

	// Complexity is "simple", "moderate" or "complex".
	Complexity string

	// Contexts are the workflow stages the tool supports.
	Contexts []string

	// Intents are the intent labels the tool serves.
	Intents []string

	// UsagePatterns are free-form tags like "batch" or "interactive".
	UsagePatterns []string

	// Inferred marks vectors built from identifier keywords rather than
	// declared metadata; registration overwrites these.
	Inferred bool
}

// Profile is a user's learned content preference profile.
type Profile struct {
	// CategoryWeights maps categories to preference in [0,1].
	CategoryWeights map[string]float64

	// PreferredComplexity is the user's preferred complexity level.
	PreferredComplexity string

	// UsagePatterns tags observed for this user.
	UsagePatterns []string
}

// ToolInfo is declared tool metadata supplied by an integration.
type ToolInfo struct {
	Name          string
	Description   string
	Categories    []string
	Complexity    string
	Contexts      []string
	Intents       []string
	UsagePatterns []string
	ParamCount    int
}

// Engine holds tool feature vectors and user content profiles. Safe for
// concurrent use.
type Engine struct {
	mu       sync.RWMutex
	features map[string]FeatureVector
	profiles map[string]Profile
}

// NewEngine creates a content-based filtering engine.
func NewEngine() *Engine {
	return &Engine{
		features: make(map[string]FeatureVector),
		profiles: make(map[string]Profile),
	}
}

// complexityLevels orders complexity labels for distance computation.
var complexityLevels = map[string]int{"simple": 0, "moderate": 1, "complex": 2}

// relatedContexts maps a workflow stage to stages considered related for
// partial context credit.
var relatedContexts = map[string][]string{
	"planning":   {"execution"},
	"execution":  {"planning", "completion"},
	"completion": {"execution"},
}

// compatibleIntents maps an intent to intents that partially serve it.
var compatibleIntents = map[string][]string{
	"action":        {"creation", "communication"},
	"analysis":      {"information"},
	"information":   {"analysis"},
	"decision":      {"analysis", "information"},
	"creation":      {"action"},
	"communication": {"action"},
}

// ScoreTool scores a tool for a user given the derived insights. Scoring
// never fails for unknown tools: features are inferred on first reference
// and retained.
func (e *Engine) ScoreTool(ctx context.Context, toolID, userID string, ins insight.Insights) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	features := e.featuresFor(toolID)

	e.mu.RLock()
	profile, hasProfile := e.profiles[userID]
	e.mu.RUnlock()
	if !hasProfile {
		profile = defaultProfile(ins)
	}

	score := categoryWeight*categoryMatch(features, profile) +
		contextWeight*contextMatch(features, ins.WorkflowStage) +
		complexityWeight*complexityMatch(features, profile, ins) +
		usageWeight*usageOverlap(features, profile) +
		intentWeight*intentCompatibility(features, ins.PrimaryIntent)

	return clamp01(score), nil
}

// RegisterToolSet stores declared metadata for a set of tools, overriding
// any inferred feature vectors, and seeds the user's content profile from
// the declared categories.
func (e *Engine) RegisterToolSet(userID string, tools []ToolInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, ok := e.profiles[userID]
	if !ok {
		profile = Profile{CategoryWeights: make(map[string]float64)}
	}

	for _, tool := range tools {
		fv := FeatureVector{
			Categories:    tool.Categories,
			Complexity:    tool.Complexity,
			Contexts:      tool.Contexts,
			Intents:       tool.Intents,
			UsagePatterns: tool.UsagePatterns,
		}
		if len(fv.Categories) == 0 {
			fv.Categories = inferCategories(tool.Name)
		}
		if fv.Complexity == "" {
			fv.Complexity = inferDeclaredComplexity(tool)
		}
		if len(fv.Contexts) == 0 {
			fv.Contexts = inferContexts(tool.Name)
		}
		if len(fv.Intents) == 0 {
			fv.Intents = inferIntents(tool.Name)
		}
		e.features[tool.Name] = fv

		for _, cat := range fv.Categories {
			if _, seen := profile.CategoryWeights[cat]; !seen {
				profile.CategoryWeights[cat] = unknownCategoryWeight
			}
		}
	}

	e.profiles[userID] = profile
}

// RecordFeedback adjusts the user's category weights toward the outcome of
// an interaction with a tool.
func (e *Engine) RecordFeedback(userID, toolID string, helpful bool) {
	target := 0.0
	if helpful {
		target = 1.0
	}

	features := e.featuresFor(toolID)

	e.mu.Lock()
	defer e.mu.Unlock()

	profile, ok := e.profiles[userID]
	if !ok {
		profile = Profile{CategoryWeights: make(map[string]float64)}
	}
	for _, cat := range features.Categories {
		current, seen := profile.CategoryWeights[cat]
		if !seen {
			current = unknownCategoryWeight
		}
		profile.CategoryWeights[cat] = clamp01(current + feedbackLearningRate*(target-current))
	}
	e.profiles[userID] = profile
}

// featuresFor returns the stored feature vector for a tool, inferring and
// retaining one on first reference.
func (e *Engine) featuresFor(toolID string) FeatureVector {
	e.mu.RLock()
	fv, ok := e.features[toolID]
	e.mu.RUnlock()
	if ok {
		return fv
	}

	fv = inferFeatures(toolID)

	e.mu.Lock()
	// Another goroutine may have inferred or registered in the meantime;
	// registration with declared metadata always wins.
	if existing, exists := e.features[toolID]; exists {
		fv = existing
	} else {
		e.features[toolID] = fv
	}
	e.mu.Unlock()

	return fv
}

// categoryMatch averages the user's preference weight over the tool's
// categories; unknown categories get the default weight.
func categoryMatch(fv FeatureVector, profile Profile) float64 {
	if len(fv.Categories) == 0 {
		return unknownCategoryWeight
	}

	var sum float64
	for _, cat := range fv.Categories {
		if w, ok := profile.CategoryWeights[cat]; ok {
			sum += w
		} else {
			sum += unknownCategoryWeight
		}
	}
	return sum / float64(len(fv.Categories))
}

// contextMatch scores the tool's supported contexts against the derived
// workflow stage: exact 1.0, related 0.6, else 0.2.
func contextMatch(fv FeatureVector, stage string) float64 {
	if stage == "" || len(fv.Contexts) == 0 {
		return 0.2
	}

	for _, c := range fv.Contexts {
		if c == stage {
			return 1.0
		}
	}
	for _, related := range relatedContexts[stage] {
		for _, c := range fv.Contexts {
			if c == related {
				return 0.6
			}
		}
	}
	return 0.2
}

// complexityMatch scores distance between the tool's complexity and the
// user's preference: exact 1.0, otherwise decaying per level.
func complexityMatch(fv FeatureVector, profile Profile, ins insight.Insights) float64 {
	preferred := profile.PreferredComplexity
	if preferred == "" {
		preferred = expertiseComplexity(ins.UserExpertise)
	}

	toolLevel, okTool := complexityLevels[fv.Complexity]
	prefLevel, okPref := complexityLevels[preferred]
	if !okTool || !okPref {
		return 0.5
	}

	dist := toolLevel - prefLevel
	if dist < 0 {
		dist = -dist
	}
	if dist == 0 {
		return 1.0
	}

	score := 1.0 - complexityDecayPerLevel*float64(dist)
	if score < 0.1 {
		score = 0.1
	}
	return score
}

// usageOverlap is a Jaccard-like ratio over usage pattern tags; neutral
// when either side has none.
func usageOverlap(fv FeatureVector, profile Profile) float64 {
	if len(fv.UsagePatterns) == 0 || len(profile.UsagePatterns) == 0 {
		return 0.5
	}

	set := make(map[string]bool, len(fv.UsagePatterns))
	for _, p := range fv.UsagePatterns {
		set[p] = true
	}

	shared := 0
	for _, p := range profile.UsagePatterns {
		if set[p] {
			shared++
		}
	}

	union := len(fv.UsagePatterns) + len(profile.UsagePatterns) - shared
	return float64(shared) / float64(union)
}

// intentCompatibility scores the tool's intents against the primary intent:
// exact 1.0, compatible 0.7, else 0.2.
func intentCompatibility(fv FeatureVector, primary string) float64 {
	if primary == "" || len(fv.Intents) == 0 {
		return 0.2
	}

	for _, in := range fv.Intents {
		if in == primary {
			return 1.0
		}
	}
	for _, compatible := range compatibleIntents[primary] {
		for _, in := range fv.Intents {
			if in == compatible {
				return 0.7
			}
		}
	}
	return 0.2
}

// defaultProfile derives a neutral profile for a user with no history.
func defaultProfile(ins insight.Insights) Profile {
	return Profile{
		CategoryWeights:     map[string]float64{},
		PreferredComplexity: expertiseComplexity(ins.UserExpertise),
	}
}

// expertiseComplexity maps user expertise to a preferred complexity level.
func expertiseComplexity(expertise string) string {
	switch expertise {
	case "beginner":
		return "simple"
	case "advanced":
		return "complex"
	default:
		return "moderate"
	}
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
