package insight

import "strings"

const (
	// Contextual fit sub-score weights. They sum to 1.0.
	stageWeight       = 0.30
	intentWeight      = 0.25
	environmentWeight = 0.20
	urgencyWeight     = 0.15
	stabilityWeight   = 0.10
)

// stageKeywords maps workflow stages to tool-identifier keywords that
// suggest a tool belongs to that stage.
var stageKeywords = map[string][]string{
	"planning":   {"plan", "design", "get", "list", "search", "find", "analyze", "review", "estimate", "suggest"},
	"execution":  {"run", "execute", "start", "launch", "trigger", "apply", "update", "create", "deploy", "perform", "send"},
	"completion": {"finish", "complete", "close", "report", "summary", "archive", "export", "verify"},
}

// intentKeywords maps intent labels to tool-identifier keywords.
var intentKeywords = map[string][]string{
	"action":        {"run", "execute", "start", "trigger", "apply", "update", "delete", "deploy", "stop"},
	"analysis":      {"analyze", "report", "metric", "audit", "compare", "evaluate", "stats"},
	"information":   {"get", "list", "search", "find", "fetch", "read", "show", "lookup", "status"},
	"decision":      {"recommend", "suggest", "rank", "score", "choose", "compare"},
	"creation":      {"create", "new", "add", "generate", "build", "write", "draft"},
	"communication": {"send", "notify", "email", "message", "share", "post", "publish"},
}

// quickExecutionKeywords mark tools suited to urgent requests: tools that
// act immediately rather than gather or prepare.
var quickExecutionKeywords = []string{"run", "execute", "trigger", "apply", "now", "quick", "restart", "cancel"}

// ScoreContextualFit scores how well a tool fits the derived context.
// It is a weighted sum of workflow-stage match (30%), intent match (25%),
// environment-factor match (20%), urgency match (15%) and raw stability
// (10%), each sub-score a keyword-containment check against the tool
// identifier. The result is clamped to [0,1].
func (e *Engine) ScoreContextualFit(toolID string, ins Insights) float64 {
	id := strings.ToLower(toolID)

	score := stageWeight*keywordMatch(id, stageKeywords[ins.WorkflowStage]) +
		intentWeight*keywordMatch(id, intentKeywords[ins.PrimaryIntent]) +
		environmentWeight*environmentMatch(id, ins.EnvironmentFactors) +
		urgencyWeight*urgencyMatch(id, ins.Urgency) +
		stabilityWeight*ins.ContextStability

	return clamp01(score)
}

// keywordMatch returns 1.0 if the tool identifier contains any of the
// keywords, else 0.
func keywordMatch(toolID string, keywords []string) float64 {
	for _, kw := range keywords {
		if strings.Contains(toolID, kw) {
			return 1.0
		}
	}
	return 0.0
}

// environmentMatch grades the overlap between environment factor tags and
// the tool identifier. With no factors the sub-score is neutral.
func environmentMatch(toolID string, factors []string) float64 {
	if len(factors) == 0 {
		return 0.5
	}

	matched := 0
	for _, factor := range factors {
		// Tags look like "device:mobile"; match on the value part.
		value := factor
		if idx := strings.IndexByte(factor, ':'); idx >= 0 {
			value = factor[idx+1:]
		}
		if strings.Contains(toolID, value) {
			matched++
		}
	}

	// Partial credit, with a neutral floor so unmatched factors do not
	// zero out tools that simply never encode environment hints.
	return 0.5 + 0.5*float64(matched)/float64(len(factors))
}

// urgencyMatch rewards quick-execution tools under high urgency and is
// neutral otherwise.
func urgencyMatch(toolID, urgency string) float64 {
	if urgency != "high" && urgency != "critical" {
		return 0.5
	}
	if keywordMatch(toolID, quickExecutionKeywords) > 0 {
		return 1.0
	}
	return 0.2
}
