/*
Package recommend implements the contextual recommendation orchestrator.

Per request it resolves effective algorithm weights (experiment variant
over caller override over defaults), runs context and behavior analysis,
scores every candidate tool under five independent algorithms, combines
the sub-scores into one weighted confidence, ranks, decorates the top
results with explanations, and caches the outcome in a time-bucketed TTL
cache. The request path fails soft: any internal failure degrades to an
empty fallback result, never an error.
*/
package recommend

import (
	"time"

	"github.com/agenthub/tool-recommender/internal/behavior"
	"github.com/agenthub/tool-recommender/internal/insight"
)

// Result sources, so callers can distinguish a fresh computation from a
// cache hit or a degraded pipeline.
const (
	SourceComputed = "computed"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Request is one recommendation call. Immutable per call.
type Request struct {
	// Message is the user's current free-text message.
	Message string `json:"message"`

	// History is the ordered conversation history.
	History []insight.Message `json:"history,omitempty"`

	// Context is the structured per-request user context.
	Context insight.UserContext `json:"context"`

	// Workflow is the caller's declared workflow state, if any.
	Workflow *insight.WorkflowState `json:"workflow,omitempty"`

	// BehaviorHistory is optional caller-supplied usage history, seeded
	// into the behavior analyzer before scoring. A user is seeded once;
	// repeated requests do not retrain the affinity averages.
	BehaviorHistory []behavior.Event `json:"behaviorHistory,omitempty"`

	// Weights overrides the default algorithm weights. Overrides are
	// re-normalized before use. Experiment variants take precedence.
	Weights *Weights `json:"weights,omitempty"`

	// UsageContext optionally narrows the candidate universe via the
	// registry's full-text index.
	UsageContext string `json:"usageContext,omitempty"`

	// MaxResults caps the returned list. Zero means the engine default.
	MaxResults int `json:"maxResults,omitempty"`
}

// Weights is the algorithm weight vector used to combine sub-scores.
type Weights struct {
	Collaborative float64 `json:"collaborative"`
	ContentBased  float64 `json:"contentBased"`
	Contextual    float64 `json:"contextual"`
	Temporal      float64 `json:"temporal"`
	Behavioral    float64 `json:"behavioral"`
}

// DefaultWeights returns the engine's default weight vector.
func DefaultWeights() Weights {
	return Weights{
		Collaborative: 0.3,
		ContentBased:  0.25,
		Contextual:    0.25,
		Temporal:      0.1,
		Behavioral:    0.1,
	}
}

// Sum returns the total of all five weights.
func (w Weights) Sum() float64 {
	return w.Collaborative + w.ContentBased + w.Contextual + w.Temporal + w.Behavioral
}

// Normalized scales the weights so they sum to 1.0. A zero or negative
// vector falls back to the defaults.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Collaborative: w.Collaborative / sum,
		ContentBased:  w.ContentBased / sum,
		Contextual:    w.Contextual / sum,
		Temporal:      w.Temporal / sum,
		Behavioral:    w.Behavioral / sum,
	}
}

// weightsFromMap converts a variant's named weight map into a vector.
// Returns false when the map names none of the five algorithms.
func weightsFromMap(m map[string]float64) (Weights, bool) {
	if len(m) == 0 {
		return Weights{}, false
	}
	w := Weights{
		Collaborative: m["collaborative"],
		ContentBased:  m["contentBased"],
		Contextual:    m["contextual"],
		Temporal:      m["temporal"],
		Behavioral:    m["behavioral"],
	}
	if w.Sum() <= 0 {
		return Weights{}, false
	}
	return w, true
}

// AlgorithmScores holds the five sub-scores and their weighted
// combination for one tool. All values are in [0,1].
type AlgorithmScores struct {
	Collaborative float64 `json:"collaborative"`
	ContentBased  float64 `json:"contentBased"`
	Contextual    float64 `json:"contextual"`
	Temporal      float64 `json:"temporal"`
	Behavioral    float64 `json:"behavioral"`
	Combined      float64 `json:"combined"`
}

// Recommendation is one ranked, decorated tool suggestion. Constructed
// fresh per request (or served verbatim from cache), never mutated after.
type Recommendation struct {
	// ToolID is the recommended tool.
	ToolID string `json:"toolId"`

	// Confidence equals Scores.Combined.
	Confidence float64 `json:"confidence"`

	// Scores are the per-algorithm sub-scores behind the confidence.
	Scores AlgorithmScores `json:"scores"`

	// Weights are the weights actually used, recoverable for auditing.
	Weights Weights `json:"weights"`

	// WhyRecommended names the dominant signal behind the ranking.
	WhyRecommended string `json:"whyRecommended"`

	// ContextualExplanation relates the tool to the derived context.
	ContextualExplanation string `json:"contextualExplanation"`

	// ConfidenceDetails summarizes the score composition.
	ConfidenceDetails string `json:"confidenceDetails"`

	// Instructions adapt usage guidance to the user's expertise.
	Instructions string `json:"instructions,omitempty"`

	// AdaptiveComplexity is the complexity level pitched to the user.
	AdaptiveComplexity string `json:"adaptiveComplexity,omitempty"`

	// InteractionGuidance adapts pacing to the derived urgency.
	InteractionGuidance string `json:"interactionGuidance,omitempty"`

	// Variant is the A/B variant active for this request, if any.
	Variant string `json:"variant,omitempty"`

	// FeedbackPrompt asks the user for feedback on this suggestion. Set
	// on at most one recommendation per request, chosen by the explorer.
	FeedbackPrompt string `json:"feedbackPrompt,omitempty"`
}

// Result is the outcome of one recommendation call.
type Result struct {
	// RequestID uniquely identifies this call for journaling.
	RequestID string `json:"requestId"`

	// Recommendations are ranked by descending confidence.
	Recommendations []Recommendation `json:"recommendations"`

	// Source is "computed", "cache" or "fallback".
	Source string `json:"source"`

	// GeneratedAt is when the result was first computed.
	GeneratedAt time.Time `json:"generatedAt"`
}

// Feedback is post-interaction feedback on a recommended tool.
type Feedback struct {
	// ToolID is the tool the feedback concerns.
	ToolID string `json:"toolId"`

	// Type is the feedback type, e.g. "explicit" or "implicit".
	Type string `json:"type"`

	// Used indicates the tool was actually invoked.
	Used bool `json:"used"`

	// Helpful indicates the recommendation was judged helpful.
	Helpful bool `json:"helpful"`

	// Rating is an optional 1-5 rating, 0 if absent.
	Rating int `json:"rating,omitempty"`
}

// Explanation is an on-demand breakdown of why a tool was (or would be)
// recommended for a request.
type Explanation struct {
	ToolID         string          `json:"toolId"`
	Scores         AlgorithmScores `json:"scores"`
	Weights        Weights         `json:"weights"`
	PrimaryIntent  string          `json:"primaryIntent"`
	WorkflowStage  string          `json:"workflowStage"`
	Urgency        string          `json:"urgency"`
	WhyRecommended string          `json:"whyRecommended"`
	Details        string          `json:"details"`
}
