/*
Package insight implements context analysis for tool recommendation.

It turns a raw user message, conversation history, declared workflow state
and environment context into a normalized Insights record (intent, workflow
stage, urgency, stability, confidence) and scores how well a tool fits the
derived context. All matching is deterministic lexical/heuristic analysis,
no embeddings or trained models.
*/
package insight

import "time"

// Message is a single turn of conversation history.
type Message struct {
	// Role is the speaker ("user" or "assistant").
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Timestamp is when the message was sent.
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowState describes the caller's declared position in a workflow.
type WorkflowState struct {
	// WorkflowID identifies the workflow instance.
	WorkflowID string `json:"workflowId"`

	// CompletedSteps lists steps already finished.
	CompletedSteps []string `json:"completedSteps,omitempty"`

	// PendingActions lists steps still waiting to run.
	PendingActions []string `json:"pendingActions,omitempty"`
}

// TimeContext carries time-related environment hints.
type TimeContext struct {
	// Urgency is the declared urgency: "low", "medium", "high" or "critical".
	Urgency string `json:"urgency,omitempty"`

	// TimeOfDay is "morning", "afternoon", "evening" or "night".
	TimeOfDay string `json:"timeOfDay,omitempty"`

	// WorkingHours indicates the request arrived during business hours.
	WorkingHours bool `json:"workingHours,omitempty"`
}

// DeviceContext carries device-related environment hints.
type DeviceContext struct {
	// Type is "desktop", "mobile" or "tablet".
	Type string `json:"type,omitempty"`
}

// BusinessContext carries organizational environment hints.
type BusinessContext struct {
	// Department is the user's declared department, if any.
	Department string `json:"department,omitempty"`

	// CollaborationLevel is "solo" or "team".
	CollaborationLevel string `json:"collaborationLevel,omitempty"`
}

// UserContext is the structured per-request context supplied by the caller.
type UserContext struct {
	// UserID identifies the requesting user.
	UserID string `json:"userId"`

	// SkillLevel is the declared expertise ("beginner", "intermediate",
	// "advanced"); empty means unknown and expertise is inferred from
	// conversation history instead.
	SkillLevel string `json:"skillLevel,omitempty"`

	// Preferences maps tool categories to preference weights in [0,1].
	Preferences map[string]float64 `json:"preferences,omitempty"`

	// Time holds time-of-day and urgency hints.
	Time TimeContext `json:"timeContext,omitempty"`

	// Device holds device hints.
	Device DeviceContext `json:"deviceContext,omitempty"`

	// Business holds organizational hints.
	Business BusinessContext `json:"businessContext,omitempty"`
}

// Insights is the derived, normalized interpretation of a request.
// It is computed fresh per request and never persisted.
type Insights struct {
	// PrimaryIntent is the detected intent label: "action", "analysis",
	// "information", "decision", "creation" or "communication".
	PrimaryIntent string `json:"primaryIntent"`

	// WorkflowStage is "planning", "execution" or "completion".
	WorkflowStage string `json:"workflowStage"`

	// IntentConfidence is the confidence in PrimaryIntent, clamped to [0,1].
	IntentConfidence float64 `json:"intentConfidence"`

	// EnvironmentFactors are tags derived from the environment context,
	// e.g. "urgency:high", "device:mobile", "working-hours".
	EnvironmentFactors []string `json:"environmentFactors,omitempty"`

	// ContextStability estimates how settled the conversation and workflow
	// are, clamped to [0,1].
	ContextStability float64 `json:"contextStability"`

	// Urgency is the effective urgency after merging message keywords with
	// the declared time context.
	Urgency string `json:"urgency"`

	// UserExpertise is "beginner", "intermediate" or "advanced".
	UserExpertise string `json:"userExpertise"`

	// MessageComplexity is "simple", "moderate" or "complex".
	MessageComplexity string `json:"messageComplexity"`

	// ConversationDepth is the number of history messages.
	ConversationDepth int `json:"conversationDepth"`

	// ConversationPattern buckets the history length: "short", "medium"
	// or "extended".
	ConversationPattern string `json:"conversationPattern"`

	// ContextSwitches estimates how often the conversation changed topic.
	ContextSwitches int `json:"contextSwitches"`

	// Confidence is the overall confidence in this record, clamped to [0,1].
	Confidence float64 `json:"confidence"`
}

// clamp01 clamps v to the [0,1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
