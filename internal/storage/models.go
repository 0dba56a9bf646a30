package storage

import "time"

// RecommendationEvent records one tool that was served in a ranked result.
type RecommendationEvent struct {
	// RequestID correlates all tools served for one request.
	RequestID string `json:"request_id"`

	// UserID is the requesting user.
	UserID string `json:"user_id"`

	// ToolID is the recommended tool.
	ToolID string `json:"tool_id"`

	// Rank is the position in the returned list, starting at 1.
	Rank int `json:"rank"`

	// CombinedScore is the weighted combined score at serve time.
	CombinedScore float64 `json:"combined_score"`

	// Variant is the A/B variant in effect, if any.
	Variant string `json:"variant,omitempty"`

	// ContextHash is the SHA256 hash of the request message for privacy.
	ContextHash string `json:"context_hash"`

	// Timestamp is when the recommendation was served.
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackEvent records post-interaction feedback for a recommended tool.
type FeedbackEvent struct {
	// FeedbackID uniquely identifies this feedback record.
	FeedbackID string `json:"feedback_id"`

	// UserID is the user giving feedback.
	UserID string `json:"user_id"`

	// ToolID is the tool the feedback is about.
	ToolID string `json:"tool_id"`

	// Type is the feedback type, e.g. "explicit" or "implicit".
	Type string `json:"type"`

	// Used indicates the tool was actually invoked.
	Used bool `json:"used"`

	// Helpful indicates the interaction was judged helpful.
	Helpful bool `json:"helpful"`

	// Rating is a 1-5 rating, or 0 if not rated.
	Rating int `json:"rating"`

	// Timestamp is when the feedback arrived.
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot aggregates journal contents for the analytics surface.
// It contains counts and rates, never raw events.
type Snapshot struct {
	// RecommendationsServed is the number of recommendation events.
	RecommendationsServed int `json:"recommendationsServed"`

	// FeedbackCount is the number of feedback events.
	FeedbackCount int `json:"feedbackCount"`

	// UsageRate is the share of feedback events where the tool was used.
	UsageRate float64 `json:"usageRate"`

	// HelpfulRate is the share of feedback events judged helpful.
	HelpfulRate float64 `json:"helpfulRate"`

	// AverageRating is the mean of nonzero ratings, normalized to [0,1].
	AverageRating float64 `json:"averageRating"`

	// TopTools lists the most recommended tools with counts, best first.
	TopTools []ToolCount `json:"topTools,omitempty"`
}

// ToolCount pairs a tool with how often it was recommended.
type ToolCount struct {
	ToolID string `json:"toolId"`
	Count  int    `json:"count"`
}
