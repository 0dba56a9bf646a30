package behavior

import (
	"math"
	"testing"
	"time"
)

func TestAffinity_NeutralWithoutHistory(t *testing.T) {
	a := NewAnalyzer()

	if got := a.Affinity("u1", "tool_a"); got != neutralAffinity {
		t.Errorf("expected neutral affinity %f, got %f", neutralAffinity, got)
	}
}

func TestRecord_PositiveFeedbackRaisesAffinity(t *testing.T) {
	a := NewAnalyzer()

	a.Record("u1", Event{ToolID: "tool_a", Type: "feedback", Used: true, Helpful: true, Timestamp: time.Now()})

	got := a.Affinity("u1", "tool_a")
	// 0.5 + 0.3*(1.0-0.5) = 0.65
	if math.Abs(got-0.65) > 0.001 {
		t.Errorf("expected affinity 0.65 after one positive event, got %f", got)
	}
}

func TestRecord_NegativeFeedbackLowersAffinity(t *testing.T) {
	a := NewAnalyzer()

	a.Record("u1", Event{ToolID: "tool_a", Type: "feedback", Used: false, Helpful: false, Timestamp: time.Now()})

	got := a.Affinity("u1", "tool_a")
	// 0.5 + 0.3*(0.0-0.5) = 0.35
	if math.Abs(got-0.35) > 0.001 {
		t.Errorf("expected affinity 0.35 after one negative event, got %f", got)
	}
}

func TestRecord_RatingDominatesOutcome(t *testing.T) {
	a := NewAnalyzer()

	a.Record("u1", Event{ToolID: "tool_a", Type: "feedback", Helpful: false, Rating: 5, Timestamp: time.Now()})

	got := a.Affinity("u1", "tool_a")
	// Rating 5/5 trains toward 1.0 even with helpful=false.
	if math.Abs(got-0.65) > 0.001 {
		t.Errorf("expected affinity 0.65, got %f", got)
	}
}

func TestRecord_HistoryBounded(t *testing.T) {
	a := NewAnalyzer()

	for i := 0; i < maxEventsPerUser+50; i++ {
		a.Record("u1", Event{ToolID: "tool_a", Type: "invocation", Used: true, Timestamp: time.Now()})
	}

	summary := a.Summarize("u1")
	if summary.EventCount != maxEventsPerUser {
		t.Errorf("expected history capped at %d, got %d", maxEventsPerUser, summary.EventCount)
	}
}

func TestLastUsed_OnlyForUsedEvents(t *testing.T) {
	a := NewAnalyzer()
	now := time.Now()

	a.Record("u1", Event{ToolID: "shown_only", Type: "feedback", Used: false, Timestamp: now})
	a.Record("u1", Event{ToolID: "invoked", Type: "invocation", Used: true, Timestamp: now})

	if _, ok := a.LastUsed("u1", "shown_only"); ok {
		t.Error("expected no last-used timestamp for unused tool")
	}
	if at, ok := a.LastUsed("u1", "invoked"); !ok || !at.Equal(now) {
		t.Errorf("expected last-used %v, got %v (ok=%v)", now, at, ok)
	}
}

func TestRecencyWeight_HalfLife(t *testing.T) {
	now := time.Now()

	fresh := RecencyWeight(now, now)
	if fresh != 1.0 {
		t.Errorf("expected weight 1.0 immediately after use, got %f", fresh)
	}

	halfLife := RecencyWeight(now.Add(-24*time.Hour), now)
	if math.Abs(halfLife-0.5) > 0.01 {
		t.Errorf("expected weight ~0.5 after one half-life, got %f", halfLife)
	}
}

func TestSummarize(t *testing.T) {
	a := NewAnalyzer()
	now := time.Now()

	a.Record("u1", Event{ToolID: "a", Type: "feedback", Used: true, Helpful: true, Timestamp: now})
	a.Record("u1", Event{ToolID: "b", Type: "feedback", Used: true, Helpful: false, Timestamp: now})

	summary := a.Summarize("u1")

	if summary.EventCount != 2 {
		t.Errorf("expected 2 events, got %d", summary.EventCount)
	}
	if summary.ToolsUsed != 2 {
		t.Errorf("expected 2 tools used, got %d", summary.ToolsUsed)
	}
	if math.Abs(summary.SuccessRate-0.5) > 0.001 {
		t.Errorf("expected success rate 0.5, got %f", summary.SuccessRate)
	}
}

func TestSeed_ReplaysHistory(t *testing.T) {
	a := NewAnalyzer()

	a.Seed("u1", []Event{
		{ToolID: "tool_a", Type: "feedback", Helpful: true, Timestamp: time.Now()},
		{ToolID: "tool_a", Type: "feedback", Helpful: true, Timestamp: time.Now()},
	})

	if got := a.Affinity("u1", "tool_a"); got <= neutralAffinity {
		t.Errorf("expected affinity above neutral after seeding, got %f", got)
	}
}

func TestSeed_IgnoresReplays(t *testing.T) {
	a := NewAnalyzer()
	history := []Event{
		{ToolID: "tool_a", Type: "feedback", Used: true, Helpful: true, Timestamp: time.Now()},
	}

	a.Seed("u1", history)
	first := a.Affinity("u1", "tool_a")
	// 0.5 + 0.3*(1.0-0.5) = 0.65
	if math.Abs(first-0.65) > 0.001 {
		t.Errorf("expected affinity 0.65 after seeding, got %f", first)
	}

	a.Seed("u1", history)
	a.Seed("u1", history)

	if got := a.Affinity("u1", "tool_a"); got != first {
		t.Errorf("expected affinity unchanged by repeated seeds, got %f after %f", got, first)
	}

	// Direct observations still train the average.
	a.Record("u1", Event{ToolID: "tool_a", Type: "feedback", Used: true, Helpful: true, Timestamp: time.Now()})
	if got := a.Affinity("u1", "tool_a"); got <= first {
		t.Errorf("expected affinity above %f after recorded feedback, got %f", first, got)
	}
}
