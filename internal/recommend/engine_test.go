package recommend

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/agenthub/tool-recommender/internal/abtest"
	"github.com/agenthub/tool-recommender/internal/behavior"
	"github.com/agenthub/tool-recommender/internal/insight"
)

// stubRegistry is a counting candidate source for pipeline tests.
type stubRegistry struct {
	mu    sync.Mutex
	tools []string
	err   error
	calls int
}

func (s *stubRegistry) ListAvailableTools(ctx context.Context, usageContext string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.tools...), nil
}

func (s *stubRegistry) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fixedClock is a settable Clock for deterministic cache buckets.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T, reg *stubRegistry, clock Clock) *Engine {
	t.Helper()

	e, err := NewEngine(Config{
		Registry: reg,
		Logger:   zap.NewNop(),
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func baseRequest(message, userID string) Request {
	return Request{
		Message: message,
		Context: insight.UserContext{UserID: userID},
	}
}

func TestGetRecommendations_CombinedIsWeightedSum(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow", "generate_report", "send_email"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)})

	result := e.GetRecommendations(context.Background(), baseRequest("analyze the quarterly data", "u1"))

	if result.Source != SourceComputed {
		t.Fatalf("expected computed result, got %s", result.Source)
	}
	if len(result.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}

	for _, rec := range result.Recommendations {
		if rec.Scores.Combined < 0 || rec.Scores.Combined > 1 {
			t.Errorf("combined score %f out of [0,1] for %s", rec.Scores.Combined, rec.ToolID)
		}
		want := rec.Scores.Collaborative*rec.Weights.Collaborative +
			rec.Scores.ContentBased*rec.Weights.ContentBased +
			rec.Scores.Contextual*rec.Weights.Contextual +
			rec.Scores.Temporal*rec.Weights.Temporal +
			rec.Scores.Behavioral*rec.Weights.Behavioral
		if math.Abs(rec.Scores.Combined-want) > 1e-9 {
			t.Errorf("combined %f does not equal weighted sum %f for %s", rec.Scores.Combined, want, rec.ToolID)
		}
		if math.Abs(rec.Weights.Sum()-1.0) > 0.0001 {
			t.Errorf("weights sum to %f, expected 1.0", rec.Weights.Sum())
		}
		if rec.Confidence != rec.Scores.Combined {
			t.Errorf("confidence %f diverges from combined %f", rec.Confidence, rec.Scores.Combined)
		}
	}
}

func TestGetRecommendations_CacheRoundTrip(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow", "get_user_workflow"}}
	clock := &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, reg, clock)

	req := baseRequest("run my onboarding workflow", "u1")

	first := e.GetRecommendations(context.Background(), req)
	if first.Source != SourceComputed {
		t.Fatalf("expected first call computed, got %s", first.Source)
	}

	clock.advance(30 * time.Second) // same 5-minute bucket
	second := e.GetRecommendations(context.Background(), req)
	if second.Source != SourceCache {
		t.Fatalf("expected second call cached, got %s", second.Source)
	}

	if reg.callCount() != 1 {
		t.Errorf("expected 1 registry call, got %d", reg.callCount())
	}

	if len(first.Recommendations) != len(second.Recommendations) {
		t.Fatalf("cached result length differs: %d vs %d", len(first.Recommendations), len(second.Recommendations))
	}
	for i := range first.Recommendations {
		if first.Recommendations[i] != second.Recommendations[i] {
			t.Errorf("cached recommendation %d differs from computed", i)
		}
	}
}

func TestGetRecommendations_CacheExpiresAcrossBuckets(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	clock := &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, reg, clock)

	req := baseRequest("run my workflow", "u1")

	e.GetRecommendations(context.Background(), req)
	clock.advance(6 * time.Minute) // new bucket
	result := e.GetRecommendations(context.Background(), req)

	if result.Source != SourceComputed {
		t.Errorf("expected recomputation in a new time bucket, got %s", result.Source)
	}
	if reg.callCount() != 2 {
		t.Errorf("expected 2 registry calls, got %d", reg.callCount())
	}
}

func TestGetRecommendations_RegistryFailureFallsBack(t *testing.T) {
	reg := &stubRegistry{err: errors.New("registry unavailable")}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	result := e.GetRecommendations(context.Background(), baseRequest("do something", "u1"))

	if result.Source != SourceFallback {
		t.Errorf("expected fallback source, got %s", result.Source)
	}
	if len(result.Recommendations) != 0 {
		t.Errorf("expected empty fallback list, got %d recommendations", len(result.Recommendations))
	}
}

func TestGetRecommendations_RankingStable(t *testing.T) {
	reg := &stubRegistry{tools: []string{"alpha_tool", "beta_tool", "gamma_tool"}}
	clock := &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, reg, clock)

	req := baseRequest("hello", "fresh-user")

	var firstOrder []string
	for run := 0; run < 5; run++ {
		clock.advance(10 * time.Minute) // force recomputation each run
		result := e.GetRecommendations(context.Background(), req)

		order := make([]string, len(result.Recommendations))
		for i, rec := range result.Recommendations {
			order[i] = rec.ToolID
		}
		if run == 0 {
			firstOrder = order
			continue
		}
		for i := range order {
			if order[i] != firstOrder[i] {
				t.Fatalf("run %d order %v differs from first run %v", run, order, firstOrder)
			}
		}
	}
}

func TestGetRecommendations_BehaviorHistorySeededOnce(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow", "generate_report"}}
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	clock := &fixedClock{t: start}
	e := newTestEngine(t, reg, clock)

	req := baseRequest("run my onboarding workflow", "u1")
	req.BehaviorHistory = []behavior.Event{
		{ToolID: "run_workflow", Type: "feedback", Used: true, Helpful: true, Timestamp: start.Add(-time.Hour)},
	}

	behavioral := func(result Result) float64 {
		t.Helper()
		for _, rec := range result.Recommendations {
			if rec.ToolID == "run_workflow" {
				return rec.Scores.Behavioral
			}
		}
		t.Fatal("run_workflow missing from recommendations")
		return 0
	}

	first := behavioral(e.GetRecommendations(context.Background(), req))
	// 0.5 + 0.3*(1.0-0.5) = 0.65 after the single seeded event.
	if math.Abs(first-0.65) > 0.001 {
		t.Fatalf("expected behavioral score 0.65 after seeding, got %f", first)
	}

	for run := 0; run < 2; run++ {
		clock.advance(10 * time.Minute) // new cache bucket, full recomputation
		got := behavioral(e.GetRecommendations(context.Background(), req))
		if got != first {
			t.Errorf("behavioral score drifted across identical requests: %f then %f", first, got)
		}
	}
}

func TestGetRecommendations_RanksByCombinedDescending(t *testing.T) {
	reg := &stubRegistry{tools: []string{"get_user_workflow", "run_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)})

	result := e.GetRecommendations(context.Background(), baseRequest("analyze my data", "u1"))

	for i := 1; i < len(result.Recommendations); i++ {
		prev := result.Recommendations[i-1].Scores.Combined
		cur := result.Recommendations[i].Scores.Combined
		if cur > prev {
			t.Errorf("recommendation %d (%f) outranks %d (%f)", i, cur, i-1, prev)
		}
	}
}

func TestGetRecommendations_UrgentWorkflowScenario(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow", "get_user_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)})

	req := Request{
		Message: "run my onboarding workflow urgently",
		Context: insight.UserContext{
			UserID: "u1",
			Time:   insight.TimeContext{Urgency: "high"},
		},
	}

	result := e.GetRecommendations(context.Background(), req)

	if len(result.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(result.Recommendations))
	}
	if result.Recommendations[0].ToolID != "run_workflow" {
		t.Errorf("expected run_workflow ranked first for urgent action intent, got %s",
			result.Recommendations[0].ToolID)
	}
}

func TestGetRecommendations_MaxResults(t *testing.T) {
	reg := &stubRegistry{tools: []string{"a", "b", "c", "d", "e", "f", "g"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	result := e.GetRecommendations(context.Background(), baseRequest("hello", "u1"))
	if len(result.Recommendations) != defaultMaxResults {
		t.Errorf("expected default cap of %d, got %d", defaultMaxResults, len(result.Recommendations))
	}

	req := baseRequest("hello again", "u1")
	req.MaxResults = 2
	result = e.GetRecommendations(context.Background(), req)
	if len(result.Recommendations) != 2 {
		t.Errorf("expected 2 results, got %d", len(result.Recommendations))
	}
}

func TestGetRecommendations_CallerWeightsNormalized(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	req := baseRequest("run it", "u1")
	req.Weights = &Weights{Collaborative: 2, ContentBased: 2, Contextual: 2, Temporal: 2, Behavioral: 2}

	result := e.GetRecommendations(context.Background(), req)
	if len(result.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}

	w := result.Recommendations[0].Weights
	if math.Abs(w.Sum()-1.0) > 0.0001 {
		t.Errorf("expected normalized weights, sum is %f", w.Sum())
	}
	if math.Abs(w.Collaborative-0.2) > 0.0001 {
		t.Errorf("expected equal 0.2 weights after normalization, got %f", w.Collaborative)
	}
}

func TestGetRecommendations_VariantWeightsWin(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	err := e.Experiments().RegisterTest(abtest.Test{
		ID:      "collab-heavy",
		Type:    "weights",
		Enabled: true,
		Variants: []abtest.Variant{
			{ID: "treatment", Weights: map[string]float64{
				"collaborative": 0.6,
				"contentBased":  0.1,
				"contextual":    0.1,
				"temporal":      0.1,
				"behavioral":    0.1,
			}},
		},
		TrafficAllocation: map[string]float64{"treatment": 1.0},
	})
	if err != nil {
		t.Fatalf("failed to register test: %v", err)
	}
	e.Experiments().InitializeUserProfile("u1", abtest.ProfileOptions{Consent: true})

	req := baseRequest("run it", "u1")
	req.Weights = &Weights{Collaborative: 1} // variant must take precedence

	result := e.GetRecommendations(context.Background(), req)
	if len(result.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}

	rec := result.Recommendations[0]
	if rec.Variant != "treatment" {
		t.Errorf("expected variant treatment, got %q", rec.Variant)
	}
	if math.Abs(rec.Weights.Collaborative-0.6) > 0.0001 {
		t.Errorf("expected variant collaborative weight 0.6, got %f", rec.Weights.Collaborative)
	}
}

func TestGetRecommendations_DecorationFields(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	result := e.GetRecommendations(context.Background(), baseRequest("run my workflow", "u1"))
	if len(result.Recommendations) == 0 {
		t.Fatal("expected recommendations")
	}

	rec := result.Recommendations[0]
	if rec.WhyRecommended == "" {
		t.Error("expected WhyRecommended to be set")
	}
	if rec.ContextualExplanation == "" {
		t.Error("expected ContextualExplanation to be set")
	}
	if rec.ConfidenceDetails == "" {
		t.Error("expected ConfidenceDetails to be set")
	}
	if rec.Instructions == "" {
		t.Error("expected Instructions to be set")
	}
}

func TestRecordFeedback_PropagatesToCollaborative(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	clock := &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, reg, clock)

	e.RecordFeedback("u1", Feedback{ToolID: "run_workflow", Type: "explicit", Used: true, Helpful: true, Rating: 5})

	score, err := e.collab.ScoreTool(context.Background(), "u1", "run_workflow")
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("expected own rating 1.0 after 5-star feedback, got %f", score)
	}

	if aff := e.behavior.Affinity("u1", "run_workflow"); aff <= 0.5 {
		t.Errorf("expected behavioral affinity above neutral, got %f", aff)
	}
}

func TestExplainRecommendation(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	explanation, err := e.ExplainRecommendation(context.Background(),
		"run_workflow", baseRequest("run my onboarding workflow urgently", "u1"))
	if err != nil {
		t.Fatalf("explain failed: %v", err)
	}

	if explanation.PrimaryIntent != "action" {
		t.Errorf("expected action intent, got %s", explanation.PrimaryIntent)
	}
	if explanation.Scores.Combined <= 0 {
		t.Errorf("expected positive combined score, got %f", explanation.Scores.Combined)
	}
	if explanation.WhyRecommended == "" {
		t.Error("expected a justification")
	}
}

func TestGetAnalytics_Counters(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	clock := &fixedClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, reg, clock)

	req := baseRequest("run it", "u1")
	e.GetRecommendations(context.Background(), req)
	e.GetRecommendations(context.Background(), req) // cache hit

	analytics, err := e.GetAnalytics(clock.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("analytics failed: %v", err)
	}

	if analytics.Engine.Requests != 2 {
		t.Errorf("expected 2 requests, got %d", analytics.Engine.Requests)
	}
	if analytics.Engine.CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", analytics.Engine.CacheHits)
	}
	if math.Abs(analytics.Engine.CacheHitRate-0.5) > 0.0001 {
		t.Errorf("expected hit rate 0.5, got %f", analytics.Engine.CacheHitRate)
	}
}

func TestRegisterAgent_Validation(t *testing.T) {
	reg := &stubRegistry{tools: []string{"run_workflow"}}
	e := newTestEngine(t, reg, &fixedClock{t: time.Now()})

	if err := e.RegisterAgent("", nil, abtest.ProfileOptions{}); err == nil {
		t.Error("expected error for empty agent ID")
	}
	if err := e.RegisterAgent("agent-1", nil, abtest.ProfileOptions{}); err == nil {
		t.Error("expected error for empty tool set")
	}
}

func TestNewEngine_RequiresRegistry(t *testing.T) {
	if _, err := NewEngine(Config{}); err == nil {
		t.Error("expected error when registry is missing")
	}
}
