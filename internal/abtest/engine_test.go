package abtest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func weightTest(id string) Test {
	return Test{
		ID:      id,
		Type:    "weights",
		Enabled: true,
		Variants: []Variant{
			{ID: "control"},
			{ID: "collab_heavy", Weights: map[string]float64{"collaborative": 0.5}},
		},
		TrafficAllocation: map[string]float64{"control": 0.5, "collab_heavy": 0.5},
	}
}

func TestRegisterTest_RejectsBadAllocationSum(t *testing.T) {
	e := NewEngine(zap.NewNop())

	err := e.RegisterTest(Test{
		ID:      "bad-sum",
		Type:    "weights",
		Enabled: true,
		Variants: []Variant{
			{ID: "a"},
			{ID: "b"},
		},
		TrafficAllocation: map[string]float64{"a": 0.5, "b": 0.4},
	})
	if err == nil {
		t.Fatal("expected error for allocations summing to 0.9")
	}
}

func TestRegisterTest_RejectsMissingAllocation(t *testing.T) {
	e := NewEngine(zap.NewNop())

	err := e.RegisterTest(Test{
		ID:      "missing-alloc",
		Type:    "weights",
		Enabled: true,
		Variants: []Variant{
			{ID: "a"},
			{ID: "b"},
		},
		TrafficAllocation: map[string]float64{"a": 1.0},
	})
	if err == nil {
		t.Fatal("expected error for variant without allocation")
	}
}

func TestRegisterTest_AcceptsToleratedDrift(t *testing.T) {
	e := NewEngine(zap.NewNop())

	err := e.RegisterTest(Test{
		ID:      "drift",
		Type:    "weights",
		Enabled: true,
		Variants: []Variant{
			{ID: "a"},
			{ID: "b"},
			{ID: "c"},
		},
		TrafficAllocation: map[string]float64{"a": 0.3333, "b": 0.3333, "c": 0.3334},
	})
	if err != nil {
		t.Errorf("expected allocations within tolerance to register, got %v", err)
	}
}

func TestBucketValue_KnownValues(t *testing.T) {
	// h = 'a' = 97 for a single-byte input.
	want := float64(97) / float64(1<<32)
	if got := bucketValue("a", ""); got != want {
		t.Errorf("expected bucket %v for 'a', got %v", want, got)
	}

	// h = 'a'*31 + 'b' = 3105.
	want = float64(3105) / float64(1<<32)
	if got := bucketValue("a", "b"); got != want {
		t.Errorf("expected bucket %v for 'a'+'b', got %v", want, got)
	}
}

func TestBucketValue_StableAndBounded(t *testing.T) {
	users := []string{"u1", "u2", "alice", "bob", "", "user-with-long-identifier"}
	for _, u := range users {
		first := bucketValue(u, "exp-1")
		second := bucketValue(u, "exp-1")
		if first != second {
			t.Errorf("bucket for %q not stable: %v vs %v", u, first, second)
		}
		if first < 0 || first >= 1 {
			t.Errorf("bucket for %q out of [0,1): %v", u, first)
		}
	}
}

func TestAssignment_DeterministicAcrossEngines(t *testing.T) {
	users := []string{"u1", "u2", "u3", "alice", "bob", "carol"}

	first := make(map[string]string)
	for _, u := range users {
		e := NewEngine(zap.NewNop())
		if err := e.RegisterTest(weightTest("exp-1")); err != nil {
			t.Fatalf("failed to register test: %v", err)
		}
		e.InitializeUserProfile(u, ProfileOptions{Consent: true})
		v, ok := e.GetVariant(u)
		if !ok {
			t.Fatalf("expected assignment for %q", u)
		}
		first[u] = v.ID
	}

	// A fresh engine with the same configuration must bucket every user
	// identically.
	e := NewEngine(zap.NewNop())
	if err := e.RegisterTest(weightTest("exp-1")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}
	for _, u := range users {
		e.InitializeUserProfile(u, ProfileOptions{Consent: true})
		v, ok := e.GetVariant(u)
		if !ok || v.ID != first[u] {
			t.Errorf("user %q bucketed into %q, expected %q", u, v.ID, first[u])
		}
	}
}

func TestInitializeUserProfile_RequiresConsent(t *testing.T) {
	e := NewEngine(zap.NewNop())
	if err := e.RegisterTest(weightTest("exp-1")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}

	e.InitializeUserProfile("u1", ProfileOptions{Consent: false})

	if _, ok := e.GetVariant("u1"); ok {
		t.Error("expected no assignment without consent")
	}
}

func TestInitializeUserProfile_ExcludedType(t *testing.T) {
	e := NewEngine(zap.NewNop())
	if err := e.RegisterTest(weightTest("exp-1")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}

	e.InitializeUserProfile("u1", ProfileOptions{
		Consent:       true,
		ExcludedTypes: []string{"weights"},
	})

	if _, ok := e.GetVariant("u1"); ok {
		t.Error("expected no assignment for excluded test type")
	}
}

func TestInitializeUserProfile_PreferredTypes(t *testing.T) {
	e := NewEngine(zap.NewNop())
	if err := e.RegisterTest(weightTest("exp-1")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}

	e.InitializeUserProfile("u1", ProfileOptions{
		Consent:        true,
		PreferredTypes: []string{"explanation"},
	})
	if _, ok := e.GetVariant("u1"); ok {
		t.Error("expected no assignment when test type is not preferred")
	}

	e.InitializeUserProfile("u2", ProfileOptions{
		Consent:        true,
		PreferredTypes: []string{"weights"},
	})
	if _, ok := e.GetVariant("u2"); !ok {
		t.Error("expected assignment when test type is preferred")
	}
}

func TestCompleteTest_CooldownBlocksReassignment(t *testing.T) {
	e := NewEngine(zap.NewNop())
	if err := e.RegisterTest(weightTest("exp-1")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return now })

	e.InitializeUserProfile("u1", ProfileOptions{Consent: true})
	e.CompleteTest("u1", "exp-1")

	if _, ok := e.GetVariant("u1"); ok {
		t.Error("expected no active variant after completion")
	}

	// Within the 30-day cooldown: still ineligible.
	now = now.Add(10 * 24 * time.Hour)
	e.InitializeUserProfile("u1", ProfileOptions{Consent: true})
	if _, ok := e.GetVariant("u1"); ok {
		t.Error("expected no re-assignment within cooldown")
	}

	// After the cooldown the user can be re-assigned.
	now = now.Add(25 * 24 * time.Hour)
	e.InitializeUserProfile("u1", ProfileOptions{Consent: true})
	if _, ok := e.GetVariant("u1"); !ok {
		t.Error("expected re-assignment after cooldown")
	}
}

func TestAssignVariant_CumulativeWalk(t *testing.T) {
	test := Test{
		ID:      "walk",
		Type:    "weights",
		Enabled: true,
		Variants: []Variant{
			{ID: "first"},
			{ID: "second"},
		},
		TrafficAllocation: map[string]float64{"first": 1.0, "second": 0.0},
	}

	// With all traffic on the first variant, everyone lands there.
	for _, u := range []string{"u1", "u2", "u3"} {
		if v := assignVariant(u, test); v.ID != "first" {
			t.Errorf("user %q assigned to %q, expected first", u, v.ID)
		}
	}
}

func TestAssignVariant_AllocationSplit(t *testing.T) {
	test := weightTest("split")

	seen := make(map[string]int)
	users := []string{"u1", "u2", "u3", "u4", "alice", "bob", "carol", "dave", "erin", "frank"}
	for _, u := range users {
		v := assignVariant(u, test)
		seen[v.ID]++
	}

	total := 0
	for _, n := range seen {
		total += n
	}
	if total != len(users) {
		t.Errorf("expected %d assignments, got %d", len(users), total)
	}
}

func TestVariantFor_SpecificTest(t *testing.T) {
	e := NewEngine(zap.NewNop())
	if err := e.RegisterTest(weightTest("exp-1")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}
	if err := e.RegisterTest(weightTest("exp-2")); err != nil {
		t.Fatalf("failed to register test: %v", err)
	}

	e.InitializeUserProfile("u1", ProfileOptions{Consent: true})

	if _, ok := e.VariantFor("u1", "exp-2"); !ok {
		t.Error("expected assignment for exp-2")
	}
	if _, ok := e.VariantFor("u1", "no-such-test"); ok {
		t.Error("expected no assignment for unknown test")
	}
}

func TestLoadExperiments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiments.yaml")

	content := `tests:
  - id: weight-tuning
    type: weights
    enabled: true
    variants:
      - id: control
      - id: collab_heavy
        weights:
          collaborative: 0.5
          contentBased: 0.2
          contextual: 0.2
          temporal: 0.05
          behavioral: 0.05
    trafficAllocation:
      control: 0.5
      collab_heavy: 0.5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write experiments file: %v", err)
	}

	e := NewEngine(zap.NewNop())
	if err := e.LoadExperiments(path); err != nil {
		t.Fatalf("failed to load experiments: %v", err)
	}

	tests := e.ActiveTests()
	if len(tests) != 1 {
		t.Fatalf("expected 1 active test, got %d", len(tests))
	}
	if tests[0].ID != "weight-tuning" {
		t.Errorf("expected test weight-tuning, got %s", tests[0].ID)
	}

	v, ok := findVariant(tests[0], "collab_heavy")
	if !ok {
		t.Fatal("expected variant collab_heavy")
	}
	if math.Abs(v.Weights["collaborative"]-0.5) > 0.0001 {
		t.Errorf("expected collaborative weight 0.5, got %f", v.Weights["collaborative"])
	}
}

func TestLoadExperiments_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "experiments.yaml")

	content := `tests:
  - id: bad
    type: weights
    enabled: true
    variants:
      - id: a
      - id: b
    trafficAllocation:
      a: 0.5
      b: 0.4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write experiments file: %v", err)
	}

	e := NewEngine(zap.NewNop())
	if err := e.LoadExperiments(path); err == nil {
		t.Error("expected error for invalid allocation sum")
	}
}
