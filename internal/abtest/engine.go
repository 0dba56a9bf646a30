/*
Package abtest implements deterministic A/B experiment assignment.

Users are bucketed into variants with a rolling hash over (userID, testID),
so the same user always lands in the same bucket for a given test without
persisting the random draw. Variants carry alternate algorithm-weight
configurations that override the engine defaults for assigned users.
*/
package abtest

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// allocationTolerance is how far traffic allocations may drift from
	// summing to exactly 1.0.
	allocationTolerance = 0.001

	// reRunCooldown is how long after completing a test a user stays
	// ineligible for re-assignment to the same test.
	reRunCooldown = 30 * 24 * time.Hour
)

// Variant is one arm of an experiment.
type Variant struct {
	// ID identifies the variant within its test.
	ID string `yaml:"id" json:"id"`

	// Description explains what the variant changes.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Weights overrides the algorithm weight vector for assigned users.
	// Keys are algorithm names (collaborative, contentBased, contextual,
	// temporal, behavioral). Empty means the variant keeps the defaults.
	Weights map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
}

// Test is a registered experiment.
type Test struct {
	// ID identifies the test.
	ID string `yaml:"id" json:"id"`

	// Type categorizes the test, e.g. "weights" or "explanation". Users
	// can exclude or prefer types.
	Type string `yaml:"type" json:"type"`

	// Enabled gates assignment; disabled tests never assign new users.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Variants in declared order. Order matters for bucketing.
	Variants []Variant `yaml:"variants" json:"variants"`

	// TrafficAllocation maps variant ID to its share of traffic. Shares
	// must sum to 1.0.
	TrafficAllocation map[string]float64 `yaml:"trafficAllocation" json:"trafficAllocation"`
}

// Assignment records a user's stable bucket for one test.
type Assignment struct {
	TestID     string    `json:"testId"`
	VariantID  string    `json:"variantId"`
	AssignedAt time.Time `json:"assignedAt"`
	Status     string    `json:"status"` // "active" or "completed"
}

// Profile is a user's experiment participation record.
type Profile struct {
	// UserID identifies the user.
	UserID string

	// Consent must be true before any assignment happens.
	Consent bool

	// ExcludedTypes lists test types the user opted out of.
	ExcludedTypes []string

	// PreferredTypes, when non-empty, restricts assignment to these
	// test types.
	PreferredTypes []string

	// Assignments maps test ID to the user's assignment.
	Assignments map[string]Assignment

	// CompletedAt maps test ID to when the user completed that test.
	CompletedAt map[string]time.Time
}

// ProfileOptions configures a new user profile.
type ProfileOptions struct {
	Consent        bool
	ExcludedTypes  []string
	PreferredTypes []string
}

// Engine assigns users to experiment variants. Safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	tests     []Test // declared order, used for GetVariant precedence
	testsByID map[string]int
	profiles  map[string]*Profile
	now       func() time.Time
	logger    *zap.Logger
}

// NewEngine creates an A/B testing engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		testsByID: make(map[string]int),
		profiles:  make(map[string]*Profile),
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the time source, for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// RegisterTest validates and registers an experiment. Registration fails
// loud: a variant without an allocation, or allocations not summing to
// 1.0, is a configuration error surfaced to the caller.
func (e *Engine) RegisterTest(t Test) error {
	if t.ID == "" {
		return fmt.Errorf("test ID must not be empty")
	}
	if len(t.Variants) == 0 {
		return fmt.Errorf("test %q has no variants", t.ID)
	}

	sum := 0.0
	for _, v := range t.Variants {
		if v.ID == "" {
			return fmt.Errorf("test %q has a variant without an ID", t.ID)
		}
		alloc, ok := t.TrafficAllocation[v.ID]
		if !ok {
			return fmt.Errorf("test %q: variant %q has no traffic allocation", t.ID, v.ID)
		}
		if alloc < 0 {
			return fmt.Errorf("test %q: variant %q has negative allocation %f", t.ID, v.ID, alloc)
		}
		sum += alloc
	}
	if math.Abs(sum-1.0) > allocationTolerance {
		return fmt.Errorf("test %q: traffic allocations sum to %f, expected 1.0", t.ID, sum)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.testsByID[t.ID]; ok {
		e.tests[idx] = t
	} else {
		e.testsByID[t.ID] = len(e.tests)
		e.tests = append(e.tests, t)
	}

	e.logger.Info("registered experiment",
		zap.String("test", t.ID),
		zap.Int("variants", len(t.Variants)))

	return nil
}

// InitializeUserProfile creates a participation record for a user and
// immediately assigns them to every enabled test they are eligible for.
// Calling it again for an existing user re-runs assignment for tests
// added since.
func (e *Engine) InitializeUserProfile(userID string, opts ProfileOptions) *Profile {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[userID]
	if !ok {
		p = &Profile{
			UserID:         userID,
			Consent:        opts.Consent,
			ExcludedTypes:  opts.ExcludedTypes,
			PreferredTypes: opts.PreferredTypes,
			Assignments:    make(map[string]Assignment),
			CompletedAt:    make(map[string]time.Time),
		}
		e.profiles[userID] = p
	}

	for _, t := range e.tests {
		if a, ok := p.Assignments[t.ID]; ok && a.Status == "active" {
			continue
		}
		if !e.eligibleLocked(p, t) {
			continue
		}
		variant := assignVariant(userID, t)
		p.Assignments[t.ID] = Assignment{
			TestID:     t.ID,
			VariantID:  variant.ID,
			AssignedAt: e.now(),
			Status:     "active",
		}
	}

	return p
}

// GetVariant returns the user's active variant, walking registered tests
// in declared order and returning the first active assignment. Returns
// false when the user has no active assignment.
func (e *Engine) GetVariant(userID string) (Variant, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.profiles[userID]
	if !ok {
		return Variant{}, false
	}

	for _, t := range e.tests {
		a, ok := p.Assignments[t.ID]
		if !ok || a.Status != "active" {
			continue
		}
		if v, ok := findVariant(t, a.VariantID); ok {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantFor returns the user's assignment for one specific test.
func (e *Engine) VariantFor(userID, testID string) (Variant, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.profiles[userID]
	if !ok {
		return Variant{}, false
	}
	a, ok := p.Assignments[testID]
	if !ok || a.Status != "active" {
		return Variant{}, false
	}
	idx, ok := e.testsByID[testID]
	if !ok {
		return Variant{}, false
	}
	return findVariant(e.tests[idx], a.VariantID)
}

// CompleteTest marks the user's run of a test finished, starting the
// re-run cooldown.
func (e *Engine) CompleteTest(userID, testID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[userID]
	if !ok {
		return
	}
	a, ok := p.Assignments[testID]
	if !ok {
		return
	}
	a.Status = "completed"
	p.Assignments[testID] = a
	p.CompletedAt[testID] = e.now()
}

// ActiveTests returns the registered enabled tests in declared order.
func (e *Engine) ActiveTests() []Test {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Test
	for _, t := range e.tests {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// eligibleLocked checks whether a user can be assigned to a test.
func (e *Engine) eligibleLocked(p *Profile, t Test) bool {
	if !t.Enabled || !p.Consent {
		return false
	}
	for _, excluded := range p.ExcludedTypes {
		if t.Type == excluded {
			return false
		}
	}
	if len(p.PreferredTypes) > 0 {
		preferred := false
		for _, pt := range p.PreferredTypes {
			if t.Type == pt {
				preferred = true
				break
			}
		}
		if !preferred {
			return false
		}
	}
	if done, ok := p.CompletedAt[t.ID]; ok {
		if e.now().Sub(done) < reRunCooldown {
			return false
		}
	}
	return true
}

// bucketValue maps (userID, testID) to a stable value in [0,1) using a
// 32-bit rolling hash. The algorithm is part of the assignment contract:
// changing it reshuffles every user's bucket.
func bucketValue(userID, testID string) float64 {
	var h uint32
	for _, c := range []byte(userID + testID) {
		h = h*31 + uint32(c)
	}
	return float64(h) / float64(1<<32)
}

// assignVariant walks variants in declared order, accumulating traffic
// allocation, and returns the first variant whose cumulative share
// exceeds the user's bucket value. Falls back to a variant named
// "control", else the first variant.
func assignVariant(userID string, t Test) Variant {
	bucket := bucketValue(userID, t.ID)

	cumulative := 0.0
	for _, v := range t.Variants {
		cumulative += t.TrafficAllocation[v.ID]
		if bucket < cumulative {
			return v
		}
	}

	if v, ok := findVariant(t, "control"); ok {
		return v
	}
	return t.Variants[0]
}

func findVariant(t Test, variantID string) (Variant, bool) {
	for _, v := range t.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return Variant{}, false
}
