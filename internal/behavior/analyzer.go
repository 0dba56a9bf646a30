/*
Package behavior implements per-user usage-pattern analysis.

The analyzer keeps a bounded in-memory history of interaction events per
user and maintains an exponential-moving-average affinity scalar per
(user, tool) pair. A background tracker journals events to persistent
storage without blocking the request path.
*/
package behavior

import (
	"math"
	"sync"
	"time"
)

const (
	// emaAlpha is the smoothing factor for the affinity moving average.
	emaAlpha = 0.3

	// neutralAffinity is returned for pairs with no observed history.
	neutralAffinity = 0.5

	// maxEventsPerUser bounds the in-memory history per user.
	maxEventsPerUser = 200

	// recencyHalfLife is the half-life for recency decay when blending
	// affinity with how recently the tool was used.
	recencyHalfLife = 24 * time.Hour
)

// Event is a single observed interaction.
type Event struct {
	// ToolID is the tool that was interacted with.
	ToolID string `json:"toolId"`

	// Type is the interaction type, e.g. "invocation" or "feedback".
	Type string `json:"type"`

	// Used indicates the tool was actually invoked.
	Used bool `json:"used"`

	// Helpful indicates the interaction was judged helpful.
	Helpful bool `json:"helpful"`

	// Rating is a 1-5 rating, or 0 if not rated.
	Rating int `json:"rating"`

	// Timestamp is when the interaction happened.
	Timestamp time.Time `json:"timestamp"`
}

// Summary describes a user's observed behavior for decoration and
// analytics.
type Summary struct {
	// EventCount is the number of tracked events.
	EventCount int

	// ToolsUsed is the number of distinct tools with observed usage.
	ToolsUsed int

	// SuccessRate is the share of events judged helpful.
	SuccessRate float64
}

// Analyzer maintains usage-pattern history and affinity scores. Safe for
// concurrent use.
type Analyzer struct {
	mu       sync.RWMutex
	history  map[string][]Event
	affinity map[string]map[string]float64
	lastUsed map[string]map[string]time.Time
	seeded   map[string]bool
}

// NewAnalyzer creates a behavior analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		history:  make(map[string][]Event),
		affinity: make(map[string]map[string]float64),
		lastUsed: make(map[string]map[string]time.Time),
		seeded:   make(map[string]bool),
	}
}

// Record folds one event into the user's history and affinity average.
func (a *Analyzer) Record(userID string, ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recordLocked(userID, ev)
}

func (a *Analyzer) recordLocked(userID string, ev Event) {
	events := append(a.history[userID], ev)
	if len(events) > maxEventsPerUser {
		events = events[len(events)-maxEventsPerUser:]
	}
	a.history[userID] = events

	tools := a.affinity[userID]
	if tools == nil {
		tools = make(map[string]float64)
		a.affinity[userID] = tools
	}
	current, ok := tools[ev.ToolID]
	if !ok {
		current = neutralAffinity
	}
	tools[ev.ToolID] = current + emaAlpha*(outcomeValue(ev)-current)

	if ev.Used {
		used := a.lastUsed[userID]
		if used == nil {
			used = make(map[string]time.Time)
			a.lastUsed[userID] = used
		}
		used[ev.ToolID] = ev.Timestamp
	}
}

// Seed replays caller-supplied history (e.g. from a request's behavior
// section) without journaling it. A user is seeded at most once: replays
// on later requests are ignored, so repeating a request does not shift
// the affinity averages it is scored against.
func (a *Analyzer) Seed(userID string, events []Event) {
	if len(events) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seeded[userID] {
		return
	}
	a.seeded[userID] = true

	for _, ev := range events {
		a.recordLocked(userID, ev)
	}
}

// Affinity returns the behavioral-affinity scalar for a tool, in [0,1].
// Unknown pairs are neutral.
func (a *Analyzer) Affinity(userID, toolID string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if score, ok := a.affinity[userID][toolID]; ok {
		return clamp01(score)
	}
	return neutralAffinity
}

// LastUsed returns when the user last invoked the tool, if ever.
func (a *Analyzer) LastUsed(userID, toolID string) (time.Time, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	at, ok := a.lastUsed[userID][toolID]
	return at, ok
}

// RecencyWeight computes the exponential decay weight for a last-use
// timestamp: 1.0 right after use, 0.5 after one half-life.
func RecencyWeight(lastUsed, now time.Time) float64 {
	hours := now.Sub(lastUsed).Hours()
	if hours <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln2 * hours / recencyHalfLife.Hours())
}

// Summarize reports the user's observed behavior.
func (a *Analyzer) Summarize(userID string) Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	events := a.history[userID]
	if len(events) == 0 {
		return Summary{}
	}

	helpful := 0
	tools := make(map[string]bool)
	for _, ev := range events {
		if ev.Helpful {
			helpful++
		}
		if ev.Used {
			tools[ev.ToolID] = true
		}
	}

	return Summary{
		EventCount:  len(events),
		ToolsUsed:   len(tools),
		SuccessRate: float64(helpful) / float64(len(events)),
	}
}

// outcomeValue maps an event to a [0,1] training signal: explicit ratings
// dominate, then the helpful flag, then bare usage.
func outcomeValue(ev Event) float64 {
	if ev.Rating > 0 {
		return float64(ev.Rating) / 5.0
	}
	if ev.Helpful {
		return 1.0
	}
	if ev.Used {
		return 0.6
	}
	return 0.0
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
