package recommend

import (
	"math/rand"
	"sync"
)

// defaultPromptRate is the fraction of requests that carry a feedback
// prompt. Prompting on every request trains users to ignore prompts.
const defaultPromptRate = 0.1

// explorer decides when to attach a feedback prompt and to which ranked
// recommendation, epsilon-greedy style: usually the top result, sometimes
// a lower-ranked one so feedback also covers tools that rarely win.
type explorer struct {
	mu      sync.Mutex
	rate    float64
	epsilon float64
	rng     *rand.Rand
}

// newExplorer creates an explorer with a seedable random source, so
// tests can pin its decisions.
func newExplorer(rate, epsilon float64, seed int64) *explorer {
	if rate <= 0 {
		rate = defaultPromptRate
	}
	return &explorer{
		rate:    rate,
		epsilon: epsilon,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// promptIndex returns the index of the recommendation to prompt on, or
// -1 when this request carries no prompt.
func (e *explorer) promptIndex(n int) int {
	if n == 0 {
		return -1
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng.Float64() >= e.rate {
		return -1
	}
	if n > 1 && e.rng.Float64() < e.epsilon {
		return 1 + e.rng.Intn(n-1)
	}
	return 0
}
