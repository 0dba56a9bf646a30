package recommend

import (
	"time"

	"github.com/agenthub/tool-recommender/internal/behavior"
	"github.com/agenthub/tool-recommender/internal/insight"
)

// Temporal fit weights.
const (
	temporalRecencyWeight = 0.6
	temporalTimingWeight  = 0.4

	// neutralTemporal is the component value when no signal exists.
	neutralTemporal = 0.5

	// workingHoursTiming is the timing base during business hours.
	workingHoursTiming = 0.7

	// urgencyTimingBoost is added when the derived urgency is elevated.
	urgencyTimingBoost = 0.2
)

// scoreTemporalFit blends how recently the user last invoked the tool
// with how well the moment suits acting now. Tools never used before
// score neutral on recency rather than being penalized.
func scoreTemporalFit(ins insight.Insights, lastUsed time.Time, hasLastUsed bool, now time.Time) float64 {
	recency := neutralTemporal
	if hasLastUsed {
		recency = behavior.RecencyWeight(lastUsed, now)
	}

	timing := neutralTemporal
	for _, factor := range ins.EnvironmentFactors {
		if factor == "working-hours" {
			timing = workingHoursTiming
			break
		}
	}
	if ins.Urgency == "high" || ins.Urgency == "critical" {
		timing += urgencyTimingBoost
	}
	if timing > 1 {
		timing = 1
	}

	return clamp01(temporalRecencyWeight*recency + temporalTimingWeight*timing)
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
