package recommend

import "sync"

// metricsAlpha is the smoothing factor for the latency moving average.
const metricsAlpha = 0.3

// MetricsSnapshot is a point-in-time view of engine performance.
type MetricsSnapshot struct {
	// Requests is the total number of recommendation calls served.
	Requests int64 `json:"requests"`

	// CacheHits counts calls answered from cache.
	CacheHits int64 `json:"cacheHits"`

	// CacheHitRate is CacheHits / Requests, 0 when no requests yet.
	CacheHitRate float64 `json:"cacheHitRate"`

	// Fallbacks counts degraded (empty fallback) responses.
	Fallbacks int64 `json:"fallbacks"`

	// AvgLatencyMS is the exponential moving average of request latency
	// in milliseconds.
	AvgLatencyMS float64 `json:"avgLatencyMs"`
}

// metrics aggregates request counters and an EMA of latency. Safe for
// concurrent use.
type metrics struct {
	mu         sync.Mutex
	requests   int64
	cacheHits  int64
	fallbacks  int64
	avgLatency float64
	hasLatency bool
}

func newMetrics() *metrics {
	return &metrics{}
}

// record folds one completed request into the aggregates.
func (m *metrics) record(latencyMS float64, source string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	switch source {
	case SourceCache:
		m.cacheHits++
	case SourceFallback:
		m.fallbacks++
	}

	if !m.hasLatency {
		m.avgLatency = latencyMS
		m.hasLatency = true
		return
	}
	m.avgLatency += metricsAlpha * (latencyMS - m.avgLatency)
}

// snapshot returns the current aggregates.
func (m *metrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Requests:     m.requests,
		CacheHits:    m.cacheHits,
		Fallbacks:    m.fallbacks,
		AvgLatencyMS: m.avgLatency,
	}
	if m.requests > 0 {
		snap.CacheHitRate = float64(m.cacheHits) / float64(m.requests)
	}
	return snap
}
