/*
Package benchmark measures recommendation pipeline performance.

It drives the engine with synthetic requests drawn from a fixed message
pool and reports latency percentiles and the observed cache hit rate.
Repeating messages from the pool exercises the result cache the way real
conversational traffic does.
*/
package benchmark

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/agenthub/tool-recommender/internal/insight"
	"github.com/agenthub/tool-recommender/internal/recommend"
)

// syntheticMessages is the request pool. Messages cover the detectable
// intents so scoring work is representative.
var syntheticMessages = []string{
	"run my onboarding workflow urgently",
	"analyze the quarterly sales data",
	"get the status of my current workflow",
	"create a new report for the team",
	"send an update to the project channel",
	"compare the two deployment options",
	"show me the user activity summary",
	"execute the cleanup job now",
}

// Result contains one benchmark run's measurements.
type Result struct {
	// Requests is the number of calls issued.
	Requests int `json:"requests"`

	// Users is the number of distinct synthetic users.
	Users int `json:"users"`

	// CacheHitRate is the share of calls served from cache.
	CacheHitRate float64 `json:"cacheHitRate"`

	// Fallbacks counts degraded responses.
	Fallbacks int `json:"fallbacks"`

	// AvgLatencyMS is the mean request latency in milliseconds.
	AvgLatencyMS float64 `json:"avgLatencyMs"`

	// P50LatencyMS, P95LatencyMS and P99LatencyMS are latency
	// percentiles in milliseconds.
	P50LatencyMS float64 `json:"p50LatencyMs"`
	P95LatencyMS float64 `json:"p95LatencyMs"`
	P99LatencyMS float64 `json:"p99LatencyMs"`
}

// Run issues count synthetic requests across users distinct user IDs and
// measures the engine's response behavior.
func Run(ctx context.Context, engine *recommend.Engine, count, users int) (*Result, error) {
	if engine == nil {
		return nil, fmt.Errorf("benchmark: engine is required")
	}
	if count <= 0 {
		count = 100
	}
	if users <= 0 {
		users = 10
	}

	latencies := make([]float64, 0, count)
	cacheHits := 0
	fallbacks := 0
	total := 0.0

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := recommend.Request{
			Message: syntheticMessages[i%len(syntheticMessages)],
			Context: insight.UserContext{
				UserID: fmt.Sprintf("bench-user-%d", i%users),
			},
		}

		start := time.Now()
		result := engine.GetRecommendations(ctx, req)
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0

		latencies = append(latencies, elapsed)
		total += elapsed

		switch result.Source {
		case recommend.SourceCache:
			cacheHits++
		case recommend.SourceFallback:
			fallbacks++
		}
	}

	sort.Float64s(latencies)

	return &Result{
		Requests:     count,
		Users:        users,
		CacheHitRate: float64(cacheHits) / float64(count),
		Fallbacks:    fallbacks,
		AvgLatencyMS: total / float64(count),
		P50LatencyMS: percentile(latencies, 0.50),
		P95LatencyMS: percentile(latencies, 0.95),
		P99LatencyMS: percentile(latencies, 0.99),
	}, nil
}

// percentile returns the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// FormatReport renders a result for terminal display.
func FormatReport(r *Result) string {
	return fmt.Sprintf(`Benchmark: %d requests across %d users
  Cache hit rate: %.1f%%
  Fallbacks:      %d
  Latency (ms):   avg %.3f  p50 %.3f  p95 %.3f  p99 %.3f
`, r.Requests, r.Users, r.CacheHitRate*100, r.Fallbacks,
		r.AvgLatencyMS, r.P50LatencyMS, r.P95LatencyMS, r.P99LatencyMS)
}
