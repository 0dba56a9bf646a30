package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const (
	// cacheBucket quantizes cache keys into fixed time windows, so
	// near-simultaneous identical requests hit cache even with fresh
	// timestamps.
	cacheBucket = 5 * time.Minute

	// defaultCacheTTL is how long an entry stays valid.
	defaultCacheTTL = 10 * time.Minute

	// defaultCacheSize bounds the number of cached results.
	defaultCacheSize = 1000
)

// Clock supplies the current time. Injected so tests can control
// time-bucket boundaries deterministically.
type Clock interface {
	Now() time.Time
}

// systemClock is the production clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// cacheEntry is one cached ranked result.
type cacheEntry struct {
	recommendations []Recommendation
	generatedAt     time.Time
	expiresAt       time.Time
}

// resultCache is a TTL- and size-bounded cache of ranked results.
type resultCache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
}

func newResultCache(ttl time.Duration, maxEntries int) *resultCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheSize
	}
	return &resultCache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// cacheKey digests the request identity plus a 5-minute time bucket.
// The intent comes from a cheap deterministic probe of the message, not
// the full analysis, so the key can be computed before any scoring.
func cacheKey(message, userID, intent, workflowID string, now time.Time) string {
	bucket := now.Unix() / int64(cacheBucket.Seconds())
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%d", message, userID, intent, workflowID, bucket)))
	return hex.EncodeToString(h[:])
}

// get returns a live cached result, treating expired entries as misses.
func (c *resultCache) get(key string, now time.Time) ([]Recommendation, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, time.Time{}, false
	}
	return entry.recommendations, entry.generatedAt, true
}

// put stores a result, evicting the entry closest to expiry when full.
func (c *resultCache) put(key string, recs []Recommendation, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictSoonestLocked()
	}

	c.entries[key] = cacheEntry{
		recommendations: recs,
		generatedAt:     now,
		expiresAt:       now.Add(c.ttl),
	}
}

// sweep drops all expired entries.
func (c *resultCache) sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// size returns the current entry count.
func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictSoonestLocked removes the entry closest to expiry. Ties break on
// key order so eviction stays deterministic.
func (c *resultCache) evictSoonestLocked() {
	var soonestKey string
	var soonest time.Time
	for key, entry := range c.entries {
		if soonestKey == "" ||
			entry.expiresAt.Before(soonest) ||
			(entry.expiresAt.Equal(soonest) && key < soonestKey) {
			soonestKey = key
			soonest = entry.expiresAt
		}
	}
	if soonestKey != "" {
		delete(c.entries, soonestKey)
	}
}
