/*
Package collab implements collaborative filtering over an in-memory
user/tool preference matrix.

Scoring prefers the user's own rating when present, then blends ratings
from nearest neighbors by cached cosine similarity, then falls back to an
item-based estimate, and finally to a shrinkage-weighted global popularity
prior. Similarities are recomputed lazily when a user's preferences change
and only values above the pruning threshold are retained.
*/
package collab

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

const (
	// similarityThreshold prunes weak similarities from the index.
	similarityThreshold = 0.1

	// maxNeighbors caps how many nearest neighbors contribute to a score.
	maxNeighbors = 8

	// defaultMaxUsers bounds the preference matrix. When exceeded, the
	// least recently updated user profile is evicted.
	defaultMaxUsers = 10000

	// neutralScore is returned when no signal exists anywhere.
	neutralScore = 0.5
)

// Engine holds the preference matrix and similarity index. Safe for
// concurrent use.
type Engine struct {
	mu sync.RWMutex

	// ratings maps userID -> toolID -> rating in [0,1].
	ratings map[string]map[string]float64

	// similarities maps userID -> otherUserID -> cosine similarity. Only
	// values above similarityThreshold are stored.
	similarities map[string]map[string]float64

	// updatedAt tracks last profile mutation per user, for eviction.
	updatedAt map[string]time.Time

	maxUsers int
}

// NewEngine creates a collaborative filtering engine with the default
// profile capacity.
func NewEngine() *Engine {
	return &Engine{
		ratings:      make(map[string]map[string]float64),
		similarities: make(map[string]map[string]float64),
		updatedAt:    make(map[string]time.Time),
		maxUsers:     defaultMaxUsers,
	}
}

// RegisterUser seeds a user's preference profile. Existing ratings for the
// user are replaced by the seed values.
func (e *Engine) RegisterUser(userID string, seed map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile := make(map[string]float64, len(seed))
	for toolID, rating := range seed {
		profile[toolID] = clamp01(rating)
	}
	e.ratings[userID] = profile
	e.updatedAt[userID] = time.Now()

	e.recomputeSimilaritiesLocked(userID)
	e.evictLocked()
}

// UpdateUserProfile records a single rating and refreshes the user's
// similarity row.
func (e *Engine) UpdateUserProfile(userID, toolID string, rating float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profile, ok := e.ratings[userID]
	if !ok {
		profile = make(map[string]float64)
		e.ratings[userID] = profile
	}
	profile[toolID] = clamp01(rating)
	e.updatedAt[userID] = time.Now()

	e.recomputeSimilaritiesLocked(userID)
	e.evictLocked()
}

// ScoreTool scores a tool for a user. The chain is: own rating, neighbor
// blend, item-based estimate, popularity prior. The result is clamped to
// [0,1] and the method never fails for unknown users.
func (e *Engine) ScoreTool(ctx context.Context, userID, toolID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	// Exploitation: the user already rated this tool.
	if rating, ok := e.ratings[userID][toolID]; ok {
		return clamp01(rating), nil
	}

	if score, ok := e.neighborScoreLocked(userID, toolID); ok {
		return clamp01(score), nil
	}

	if score, ok := e.itemScoreLocked(userID, toolID); ok {
		return clamp01(score), nil
	}

	return clamp01(e.popularityLocked(toolID)), nil
}

// UserCount returns the number of tracked user profiles.
func (e *Engine) UserCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.ratings)
}

// neighborScoreLocked blends ratings for toolID from the user's nearest
// neighbors, weighted by similarity.
func (e *Engine) neighborScoreLocked(userID, toolID string) (float64, bool) {
	sims := e.similarities[userID]
	if len(sims) == 0 {
		return 0, false
	}

	type neighbor struct {
		id  string
		sim float64
	}
	neighbors := make([]neighbor, 0, len(sims))
	for other, sim := range sims {
		neighbors = append(neighbors, neighbor{id: other, sim: sim})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].id < neighbors[j].id
	})
	if len(neighbors) > maxNeighbors {
		neighbors = neighbors[:maxNeighbors]
	}

	var weightedSum, totalWeight float64
	for _, n := range neighbors {
		if rating, ok := e.ratings[n.id][toolID]; ok {
			weightedSum += n.sim * rating
			totalWeight += n.sim
		}
	}
	if totalWeight == 0 {
		return 0, false
	}
	return weightedSum / totalWeight, true
}

// itemScoreLocked estimates a rating from the tools the user has rated,
// weighted by tool-tool similarity over the rating matrix.
func (e *Engine) itemScoreLocked(userID, toolID string) (float64, bool) {
	profile := e.ratings[userID]
	if len(profile) == 0 {
		return 0, false
	}

	var weightedSum, totalWeight float64
	for ratedTool, rating := range profile {
		sim := e.toolSimilarityLocked(toolID, ratedTool)
		if sim <= similarityThreshold {
			continue
		}
		weightedSum += sim * rating
		totalWeight += sim
	}
	if totalWeight == 0 {
		return 0, false
	}
	return weightedSum / totalWeight, true
}

// popularityLocked computes the global popularity prior:
// avgRating * raterCount/(totalUsers+1), a Bayesian-shrinkage-style
// estimate. With no ratings anywhere the score is neutral.
func (e *Engine) popularityLocked(toolID string) float64 {
	var sum float64
	raters := 0
	for _, profile := range e.ratings {
		if rating, ok := profile[toolID]; ok {
			sum += rating
			raters++
		}
	}
	if raters == 0 {
		return neutralScore
	}

	avg := sum / float64(raters)
	return avg * float64(raters) / float64(len(e.ratings)+1)
}

// recomputeSimilaritiesLocked refreshes the similarity row for userID and
// mirrors the values into the other users' rows. Similarities at or below
// the pruning threshold are dropped.
func (e *Engine) recomputeSimilaritiesLocked(userID string) {
	row := make(map[string]float64)

	for other := range e.ratings {
		if other == userID {
			continue
		}
		sim := cosineOverShared(e.ratings[userID], e.ratings[other])
		if sim > similarityThreshold {
			row[other] = sim
			otherRow := e.similarities[other]
			if otherRow == nil {
				otherRow = make(map[string]float64)
				e.similarities[other] = otherRow
			}
			otherRow[userID] = sim
		} else if otherRow, ok := e.similarities[other]; ok {
			delete(otherRow, userID)
		}
	}

	e.similarities[userID] = row
}

// toolSimilarityLocked computes cosine similarity between two tools over
// the users that rated both. Computed on demand; the tool-tool index is
// small enough not to warrant caching.
func (e *Engine) toolSimilarityLocked(toolA, toolB string) float64 {
	var dot, normA, normB float64
	for _, profile := range e.ratings {
		a, okA := profile[toolA]
		b, okB := profile[toolB]
		if okA {
			normA += a * a
		}
		if okB {
			normB += b * b
		}
		if okA && okB {
			dot += a * b
		}
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// evictLocked drops the least recently updated profiles once the matrix
// exceeds its capacity.
func (e *Engine) evictLocked() {
	for len(e.ratings) > e.maxUsers {
		oldestID := ""
		var oldest time.Time
		for userID, at := range e.updatedAt {
			if oldestID == "" || at.Before(oldest) || (at.Equal(oldest) && userID < oldestID) {
				oldestID = userID
				oldest = at
			}
		}
		if oldestID == "" {
			return
		}
		delete(e.ratings, oldestID)
		delete(e.updatedAt, oldestID)
		delete(e.similarities, oldestID)
		for _, row := range e.similarities {
			delete(row, oldestID)
		}
	}
}

// cosineOverShared computes cosine similarity between two preference
// vectors restricted to the tools both users rated.
func cosineOverShared(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	shared := false
	for toolID, ra := range a {
		rb, ok := b[toolID]
		if !ok {
			continue
		}
		shared = true
		dot += ra * rb
		normA += ra * ra
		normB += rb * rb
	}
	if !shared || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
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
