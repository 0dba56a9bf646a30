package storage

import (
	"time"

	"go.uber.org/zap"
)

// topToolsLimit caps the top-tools list in analytics snapshots.
const topToolsLimit = 10

// Analytics aggregates journal contents since a given time. Aggregation
// happens in SQL; raw events never leave this package.
func (j *SQLiteJournal) Analytics(since time.Time) (Snapshot, error) {
	var snap Snapshot
	if !j.enabled || j.db == nil {
		return snap, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := since.Format(time.RFC3339)

	row := j.db.QueryRow(
		"SELECT COUNT(*) FROM recommendation_events WHERE timestamp >= ?", cutoff)
	if err := row.Scan(&snap.RecommendationsServed); err != nil {
		j.logger.Warn("failed to count recommendations", zap.Error(err))
	}

	row = j.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(AVG(used), 0),
			COALESCE(AVG(helpful), 0)
		FROM feedback_events WHERE timestamp >= ?
	`, cutoff)
	if err := row.Scan(&snap.FeedbackCount, &snap.UsageRate, &snap.HelpfulRate); err != nil {
		j.logger.Warn("failed to aggregate feedback", zap.Error(err))
	}

	row = j.db.QueryRow(`
		SELECT COALESCE(AVG(rating), 0)
		FROM feedback_events WHERE timestamp >= ? AND rating > 0
	`, cutoff)
	var avgRating float64
	if err := row.Scan(&avgRating); err != nil {
		j.logger.Warn("failed to average ratings", zap.Error(err))
	}
	snap.AverageRating = avgRating / 5.0

	rows, err := j.db.Query(`
		SELECT tool_id, COUNT(*) AS n
		FROM recommendation_events
		WHERE timestamp >= ?
		GROUP BY tool_id
		ORDER BY n DESC, tool_id ASC
		LIMIT ?
	`, cutoff, topToolsLimit)
	if err != nil {
		j.logger.Warn("failed to query top tools", zap.Error(err))
		return snap, nil
	}
	defer rows.Close()

	for rows.Next() {
		var tc ToolCount
		if err := rows.Scan(&tc.ToolID, &tc.Count); err != nil {
			j.logger.Warn("failed to scan top tool row", zap.Error(err))
			continue
		}
		snap.TopTools = append(snap.TopTools, tc)
	}

	return snap, nil
}
