package storage

import (
	"time"

	"go.uber.org/zap"
)

// RecordRecommendation records a served recommendation.
func (j *SQLiteJournal) RecordRecommendation(ev RecommendationEvent) error {
	if !j.enabled || j.db == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
		INSERT INTO recommendation_events
			(request_id, user_id, tool_id, position, combined_score, variant, context_hash, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.Exec(query,
		ev.RequestID,
		ev.UserID,
		ev.ToolID,
		ev.Rank,
		ev.CombinedScore,
		ev.Variant,
		ev.ContextHash,
		ev.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		j.logger.Warn("failed to record recommendation", zap.Error(err))
	}

	return nil
}

// RecordFeedback records post-interaction feedback.
func (j *SQLiteJournal) RecordFeedback(ev FeedbackEvent) error {
	if !j.enabled || j.db == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	used := 0
	if ev.Used {
		used = 1
	}
	helpful := 0
	if ev.Helpful {
		helpful = 1
	}

	query := `
		INSERT INTO feedback_events
			(feedback_id, user_id, tool_id, feedback_type, used, helpful, rating, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.db.Exec(query,
		ev.FeedbackID,
		ev.UserID,
		ev.ToolID,
		ev.Type,
		used,
		helpful,
		ev.Rating,
		ev.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		j.logger.Warn("failed to record feedback", zap.Error(err))
	}

	return nil
}

// FeedbackHistory retrieves feedback for a user since a given time.
func (j *SQLiteJournal) FeedbackHistory(userID string, since time.Time) ([]FeedbackEvent, error) {
	if !j.enabled || j.db == nil {
		return []FeedbackEvent{}, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	query := `
		SELECT feedback_id, user_id, tool_id, feedback_type, used, helpful, rating, timestamp
		FROM feedback_events
		WHERE user_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := j.db.Query(query, userID, since.Format(time.RFC3339))
	if err != nil {
		j.logger.Warn("failed to query feedback history", zap.Error(err))
		return []FeedbackEvent{}, nil
	}
	defer rows.Close()

	var events []FeedbackEvent
	for rows.Next() {
		var ev FeedbackEvent
		var timestampStr string
		var used, helpful int

		if err := rows.Scan(
			&ev.FeedbackID,
			&ev.UserID,
			&ev.ToolID,
			&ev.Type,
			&used,
			&helpful,
			&ev.Rating,
			&timestampStr,
		); err != nil {
			j.logger.Warn("failed to scan feedback row", zap.Error(err))
			continue
		}

		ev.Used = used == 1
		ev.Helpful = helpful == 1

		ev.Timestamp, err = time.Parse(time.RFC3339, timestampStr)
		if err != nil {
			j.logger.Warn("failed to parse feedback timestamp", zap.Error(err))
			continue
		}

		events = append(events, ev)
	}

	return events, nil
}
