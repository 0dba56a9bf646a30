package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// runMigrations executes database schema migrations.
func (j *SQLiteJournal) runMigrations() error {
	if !j.enabled || j.db == nil {
		return nil
	}

	if err := j.createMigrationsTable(); err != nil {
		return err
	}

	version, err := j.currentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: j.migration001InitialSchema},
	}

	for _, m := range migrations {
		if version < m.version {
			j.logger.Info("running migration", zap.Int("version", m.version), zap.String("name", m.name))
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := j.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (j *SQLiteJournal) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := j.db.Exec(query)
	return err
}

// currentMigrationVersion returns the highest applied migration version.
func (j *SQLiteJournal) currentMigrationVersion() (int, error) {
	row := j.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// setMigrationVersion records a migration as applied.
func (j *SQLiteJournal) setMigrationVersion(version int, name string) error {
	_, err := j.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// migration001InitialSchema creates the initial database schema.
func (j *SQLiteJournal) migration001InitialSchema() error {
	if _, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS recommendation_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			tool_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			combined_score REAL NOT NULL,
			variant TEXT,
			context_hash TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create recommendation_events table: %w", err)
	}

	if _, err := j.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rec_events_user
		ON recommendation_events(user_id)
	`); err != nil {
		return fmt.Errorf("failed to create recommendation_events user index: %w", err)
	}

	if _, err := j.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_rec_events_timestamp
		ON recommendation_events(timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create recommendation_events timestamp index: %w", err)
	}

	if _, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			feedback_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			tool_id TEXT NOT NULL,
			feedback_type TEXT NOT NULL,
			used INTEGER NOT NULL,
			helpful INTEGER NOT NULL,
			rating INTEGER,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create feedback_events table: %w", err)
	}

	if _, err := j.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_feedback_events_user
		ON feedback_events(user_id, timestamp DESC)
	`); err != nil {
		return fmt.Errorf("failed to create feedback_events user index: %w", err)
	}

	return nil
}

// Cleanup removes records older than the retention period.
func (j *SQLiteJournal) Cleanup(retention time.Duration) error {
	if !j.enabled || j.db == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := time.Now().Add(-retention).Format(time.RFC3339)

	if _, err := j.db.Exec("DELETE FROM recommendation_events WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean recommendation events: %w", err)
	}
	if _, err := j.db.Exec("DELETE FROM feedback_events WHERE timestamp < ?", cutoff); err != nil {
		return fmt.Errorf("failed to clean feedback events: %w", err)
	}

	return nil
}
