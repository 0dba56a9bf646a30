/*
Package storage implements a persistent journal for recommendation and
feedback events.

This package provides SQLite-based storage for served recommendations and
post-interaction feedback, feeding the analytics surface. The database is
stored at ~/.tool-recommender/journal.db and uses modernc.org/sqlite (a
pure Go, CGo-free implementation). The journal degrades gracefully: if the
database is unavailable, writes become no-ops and reads return empty data.

Engine state (preference matrix, similarity index, A/B history) is
in-memory only and never persisted here.
*/
package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Journal defines the interface for persistent event storage.
type Journal interface {
	// Init initializes the database and runs migrations.
	Init() error

	// RecordRecommendation records a served recommendation.
	RecordRecommendation(ev RecommendationEvent) error

	// RecordFeedback records post-interaction feedback.
	RecordFeedback(ev FeedbackEvent) error

	// FeedbackHistory retrieves feedback for a user since a given time.
	FeedbackHistory(userID string, since time.Time) ([]FeedbackEvent, error)

	// Analytics aggregates counts and rates since a given time.
	Analytics(since time.Time) (Snapshot, error)

	// Cleanup removes records older than the retention period.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	logger   *zap.Logger
	mu       sync.Mutex
	initOnce sync.Once
}

// NewJournal creates a journal at ~/.tool-recommender/journal.db.
//
// If the home directory cannot be resolved the journal is disabled but
// operations will not fail.
func NewJournal(logger *zap.Logger) *SQLiteJournal {
	if logger == nil {
		logger = zap.NewNop()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		logger.Warn("failed to resolve home directory, journal disabled", zap.Error(err))
		return &SQLiteJournal{enabled: false, logger: logger}
	}

	return &SQLiteJournal{
		dbPath:  filepath.Join(home, ".tool-recommender", "journal.db"),
		enabled: true,
		logger:  logger,
	}
}

// NewJournalAt creates a journal at an explicit path.
func NewJournalAt(dbPath string, logger *zap.Logger) *SQLiteJournal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteJournal{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, the journal is disabled and subsequent
// operations become no-ops (graceful degradation).
func (j *SQLiteJournal) Init() error {
	if !j.enabled {
		return nil
	}

	var initErr error
	j.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(j.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create journal directory: %w", err)
			j.disable(initErr)
			return
		}

		db, err := sql.Open("sqlite", j.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			j.disable(initErr)
			return
		}
		j.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			j.disable(initErr)
			return
		}

		if err := j.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			j.disable(initErr)
			return
		}
	})

	return initErr
}

// disable marks the journal unusable and logs why.
func (j *SQLiteJournal) disable(err error) {
	j.enabled = false
	j.logger.Warn("journal disabled", zap.Error(err))
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if !j.enabled || j.db == nil {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	j.db = nil
	return nil
}

// HashContext creates a SHA256 hash of request context for privacy. Raw
// user messages are never stored.
func HashContext(context string) string {
	if context == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(context))
	return hex.EncodeToString(hash[:])
}
