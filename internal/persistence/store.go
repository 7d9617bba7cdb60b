// Package persistence keeps a write-only SQLite journal of finished runs.
// The coordinator never reads it back.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ResultRecord is one task outcome stored in the journal.
type ResultRecord struct {
	RunID      string
	TaskID     string
	WorkerType string
	Status     string // COMPLETED or FAILED
	Output     string // JSON encoding of the executor output
	Error      string
	Attempts   int
	Cached     bool
	Duration   time.Duration
	FinishedAt time.Time
}

// RunSummary aggregates the results recorded for one run.
type RunSummary struct {
	ID        string
	StartedAt time.Time
	UpdatedAt time.Time
	Total     int
	Completed int
	Failed    int
}

// Store defines the run history interface.
type Store interface {
	SaveResult(ctx context.Context, rec ResultRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	ListResults(ctx context.Context, runID string) ([]ResultRecord, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys, and busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	return open(ctx, connStr, 2)
}

// NewMemoryStore creates an in-memory SQLite store for testing. Every call
// gets its own database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("file:history-%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr, 1)
}

func open(ctx context.Context, connStr string, maxConns int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxConns)

	// modernc.org/sqlite ignores _foreign_keys in the connection string.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
