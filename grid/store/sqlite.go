package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It keeps run records in a single-file database, suited for local studies
// and development with zero setup. WAL mode is enabled so readers do not
// block behind writers.
//
// Example:
//
//	st, err := store.NewSQLiteStore("./runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
// Pass ":memory:" for a throwaway in-memory database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore opens (creating if needed) the database at path and runs the
// schema migration.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			duration_ns INTEGER NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"CREATE INDEX IF NOT EXISTS idx_runs_kind_started ON analysis_runs(kind, started_at)"); err != nil {
		return fmt.Errorf("failed to create idx_runs_kind_started: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces the record.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec RunRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, kind, started_at, duration_ns, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			kind = excluded.kind,
			started_at = excluded.started_at,
			duration_ns = excluded.duration_ns,
			payload = excluded.payload
	`, rec.RunID, rec.Kind, rec.StartedAt.UTC().Format(time.RFC3339Nano),
		int64(rec.Duration), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.RunID, err)
	}
	return nil
}

// LoadRun retrieves a record by run ID.
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return RunRecord{}, ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, kind, started_at, duration_ns, payload
		FROM analysis_runs WHERE run_id = ?
	`, runID)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns records newest first, optionally filtered by kind.
func (s *SQLiteStore) ListRuns(ctx context.Context, kind string, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT run_id, kind, started_at, duration_ns, payload
		FROM analysis_runs
	`
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		rec        RunRecord
		startedAt  string
		durationNS int64
		payload    string
	)
	if err := row.Scan(&rec.RunID, &rec.Kind, &startedAt, &durationNS, &payload); err != nil {
		return RunRecord{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	rec.StartedAt = ts
	rec.Duration = time.Duration(durationNS)
	rec.Payload = []byte(payload)
	return rec, nil
}
