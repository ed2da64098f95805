package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store, for deployments
// where several workers archive runs into a shared database.
//
// The DSN format is the go-sql-driver one:
//
//	user:password@tcp(localhost:3306)/gridsim?parseTime=true
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN")
//	st, err := store.NewMySQLStore(dsn)
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore opens a pooled connection, verifies it, and runs the schema
// migration.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore) createTables(ctx context.Context) error {
	table := `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			run_id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			started_at DATETIME(6) NOT NULL,
			duration_ns BIGINT NOT NULL,
			payload LONGTEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_runs_kind_started (kind, started_at)
		)
	`
	if _, err := s.db.ExecContext(ctx, table); err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}
	return nil
}

// SaveRun inserts or replaces the record.
func (s *MySQLStore) SaveRun(ctx context.Context, rec RunRecord) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (run_id, kind, started_at, duration_ns, payload)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			kind = VALUES(kind),
			started_at = VALUES(started_at),
			duration_ns = VALUES(duration_ns),
			payload = VALUES(payload)
	`, rec.RunID, rec.Kind, rec.StartedAt.UTC(), int64(rec.Duration), string(rec.Payload))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", rec.RunID, err)
	}
	return nil
}

// LoadRun retrieves a record by run ID.
func (s *MySQLStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return RunRecord{}, ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, kind, started_at, duration_ns, payload
		FROM analysis_runs WHERE run_id = ?
	`, runID)

	var (
		rec        RunRecord
		startedAt  time.Time
		durationNS int64
		payload    string
	)
	err := row.Scan(&rec.RunID, &rec.Kind, &startedAt, &durationNS, &payload)
	if err == sql.ErrNoRows {
		return RunRecord{}, ErrNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	rec.StartedAt = startedAt
	rec.Duration = time.Duration(durationNS)
	rec.Payload = []byte(payload)
	return rec, nil
}

// ListRuns returns records newest first, optionally filtered by kind.
func (s *MySQLStore) ListRuns(ctx context.Context, kind string, limit int) ([]RunRecord, error) {
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
		var (
			rec        RunRecord
			startedAt  time.Time
			durationNS int64
			payload    string
		)
		if err := rows.Scan(&rec.RunID, &rec.Kind, &startedAt, &durationNS, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartedAt = startedAt
		rec.Duration = time.Duration(durationNS)
		rec.Payload = []byte(payload)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.closed = true
	return s.db.Close()
}
