// Package store persists analysis run records.
//
// A Simulator can be configured with a Store to archive the outcome of every
// analysis it runs: power-flow batches, contingency scans, EV penetration
// studies, and tap scans. Three implementations are provided:
//
//   - MemStore: in-memory, for tests and throwaway runs
//   - SQLiteStore: single-file database, zero-setup local persistence
//   - MySQLStore: shared database for multi-worker deployments
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a run ID has no stored record.
var ErrNotFound = errors.New("run not found")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("store is closed")

// RunRecord is the archived outcome of one analysis run.
type RunRecord struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Kind names the analysis: "power_flow", "contingency",
	// "ev_penetration", or "tap_scan".
	Kind string `json:"kind"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time the run took.
	Duration time.Duration `json:"duration"`

	// Payload holds the JSON-encoded analysis result.
	Payload json.RawMessage `json:"payload"`
}

// Store archives and retrieves run records.
//
// Implementations must be safe for concurrent use. SaveRun with an existing
// RunID overwrites the previous record.
type Store interface {
	// SaveRun persists the record, replacing any record with the same RunID.
	SaveRun(ctx context.Context, rec RunRecord) error

	// LoadRun retrieves the record for runID, or ErrNotFound.
	LoadRun(ctx context.Context, runID string) (RunRecord, error)

	// ListRuns returns the most recent records, newest first. A non-empty
	// kind filters by analysis kind; limit <= 0 means no limit.
	ListRuns(ctx context.Context, kind string, limit int) ([]RunRecord, error)

	// Close releases resources. Further calls return ErrStoreClosed.
	Close() error
}
