package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store for tests and single-process runs. Data is
// lost when the process exits.
type MemStore struct {
	mu     sync.RWMutex
	runs   map[string]RunRecord
	closed bool
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string]RunRecord)}
}

// SaveRun persists the record in memory.
func (m *MemStore) SaveRun(ctx context.Context, rec RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.runs[rec.RunID] = rec
	return nil
}

// LoadRun retrieves a record by run ID.
func (m *MemStore) LoadRun(ctx context.Context, runID string) (RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return RunRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return RunRecord{}, ErrStoreClosed
	}
	rec, ok := m.runs[runID]
	if !ok {
		return RunRecord{}, ErrNotFound
	}
	return rec, nil
}

// ListRuns returns records newest first, optionally filtered by kind.
func (m *MemStore) ListRuns(ctx context.Context, kind string, limit int) ([]RunRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	var out []RunRecord
	for _, rec := range m.runs {
		if kind != "" && rec.Kind != kind {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close marks the store closed.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.closed = true
	return nil
}
