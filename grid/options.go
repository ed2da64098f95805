package grid

import (
	"fmt"

	"github.com/stroomnet/gridsim/grid/emit"
	"github.com/stroomnet/gridsim/grid/store"
)

// simConfig collects everything configurable on a Simulator.
type simConfig struct {
	solver        Solver
	store         store.Store
	emitter       emit.Emitter
	metrics       *PrometheusMetrics
	maxConcurrent int
	runID         string
}

// Option configures a Simulator during construction.
type Option func(*simConfig) error

// WithSolver replaces the default SweepSolver. Use it to plug in an external
// power-flow engine; the solver must be safe for concurrent use.
func WithSolver(solver Solver) Option {
	return func(c *simConfig) error {
		if solver == nil {
			return fmt.Errorf("solver must not be nil")
		}
		c.solver = solver
		return nil
	}
}

// WithStore archives every analysis run into the given store.
func WithStore(s store.Store) Option {
	return func(c *simConfig) error {
		if s == nil {
			return fmt.Errorf("store must not be nil")
		}
		c.store = s
		return nil
	}
}

// WithEmitter routes run events to the given emitter. The default discards
// all events.
func WithEmitter(e emit.Emitter) Option {
	return func(c *simConfig) error {
		if e == nil {
			return fmt.Errorf("emitter must not be nil")
		}
		c.emitter = e
		return nil
	}
}

// WithMetrics records solver and scenario metrics to Prometheus.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(c *simConfig) error {
		if m == nil {
			return fmt.Errorf("metrics must not be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithMaxConcurrent bounds the number of power-flow solves running in
// parallel during a batch. Default is 8.
func WithMaxConcurrent(n int) Option {
	return func(c *simConfig) error {
		if n < 1 {
			return fmt.Errorf("max concurrent must be at least 1, got %d", n)
		}
		c.maxConcurrent = n
		return nil
	}
}

// WithRunID fixes the run ID used for all analyses on this Simulator instead
// of generating a fresh UUID per run. Intended for tests and replayable jobs.
func WithRunID(runID string) Option {
	return func(c *simConfig) error {
		if runID == "" {
			return fmt.Errorf("run id must not be empty")
		}
		c.runID = runID
		return nil
	}
}
