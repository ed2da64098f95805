package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stroomnet/gridsim/grid/emit"
	"github.com/stroomnet/gridsim/grid/store"
)

// Simulator is the entry point for all analyses on one LV grid: batch power
// flow, N-1 contingency, EV penetration, and optimal tap position.
//
// Construction validates the network and metadata once; profile inputs are
// validated per analysis. The Simulator itself is immutable after
// construction and safe for concurrent use, provided the configured solver,
// store, and emitter are.
//
// Example:
//
//	sim, err := grid.NewSimulator(net, meta,
//		grid.WithStore(st),
//		grid.WithEmitter(emit.NewLogEmitter(nil, true)),
//		grid.WithMaxConcurrent(4),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	batch, err := sim.RunPowerFlow(ctx, active, reactive)
type Simulator struct {
	net  *Network
	meta *Metadata
	topo *Topology

	solver        Solver
	store         store.Store
	emitter       emit.Emitter
	metrics       *PrometheusMetrics
	maxConcurrent int
	fixedRunID    string
}

// NewSimulator validates the dataset and builds a Simulator.
//
// The network must contain exactly one source and one transformer, every LV
// feeder in the metadata must be a line leaving the transformer's LV busbar,
// and the energized graph must be connected and radial. Violations surface as
// the package's sentinel errors.
func NewSimulator(net *Network, meta *Metadata, opts ...Option) (*Simulator, error) {
	if net == nil {
		return nil, fmt.Errorf("network must not be nil")
	}
	if meta == nil {
		return nil, fmt.Errorf("metadata must not be nil")
	}

	cfg := simConfig{
		solver:        &SweepSolver{},
		emitter:       emit.NewNullEmitter(),
		maxConcurrent: 8,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := ValidateInput(net, meta, nil, nil, nil); err != nil {
		return nil, err
	}
	topo, err := net.Topology()
	if err != nil {
		return nil, err
	}

	return &Simulator{
		net:           net,
		meta:          meta,
		topo:          topo,
		solver:        cfg.solver,
		store:         cfg.store,
		emitter:       cfg.emitter,
		metrics:       cfg.metrics,
		maxConcurrent: cfg.maxConcurrent,
		fixedRunID:    cfg.runID,
	}, nil
}

// Network returns the simulator's network model. Callers must not mutate it.
func (s *Simulator) Network() *Network { return s.net }

// Topology returns the validated switchable graph of the network.
func (s *Simulator) Topology() *Topology { return s.topo }

// newRunID returns the configured fixed run ID or a fresh UUID.
func (s *Simulator) newRunID() string {
	if s.fixedRunID != "" {
		return s.fixedRunID
	}
	return uuid.NewString()
}

// archiveRun persists the analysis outcome when a store is configured.
// Archive failures are reported on the run_complete event, not returned: a
// broken archive must not invalidate a finished computation.
func (s *Simulator) archiveRun(ctx context.Context, runID, kind string, startedAt time.Time, payload interface{}) error {
	if s.store == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode run payload: %w", err)
	}
	return s.store.SaveRun(ctx, store.RunRecord{
		RunID:     runID,
		Kind:      kind,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Payload:   raw,
	})
}

// finishRun emits the run_complete event, folding in any archive error.
func (s *Simulator) finishRun(ctx context.Context, runID, stage string, startedAt time.Time, payload interface{}) {
	meta := map[string]interface{}{
		"duration_ms": time.Since(startedAt).Milliseconds(),
	}
	if err := s.archiveRun(ctx, runID, stage, startedAt, payload); err != nil {
		meta["error"] = fmt.Sprintf("archive run: %v", err)
	}
	s.emitter.Emit(emit.Event{
		RunID: runID,
		Stage: stage,
		Msg:   "run_complete",
		Meta:  meta,
	})
}
