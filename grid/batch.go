package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stroomnet/gridsim/grid/emit"
	"github.com/stroomnet/gridsim/grid/profile"
)

// PowerFlowResult bundles the raw batch solution with the two aggregated
// views callers usually want.
type PowerFlowResult struct {
	Batch        *BatchResult
	NodeVoltages []NodeVoltageRow
	LineStats    []LineStatRow
}

// RunPowerFlow solves one power flow per profile timestamp and aggregates the
// results.
//
// The active and reactive profiles must share timestamps, shape, and column
// IDs, and every column must be a sym_load ID. Solves run concurrently up to
// the configured limit; results keep timestamp order regardless. The first
// solve error cancels the remaining work.
func (s *Simulator) RunPowerFlow(ctx context.Context, active, reactive *profile.Profile) (*PowerFlowResult, error) {
	if err := ValidateProfiles(s.net, active, reactive); err != nil {
		return nil, err
	}

	runID := s.newRunID()
	startedAt := time.Now()
	s.emitter.Emit(emit.Event{
		RunID: runID,
		Stage: "power_flow",
		Msg:   "run_start",
		Meta:  map[string]interface{}{"steps": active.Rows()},
	})

	batch, err := s.runBatch(ctx, runID, "power_flow", s.net, active, reactive)
	if err != nil {
		return nil, err
	}

	result := &PowerFlowResult{
		Batch:        batch,
		NodeVoltages: NodeVoltageSummary(batch),
		LineStats:    LineStatistics(batch),
	}
	s.finishRun(ctx, runID, "power_flow", startedAt, struct {
		NodeVoltages []NodeVoltageRow `json:"node_voltages"`
		LineStats    []LineStatRow    `json:"line_stats"`
	}{result.NodeVoltages, result.LineStats})
	return result, nil
}

// runBatch solves net once per profile timestamp with a bounded worker pool.
// Steps land in the result at their timestamp index, so the output order is
// deterministic no matter how workers interleave.
func (s *Simulator) runBatch(ctx context.Context, runID, stage string, net *Network, active, reactive *profile.Profile) (*BatchResult, error) {
	rows := active.Rows()
	batch := &BatchResult{
		Timestamps: append([]time.Time(nil), active.Timestamps...),
		Steps:      make([]*StepResult, rows),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	sem := make(chan struct{}, s.maxConcurrent)
	for t := 0; t < rows; t++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			fail(ctx.Err())
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()

			step, err := s.solveStep(ctx, runID, stage, net, active, reactive, t)
			if err != nil {
				fail(fmt.Errorf("timestamp %s: %w", batch.Timestamps[t].Format(time.RFC3339), err))
				return
			}
			batch.Steps[t] = step
		}(t)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return batch, nil
}

// solveStep builds the load update for one timestamp and runs the solver,
// recording metrics and emitting a solve_step event.
func (s *Simulator) solveStep(ctx context.Context, runID, stage string, net *Network, active, reactive *profile.Profile, t int) (*StepResult, error) {
	update := StepUpdate{
		P: make(map[int64]float64, active.Columns()),
		Q: make(map[int64]float64, reactive.Columns()),
	}
	for c, id := range active.IDs {
		update.P[id] = active.Values[t][c]
	}
	for c, id := range reactive.IDs {
		update.Q[id] = reactive.Values[t][c]
	}

	s.metrics.SolveStarted()
	start := time.Now()
	step, err := s.solver.Solve(ctx, net, update)
	latency := time.Since(start)
	s.metrics.SolveFinished()

	meta := map[string]interface{}{"duration_ms": latency.Milliseconds()}
	if err != nil {
		s.metrics.RecordSolve(runID, stage, latency, "error")
		if errors.Is(err, ErrNotConverged) {
			s.metrics.IncrementConvergenceFailures(runID, stage)
		}
		meta["error"] = err.Error()
		s.emitter.Emit(emit.Event{RunID: runID, Step: t + 1, Stage: stage, Msg: "solve_step", Meta: meta})
		return nil, err
	}

	s.metrics.RecordSolve(runID, stage, latency, "success")
	s.metrics.RecordIterations(runID, stage, step.Iterations)
	meta["iterations"] = step.Iterations
	s.emitter.Emit(emit.Event{RunID: runID, Step: t + 1, Stage: stage, Msg: "solve_step", Meta: meta})
	return step, nil
}
