package grid

import (
	"context"
	"errors"
	"math"
	"testing"
)

func solveOrFail(t *testing.T, net *Network, update StepUpdate) *StepResult {
	t.Helper()
	solver := &SweepSolver{}
	step, err := solver.Solve(context.Background(), net, update)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return step
}

func TestSweepSolver_NoLoad(t *testing.T) {
	net := testNetwork()
	update := StepUpdate{
		P: map[int64]float64{401: 0, 402: 0, 403: 0, 404: 0},
		Q: map[int64]float64{401: 0, 402: 0, 403: 0, 404: 0},
	}
	step := solveOrFail(t, net, update)

	for i, id := range step.NodeIDs {
		if math.Abs(step.UPu[i]-1.0) > 1e-6 {
			t.Errorf("node %d: u_pu = %v, want 1.0 at zero load", id, step.UPu[i])
		}
	}
	for i, id := range step.LineIDs {
		if step.Loading[i] != 0 && id != 205 {
			t.Errorf("line %d: loading = %v, want 0 at zero load", id, step.Loading[i])
		}
	}
}

func TestSweepSolver_WithLoad(t *testing.T) {
	net := testNetwork()
	step := solveOrFail(t, net, StepUpdate{})

	// Voltage drops below nominal at every load node, deepest at the feeder
	// ends (nodes 4 and 6).
	nodeUPu := make(map[int64]float64, len(step.NodeIDs))
	for i, id := range step.NodeIDs {
		nodeUPu[id] = step.UPu[i]
	}
	for _, id := range []int64{3, 4, 5, 6} {
		if nodeUPu[id] >= 1.0 {
			t.Errorf("node %d: u_pu = %v, want < 1.0 under load", id, nodeUPu[id])
		}
	}
	if nodeUPu[4] >= nodeUPu[3] {
		t.Errorf("feeder end u_pu %v should be below feeder head %v", nodeUPu[4], nodeUPu[3])
	}

	lineIdx := make(map[int64]int, len(step.LineIDs))
	for i, id := range step.LineIDs {
		lineIdx[id] = i
	}
	for _, id := range []int64{201, 202, 203, 204} {
		i := lineIdx[id]
		if step.Loading[i] <= 0 {
			t.Errorf("line %d: loading = %v, want > 0", id, step.Loading[i])
		}
		if step.PLoss[i] <= 0 {
			t.Errorf("line %d: loss = %v, want > 0", id, step.PLoss[i])
		}
		// Active loss is the power balance of both line ends.
		if diff := math.Abs(step.PFrom[i] + step.PTo[i] - step.PLoss[i]); diff > 1e-6 {
			t.Errorf("line %d: PFrom+PTo-PLoss = %v, want 0", id, diff)
		}
	}

	// The open tie line carries nothing.
	i := lineIdx[205]
	if step.Loading[i] != 0 || step.PLoss[i] != 0 {
		t.Errorf("open line 205: loading=%v loss=%v, want 0", step.Loading[i], step.PLoss[i])
	}

	// Feeder head power covers its two households plus losses.
	head := step.PFrom[lineIdx[201]]
	if head <= 20000 {
		t.Errorf("feeder 201 head power = %v, want > 20kW", head)
	}

	if step.Iterations < 2 {
		t.Errorf("iterations = %d, want at least 2 under load", step.Iterations)
	}
}

func TestSweepSolver_UpdateOverridesBase(t *testing.T) {
	net := testNetwork()
	base := solveOrFail(t, net, StepUpdate{})
	doubled := solveOrFail(t, net, StepUpdate{
		P: map[int64]float64{401: 20000, 402: 20000, 403: 20000, 404: 20000},
	})

	baseMin, _ := base.MinUPu()
	doubledMin, _ := doubled.MinUPu()
	if doubledMin >= baseMin {
		t.Errorf("doubled load min u_pu %v should be below base %v", doubledMin, baseMin)
	}
}

func TestSweepSolver_TapPositionShiftsVoltage(t *testing.T) {
	lower := testNetwork()
	lower.Transformers[0].TapPos = -2 // lower MV-side ratio, higher LV voltage
	higher := testNetwork()
	higher.Transformers[0].TapPos = 2

	lowStep := solveOrFail(t, lower, StepUpdate{})
	highStep := solveOrFail(t, higher, StepUpdate{})

	lowMin, _ := lowStep.MinUPu()
	highMin, _ := highStep.MinUPu()
	if lowMin <= highMin {
		t.Errorf("tap -2 min u_pu %v should exceed tap +2 min u_pu %v", lowMin, highMin)
	}
}

func TestSweepSolver_Errors(t *testing.T) {
	t.Run("unknown update id", func(t *testing.T) {
		solver := &SweepSolver{}
		_, err := solver.Solve(context.Background(), testNetwork(), StepUpdate{
			P: map[int64]float64{999: 1000},
		})
		if !errors.Is(err, ErrIDNotFound) {
			t.Errorf("error = %v, want ErrIDNotFound", err)
		}
	})

	t.Run("disconnected network", func(t *testing.T) {
		net := testNetwork()
		net.Lines[3].ToStatus = 0
		solver := &SweepSolver{}
		_, err := solver.Solve(context.Background(), net, StepUpdate{})
		if !errors.Is(err, ErrGraphNotConnected) {
			t.Errorf("error = %v, want ErrGraphNotConnected", err)
		}
	})

	t.Run("meshed network", func(t *testing.T) {
		net := testNetwork()
		net.Lines[4].ToStatus = 1
		solver := &SweepSolver{}
		_, err := solver.Solve(context.Background(), net, StepUpdate{})
		if !errors.Is(err, ErrGraphCycle) {
			t.Errorf("error = %v, want ErrGraphCycle", err)
		}
	})

	t.Run("iteration budget", func(t *testing.T) {
		solver := &SweepSolver{MaxIterations: 1}
		_, err := solver.Solve(context.Background(), testNetwork(), StepUpdate{})
		if !errors.Is(err, ErrNotConverged) {
			t.Errorf("error = %v, want ErrNotConverged", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		solver := &SweepSolver{}
		_, err := solver.Solve(ctx, testNetwork(), StepUpdate{})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}
