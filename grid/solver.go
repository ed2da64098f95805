package grid

import (
	"context"
	"time"
)

// StepUpdate overrides load setpoints for a single power-flow solve.
// P and Q map sym_load IDs to active/reactive power in watts/var. A load
// absent from a map keeps its network base value, so an active-power-only
// update leaves reactive power untouched.
type StepUpdate struct {
	P map[int64]float64
	Q map[int64]float64
}

// StepResult holds the solved operating point for one timestamp, in columnar
// form. Line arrays cover every line in the network, in network order;
// de-energized lines report zero flow and loading.
type StepResult struct {
	NodeIDs []int64
	// U is the line-to-line voltage magnitude per node, in volts.
	U []float64
	// UPu is the voltage magnitude per node, per unit of u_rated.
	UPu []float64

	LineIDs []int64
	// Loading is current loading relative to the line's rated current.
	Loading []float64
	// PFrom/QFrom and PTo/QTo are three-phase power entering the line at each
	// side, in watts/var. PFrom+PTo is the line's active loss.
	PFrom []float64
	QFrom []float64
	PTo   []float64
	QTo   []float64
	// PLoss is the active power dissipated in the line, in watts.
	PLoss []float64

	// Iterations is the solver iteration count for this step.
	Iterations int
}

// MaxUPu returns the highest per-unit voltage and its node ID.
func (r *StepResult) MaxUPu() (float64, int64) {
	best, id := r.UPu[0], r.NodeIDs[0]
	for i, v := range r.UPu {
		if v > best {
			best, id = v, r.NodeIDs[i]
		}
	}
	return best, id
}

// MinUPu returns the lowest per-unit voltage and its node ID.
func (r *StepResult) MinUPu() (float64, int64) {
	best, id := r.UPu[0], r.NodeIDs[0]
	for i, v := range r.UPu {
		if v < best {
			best, id = v, r.NodeIDs[i]
		}
	}
	return best, id
}

// BatchResult holds one StepResult per profile timestamp, in timestamp order.
type BatchResult struct {
	Timestamps []time.Time
	Steps      []*StepResult
}

// Solver computes the steady-state operating point of a network.
//
// Implementations must be safe for concurrent use: the batch runner calls
// Solve from multiple goroutines with distinct updates. The network is shared
// and must not be mutated.
type Solver interface {
	Solve(ctx context.Context, net *Network, update StepUpdate) (*StepResult, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, net *Network, update StepUpdate) (*StepResult, error)

// Solve implements Solver.
func (f SolverFunc) Solve(ctx context.Context, net *Network, update StepUpdate) (*StepResult, error) {
	return f(ctx, net, update)
}
