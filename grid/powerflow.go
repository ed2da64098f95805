package grid

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
)

const (
	defaultMaxIterations = 100
	defaultTolerance     = 1e-8
	sqrt3                = 1.7320508075688772
)

// SweepSolver is the reference power-flow implementation: an iterative
// backward/forward sweep over the radial network.
//
// Each iteration computes load currents from the present voltage estimate,
// accumulates branch currents from the leaves toward the source (backward
// sweep), then updates node voltages from the source toward the leaves using
// the branch impedance drops (forward sweep). The method converges quickly on
// distribution feeders, where R/X ratios are high and the network is a tree.
//
// Voltages are solved per phase on the line-to-neutral equivalent; results
// are reported line-to-line. Line shunt capacitance is neglected, which is
// accurate for LV cable runs.
//
// The zero value solves with default iteration and tolerance settings.
type SweepSolver struct {
	// MaxIterations bounds the sweep count. Default 100.
	MaxIterations int
	// Tolerance is the per-unit voltage change below which the solution is
	// considered converged. Default 1e-8.
	Tolerance float64
}

// branch is an oriented tree edge from parent to child.
type branch struct {
	id      int64
	parent  int // node index
	child   int // node index
	z       complex128 // series impedance, child-side basis
	ratio   float64    // parent-to-child voltage ratio (1 for lines)
	lineIdx int        // index into net.Lines, -1 for transformers
	forward bool       // child corresponds to the component's to_node
	current complex128 // child-side phase current, parent -> child
}

// Solve computes the operating point for one set of load values.
//
// Returns ErrIDNotFound when the update references an unknown sym_load,
// ErrGraphNotConnected/ErrGraphCycle when the energized network is not a
// rooted tree, and ErrNotConverged when the sweep does not settle within
// MaxIterations.
func (s *SweepSolver) Solve(ctx context.Context, net *Network, update StepUpdate) (*StepResult, error) {
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}

	if len(net.Sources) != 1 {
		return nil, fmt.Errorf("%d sources: %w", len(net.Sources), ErrTooManySources)
	}
	src := net.Sources[0]

	nodeIdx := make(map[int64]int, len(net.Nodes))
	for i, nd := range net.Nodes {
		nodeIdx[nd.ID] = i
	}
	rootIdx, ok := nodeIdx[src.Node]
	if !ok {
		return nil, fmt.Errorf("source node %d: %w", src.Node, ErrIDNotFound)
	}

	branches, order, err := buildTree(net, nodeIdx, rootIdx)
	if err != nil {
		return nil, err
	}

	// Per-node three-phase apparent power demand.
	demand := make([]complex128, len(net.Nodes))
	for _, ld := range net.SymLoads {
		if ld.Status != 1 {
			continue
		}
		p, q := ld.PSpecified, ld.QSpecified
		if v, ok := update.P[ld.ID]; ok {
			p = v
		}
		if v, ok := update.Q[ld.ID]; ok {
			q = v
		}
		demand[nodeIdx[ld.Node]] += complex(p, q)
	}
	if err := checkUpdateIDs(net, update); err != nil {
		return nil, err
	}

	// Phase voltages, initialized flat at nominal.
	v := make([]complex128, len(net.Nodes))
	for i, nd := range net.Nodes {
		v[i] = complex(nd.URated/sqrt3, 0)
	}
	vRoot := complex(src.URef*net.Nodes[rootIdx].URated/sqrt3, 0)
	v[rootIdx] = vRoot

	// Branch entering each node, ordered parent-first.
	inBranch := make([]int, len(net.Nodes))
	for i := range inBranch {
		inBranch[i] = -1
	}
	for bi, b := range branches {
		inBranch[b.child] = bi
	}

	iterations := 0
	for iterations = 1; iterations <= maxIter; iterations++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Backward sweep: accumulate child-side currents toward the root.
		acc := make([]complex128, len(net.Nodes))
		for i := range acc {
			if demand[i] != 0 {
				// Per-phase load current from three-phase demand.
				acc[i] = cmplx.Conj(demand[i] / (3 * v[i]))
			}
		}
		for oi := len(order) - 1; oi >= 1; oi-- {
			node := order[oi]
			bi := inBranch[node]
			branches[bi].current = acc[node]
			// Transformer ratio scales the current seen on the parent side.
			acc[branches[bi].parent] += acc[node] / complex(branches[bi].ratio, 0)
		}

		// Forward sweep: push voltages from the root outward.
		maxDelta := 0.0
		for _, node := range order[1:] {
			b := branches[inBranch[node]]
			next := v[b.parent]/complex(b.ratio, 0) - b.z*b.current
			delta := cmplx.Abs(next-v[node]) / (net.Nodes[node].URated / sqrt3)
			if delta > maxDelta {
				maxDelta = delta
			}
			v[node] = next
		}

		if maxDelta < tol {
			break
		}
		if iterations == maxIter {
			return nil, fmt.Errorf("no convergence after %d iterations: %w", maxIter, ErrNotConverged)
		}
	}

	return assembleResult(net, nodeIdx, branches, v, iterations), nil
}

// buildTree orients the energized branches into a tree rooted at the source
// node and returns them with a BFS node order (root first).
func buildTree(net *Network, nodeIdx map[int64]int, rootIdx int) ([]branch, []int, error) {
	type halfEdge struct {
		peer int
		br   branch
	}
	adj := make([][]halfEdge, len(net.Nodes))
	energized := 0

	addEdge := func(b branch, from, to int) {
		fwd := b
		fwd.parent, fwd.child, fwd.forward = from, to, true
		rev := b
		rev.parent, rev.child, rev.forward = to, from, false
		if b.ratio != 1 {
			// Traversed from the LV side the ratio inverts and the series
			// impedance moves to the other voltage basis.
			rev.ratio = 1 / b.ratio
			rev.z = b.z * complex(b.ratio*b.ratio, 0)
		}
		adj[from] = append(adj[from], halfEdge{peer: to, br: fwd})
		adj[to] = append(adj[to], halfEdge{peer: from, br: rev})
		energized++
	}

	for li, l := range net.Lines {
		if !l.Energized() {
			continue
		}
		addEdge(branch{
			id:      l.ID,
			z:       complex(l.R1, l.X1),
			ratio:   1,
			lineIdx: li,
		}, nodeIdx[l.FromNode], nodeIdx[l.ToNode])
	}
	for _, tr := range net.Transformers {
		if !tr.Energized() {
			continue
		}
		// Tap changer shifts the side-1 voltage; impedance from the
		// short-circuit test, referred to side 2.
		u1 := tr.U1 + float64(tr.TapPos)*tr.TapSize
		zBase := tr.U2 * tr.U2 / tr.SN
		r := tr.PK / tr.SN * zBase
		zAbs := tr.UK * zBase
		x := math.Sqrt(math.Max(zAbs*zAbs-r*r, 0))
		addEdge(branch{
			id:      tr.ID,
			z:       complex(r, x),
			ratio:   u1 / tr.U2,
			lineIdx: -1,
		}, nodeIdx[tr.FromNode], nodeIdx[tr.ToNode])
	}

	visited := make([]bool, len(net.Nodes))
	visited[rootIdx] = true
	order := []int{rootIdx}
	var branches []branch
	for qi := 0; qi < len(order); qi++ {
		node := order[qi]
		for _, he := range adj[node] {
			if he.br.parent != node || visited[he.peer] {
				continue
			}
			visited[he.peer] = true
			order = append(order, he.peer)
			branches = append(branches, he.br)
		}
	}

	if len(order) != len(net.Nodes) {
		return nil, nil, fmt.Errorf("%d of %d nodes energized: %w", len(order), len(net.Nodes), ErrGraphNotConnected)
	}
	if energized != len(net.Nodes)-1 {
		return nil, nil, fmt.Errorf("%d energized branches for %d nodes: %w", energized, len(net.Nodes), ErrGraphCycle)
	}
	return branches, order, nil
}

// checkUpdateIDs rejects updates that reference unknown sym_loads.
func checkUpdateIDs(net *Network, update StepUpdate) error {
	known := make(map[int64]struct{}, len(net.SymLoads))
	for _, ld := range net.SymLoads {
		known[ld.ID] = struct{}{}
	}
	for id := range update.P {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("update sym_load %d: %w", id, ErrIDNotFound)
		}
	}
	for id := range update.Q {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("update sym_load %d: %w", id, ErrIDNotFound)
		}
	}
	return nil
}

// assembleResult converts the solved phase voltages and branch currents into
// the columnar StepResult.
func assembleResult(net *Network, nodeIdx map[int64]int, branches []branch, v []complex128, iterations int) *StepResult {
	res := &StepResult{
		NodeIDs:    make([]int64, len(net.Nodes)),
		U:          make([]float64, len(net.Nodes)),
		UPu:        make([]float64, len(net.Nodes)),
		LineIDs:    make([]int64, len(net.Lines)),
		Loading:    make([]float64, len(net.Lines)),
		PFrom:      make([]float64, len(net.Lines)),
		QFrom:      make([]float64, len(net.Lines)),
		PTo:        make([]float64, len(net.Lines)),
		QTo:        make([]float64, len(net.Lines)),
		PLoss:      make([]float64, len(net.Lines)),
		Iterations: iterations,
	}
	for i, nd := range net.Nodes {
		res.NodeIDs[i] = nd.ID
		res.U[i] = cmplx.Abs(v[i]) * sqrt3
		res.UPu[i] = res.U[i] / nd.URated
	}
	for li, l := range net.Lines {
		res.LineIDs[li] = l.ID
	}

	for _, b := range branches {
		if b.lineIdx < 0 {
			continue
		}
		l := net.Lines[b.lineIdx]
		fromIdx, toIdx := nodeIdx[l.FromNode], nodeIdx[l.ToNode]
		// Branch current is oriented parent->child; express it entering the
		// line's from side.
		iFrom := b.current
		if !b.forward {
			iFrom = -b.current
		}
		sFrom := 3 * v[fromIdx] * cmplx.Conj(iFrom)
		sTo := 3 * v[toIdx] * cmplx.Conj(-iFrom)
		res.PFrom[b.lineIdx] = real(sFrom)
		res.QFrom[b.lineIdx] = imag(sFrom)
		res.PTo[b.lineIdx] = real(sTo)
		res.QTo[b.lineIdx] = imag(sTo)
		res.PLoss[b.lineIdx] = real(sFrom) + real(sTo)
		res.Loading[b.lineIdx] = cmplx.Abs(iFrom) / l.IN
	}
	return res
}
