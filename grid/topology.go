package grid

import (
	"fmt"
	"sort"
)

// Topology is a validated undirected graph of a distribution network.
//
// Vertices are busbars/nodes, edges are switchable branches (lines and the
// transformer). Every Topology satisfies the following invariants, enforced
// at construction:
//   - vertex and edge IDs are unique and mutually disjoint
//   - each edge has two known endpoints and an enabled flag
//   - the source vertex exists
//   - the enabled subgraph is fully connected
//   - the enabled subgraph is acyclic (radial operation)
//
// Topology is immutable after construction; analyses that need to toggle
// edges work on candidate edge sets, never on the Topology itself.
type Topology struct {
	vertexIDs []int64
	edgeIDs   []int64
	pairs     [][2]int64
	enabled   []bool
	source    int64

	vertexSet map[int64]struct{}
	edgeIndex map[int64]int
}

// NewTopology validates the inputs and builds a Topology.
//
// Parameters mirror the network description: parallel slices of edge IDs,
// endpoint pairs, and enabled flags, plus the set of vertex IDs and the
// source vertex feeding the network.
//
// Returns ErrIDNotUnique, ErrInputLengthMismatch, ErrIDNotFound,
// ErrGraphNotConnected, or ErrGraphCycle on invalid input.
func NewTopology(vertexIDs, edgeIDs []int64, pairs [][2]int64, enabled []bool, source int64) (*Topology, error) {
	vertexSet := make(map[int64]struct{}, len(vertexIDs))
	for _, v := range vertexIDs {
		if _, dup := vertexSet[v]; dup {
			return nil, fmt.Errorf("duplicate vertex id %d: %w", v, ErrIDNotUnique)
		}
		vertexSet[v] = struct{}{}
	}

	edgeIndex := make(map[int64]int, len(edgeIDs))
	for i, e := range edgeIDs {
		if _, dup := edgeIndex[e]; dup {
			return nil, fmt.Errorf("duplicate edge id %d: %w", e, ErrIDNotUnique)
		}
		if _, clash := vertexSet[e]; clash {
			return nil, fmt.Errorf("edge id %d collides with a vertex id: %w", e, ErrIDNotUnique)
		}
		edgeIndex[e] = i
	}

	if len(pairs) != len(edgeIDs) {
		return nil, fmt.Errorf("%d edge ids but %d vertex pairs: %w", len(edgeIDs), len(pairs), ErrInputLengthMismatch)
	}
	for _, p := range pairs {
		if _, ok := vertexSet[p[0]]; !ok {
			return nil, fmt.Errorf("edge endpoint %d is not a vertex: %w", p[0], ErrIDNotFound)
		}
		if _, ok := vertexSet[p[1]]; !ok {
			return nil, fmt.Errorf("edge endpoint %d is not a vertex: %w", p[1], ErrIDNotFound)
		}
	}
	if len(enabled) != len(edgeIDs) {
		return nil, fmt.Errorf("%d edge ids but %d enabled flags: %w", len(edgeIDs), len(enabled), ErrInputLengthMismatch)
	}
	if _, ok := vertexSet[source]; !ok {
		return nil, fmt.Errorf("source vertex %d: %w", source, ErrIDNotFound)
	}

	t := &Topology{
		vertexIDs: append([]int64(nil), vertexIDs...),
		edgeIDs:   append([]int64(nil), edgeIDs...),
		pairs:     append([][2]int64(nil), pairs...),
		enabled:   append([]bool(nil), enabled...),
		source:    source,
		vertexSet: vertexSet,
		edgeIndex: edgeIndex,
	}

	if err := t.checkRadial(t.enabled); err != nil {
		return nil, err
	}
	return t, nil
}

// Source returns the source vertex ID.
func (t *Topology) Source() int64 { return t.source }

// VertexIDs returns the vertex IDs in input order.
func (t *Topology) VertexIDs() []int64 { return append([]int64(nil), t.vertexIDs...) }

// EdgeIDs returns the edge IDs in input order.
func (t *Topology) EdgeIDs() []int64 { return append([]int64(nil), t.edgeIDs...) }

// EdgeEnabled reports whether the given edge is enabled.
// Returns ErrIDNotFound for unknown edge IDs.
func (t *Topology) EdgeEnabled(edgeID int64) (bool, error) {
	i, ok := t.edgeIndex[edgeID]
	if !ok {
		return false, fmt.Errorf("edge %d: %w", edgeID, ErrIDNotFound)
	}
	return t.enabled[i], nil
}

// DownstreamVertices returns the vertices supplied through the given edge:
// the connected component that loses its path to the source when the edge is
// removed. The result is sorted ascending.
//
// A disabled edge supplies nothing and yields an empty result, as does an
// edge whose removal leaves the graph connected.
func (t *Topology) DownstreamVertices(edgeID int64) ([]int64, error) {
	idx, ok := t.edgeIndex[edgeID]
	if !ok {
		return nil, fmt.Errorf("edge %d: %w", edgeID, ErrIDNotFound)
	}
	if !t.enabled[idx] {
		return []int64{}, nil
	}

	reach := t.reachable(t.enabled, idx)
	down := make([]int64, 0)
	for _, v := range t.vertexIDs {
		if _, ok := reach[v]; !ok {
			down = append(down, v)
		}
	}
	sort.Slice(down, func(i, j int) bool { return down[i] < down[j] })
	return down, nil
}

// AlternativeEdges returns the disabled edges that could restore full
// connectivity, without creating a cycle, if the given enabled edge went out
// of service. Results follow edge input order. An empty slice means the
// outage cannot be reconnected.
//
// Returns ErrIDNotFound for unknown IDs and ErrEdgeDisabled when the given
// edge is already out of service.
func (t *Topology) AlternativeEdges(edgeID int64) ([]int64, error) {
	idx, ok := t.edgeIndex[edgeID]
	if !ok {
		return nil, fmt.Errorf("edge %d: %w", edgeID, ErrIDNotFound)
	}
	if !t.enabled[idx] {
		return nil, fmt.Errorf("edge %d: %w", edgeID, ErrEdgeDisabled)
	}

	alts := make([]int64, 0)
	candidate := make([]bool, len(t.enabled))
	for i, id := range t.edgeIDs {
		if t.enabled[i] {
			continue
		}
		copy(candidate, t.enabled)
		candidate[idx] = false
		candidate[i] = true
		if t.checkRadial(candidate) == nil {
			alts = append(alts, id)
		}
	}
	return alts, nil
}

// checkRadial verifies that the subgraph selected by enabled is fully
// connected and acyclic.
func (t *Topology) checkRadial(enabled []bool) error {
	reach := t.reachable(enabled, -1)
	if len(reach) != len(t.vertexIDs) {
		return ErrGraphNotConnected
	}
	// A connected graph on n vertices is a tree iff it has n-1 edges.
	count := 0
	for _, on := range enabled {
		if on {
			count++
		}
	}
	if count != len(t.vertexIDs)-1 {
		return ErrGraphCycle
	}
	return nil
}

// reachable runs a BFS from the source over the enabled edges, skipping the
// edge at skipIdx (-1 to skip none), and returns the set of visited vertices.
func (t *Topology) reachable(enabled []bool, skipIdx int) map[int64]struct{} {
	adj := make(map[int64][]int64, len(t.vertexIDs))
	for i, p := range t.pairs {
		if i == skipIdx || !enabled[i] {
			continue
		}
		adj[p[0]] = append(adj[p[0]], p[1])
		adj[p[1]] = append(adj[p[1]], p[0])
	}

	seen := map[int64]struct{}{t.source: {}}
	queue := []int64{t.source}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range adj[v] {
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				queue = append(queue, w)
			}
		}
	}
	return seen
}
