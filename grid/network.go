package grid

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// NetworkNode is a busbar in the network.
type NetworkNode struct {
	ID     int64   `json:"id"`
	URated float64 `json:"u_rated"`
}

// Line is a cable or overhead line between two nodes.
//
// FromStatus/ToStatus are 1 when the corresponding side is connected. A line
// carries power only when both sides are connected.
type Line struct {
	ID         int64   `json:"id"`
	FromNode   int64   `json:"from_node"`
	ToNode     int64   `json:"to_node"`
	FromStatus int     `json:"from_status"`
	ToStatus   int     `json:"to_status"`
	R1         float64 `json:"r1"`
	X1         float64 `json:"x1"`
	C1         float64 `json:"c1"`
	IN         float64 `json:"i_n"`
}

// Energized reports whether the line is connected on both sides.
func (l Line) Energized() bool { return l.FromStatus == 1 && l.ToStatus == 1 }

// Source is the external grid connection.
type Source struct {
	ID     int64   `json:"id"`
	Node   int64   `json:"node"`
	Status int     `json:"status"`
	URef   float64 `json:"u_ref"`
}

// SymLoad is a symmetric load (a household, in LV grids).
type SymLoad struct {
	ID         int64   `json:"id"`
	Node       int64   `json:"node"`
	Status     int     `json:"status"`
	Type       int     `json:"type"`
	PSpecified float64 `json:"p_specified"`
	QSpecified float64 `json:"q_specified"`
}

// Transformer couples the MV side to the LV busbar.
//
// U1/U2 are rated voltages of both sides, SN the rated power, UK the relative
// short-circuit voltage, and PK the short-circuit losses. The tap changer
// moves the side-1 voltage in steps of TapSize volts per position.
type Transformer struct {
	ID         int64   `json:"id"`
	FromNode   int64   `json:"from_node"`
	ToNode     int64   `json:"to_node"`
	FromStatus int     `json:"from_status"`
	ToStatus   int     `json:"to_status"`
	U1         float64 `json:"u1"`
	U2         float64 `json:"u2"`
	SN         float64 `json:"sn"`
	UK         float64 `json:"uk"`
	PK         float64 `json:"pk"`
	TapSide    int     `json:"tap_side"`
	TapPos     int     `json:"tap_pos"`
	TapMin     int     `json:"tap_min"`
	TapMax     int     `json:"tap_max"`
	TapSize    float64 `json:"tap_size"`
}

// Energized reports whether the transformer is connected on both sides.
func (t Transformer) Energized() bool { return t.FromStatus == 1 && t.ToStatus == 1 }

// Network is the static model of a distribution network.
type Network struct {
	Nodes        []NetworkNode `json:"node"`
	Lines        []Line        `json:"line"`
	Sources      []Source      `json:"source"`
	SymLoads     []SymLoad     `json:"sym_load"`
	Transformers []Transformer `json:"transformer"`
}

// Metadata describes the LV grid structure around the static model.
type Metadata struct {
	LVBusbar    int64   `json:"lv_busbar"`
	LVFeeders   []int64 `json:"lv_feeders"`
	MVSourceBus int64   `json:"mv_source_node"`
}

// networkDocument is the serialized dataset envelope.
type networkDocument struct {
	Version    string          `json:"version"`
	Type       string          `json:"type"`
	IsBatch    bool            `json:"is_batch"`
	Attributes map[string]any  `json:"attributes"`
	Data       json.RawMessage `json:"data"`
}

// ParseNetwork reads a serialized network dataset.
//
// The format is the envelope {"version", "type", "is_batch", "data": {...}}
// with component arrays under "data". A bare component object (no envelope)
// is accepted as well.
func ParseNetwork(r io.Reader) (*Network, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read network data: %w", err)
	}

	var doc networkDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode network data: %w", err)
	}
	payload := doc.Data
	if len(payload) == 0 {
		payload = raw
	}

	var net Network
	if err := json.Unmarshal(payload, &net); err != nil {
		return nil, fmt.Errorf("decode network components: %w", err)
	}
	return &net, nil
}

// ParseNetworkFile reads a serialized network dataset from a file.
func ParseNetworkFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network data: %w", err)
	}
	defer f.Close()
	return ParseNetwork(f)
}

// ParseMetadata reads the grid metadata document.
func ParseMetadata(r io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &meta, nil
}

// ParseMetadataFile reads the grid metadata document from a file.
func ParseMetadataFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()
	return ParseMetadata(f)
}

// Clone returns a deep copy of the network. Contingency and tap scans mutate
// copies, never the original.
func (n *Network) Clone() *Network {
	out := &Network{
		Nodes:        append([]NetworkNode(nil), n.Nodes...),
		Lines:        append([]Line(nil), n.Lines...),
		Sources:      append([]Source(nil), n.Sources...),
		SymLoads:     append([]SymLoad(nil), n.SymLoads...),
		Transformers: append([]Transformer(nil), n.Transformers...),
	}
	return out
}

// LineByID returns a pointer into the network's line slice.
// Returns ErrIDNotFound for unknown IDs.
func (n *Network) LineByID(id int64) (*Line, error) {
	for i := range n.Lines {
		if n.Lines[i].ID == id {
			return &n.Lines[i], nil
		}
	}
	return nil, fmt.Errorf("line %d: %w", id, ErrIDNotFound)
}

// Validate checks referential integrity of the static model: every component
// must point at existing nodes, statuses must be 0 or 1, and ratings must be
// positive. This is the precondition for building a Topology or running the
// solver.
func (n *Network) Validate() error {
	nodeSet := make(map[int64]struct{}, len(n.Nodes))
	for _, nd := range n.Nodes {
		if _, dup := nodeSet[nd.ID]; dup {
			return fmt.Errorf("duplicate node id %d: %w", nd.ID, ErrIDNotUnique)
		}
		if nd.URated <= 0 {
			return &SimulationError{
				Message: fmt.Sprintf("node %d has non-positive u_rated", nd.ID),
				Code:    "INVALID_COMPONENT",
			}
		}
		nodeSet[nd.ID] = struct{}{}
	}

	checkStatus := func(kind string, id int64, status int) error {
		if status != 0 && status != 1 {
			return &SimulationError{
				Message: fmt.Sprintf("%s %d has status %d, want 0 or 1", kind, id, status),
				Code:    "INVALID_COMPONENT",
			}
		}
		return nil
	}
	checkNode := func(kind string, id, node int64) error {
		if _, ok := nodeSet[node]; !ok {
			return fmt.Errorf("%s %d references unknown node %d: %w", kind, id, node, ErrIDNotFound)
		}
		return nil
	}

	for _, l := range n.Lines {
		if err := checkNode("line", l.ID, l.FromNode); err != nil {
			return err
		}
		if err := checkNode("line", l.ID, l.ToNode); err != nil {
			return err
		}
		if err := checkStatus("line", l.ID, l.FromStatus); err != nil {
			return err
		}
		if err := checkStatus("line", l.ID, l.ToStatus); err != nil {
			return err
		}
		if l.IN <= 0 {
			return &SimulationError{
				Message: fmt.Sprintf("line %d has non-positive rated current", l.ID),
				Code:    "INVALID_COMPONENT",
			}
		}
	}
	for _, s := range n.Sources {
		if err := checkNode("source", s.ID, s.Node); err != nil {
			return err
		}
		if err := checkStatus("source", s.ID, s.Status); err != nil {
			return err
		}
	}
	for _, ld := range n.SymLoads {
		if err := checkNode("sym_load", ld.ID, ld.Node); err != nil {
			return err
		}
		if err := checkStatus("sym_load", ld.ID, ld.Status); err != nil {
			return err
		}
	}
	for _, tr := range n.Transformers {
		if err := checkNode("transformer", tr.ID, tr.FromNode); err != nil {
			return err
		}
		if err := checkNode("transformer", tr.ID, tr.ToNode); err != nil {
			return err
		}
		if err := checkStatus("transformer", tr.ID, tr.FromStatus); err != nil {
			return err
		}
		if err := checkStatus("transformer", tr.ID, tr.ToStatus); err != nil {
			return err
		}
		if tr.SN <= 0 || tr.U1 <= 0 || tr.U2 <= 0 {
			return &SimulationError{
				Message: fmt.Sprintf("transformer %d has non-positive ratings", tr.ID),
				Code:    "INVALID_COMPONENT",
			}
		}
		// tap_min may be numerically larger than tap_max (the highest tap
		// position gives the highest ratio); either ordering is accepted.
	}
	return nil
}

// Topology derives the switchable graph: all lines plus the transformer,
// rooted at the source node. The network must already pass Validate.
func (n *Network) Topology() (*Topology, error) {
	if len(n.Sources) != 1 {
		return nil, fmt.Errorf("%d sources: %w", len(n.Sources), ErrTooManySources)
	}

	vertexIDs := make([]int64, 0, len(n.Nodes))
	for _, nd := range n.Nodes {
		vertexIDs = append(vertexIDs, nd.ID)
	}

	edgeIDs := make([]int64, 0, len(n.Lines)+len(n.Transformers))
	pairs := make([][2]int64, 0, cap(edgeIDs))
	enabled := make([]bool, 0, cap(edgeIDs))
	for _, l := range n.Lines {
		edgeIDs = append(edgeIDs, l.ID)
		pairs = append(pairs, [2]int64{l.FromNode, l.ToNode})
		enabled = append(enabled, l.Energized())
	}
	for _, tr := range n.Transformers {
		edgeIDs = append(edgeIDs, tr.ID)
		pairs = append(pairs, [2]int64{tr.FromNode, tr.ToNode})
		enabled = append(enabled, tr.Energized())
	}

	return NewTopology(vertexIDs, edgeIDs, pairs, enabled, n.Sources[0].Node)
}
