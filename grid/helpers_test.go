package grid

import (
	"testing"
	"time"

	"github.com/stroomnet/gridsim/grid/profile"
)

// testNetwork builds a small LV grid used across the package tests:
//
//	          (1) MV
//	           |
//	         [100] transformer 10.5kV/400V
//	           |
//	          (2) LV busbar
//	         /   \
//	     [201]   [203]      feeders
//	       |       |
//	      (3)     (5)
//	       |       |
//	     [202]   [204]
//	       |       |
//	      (4)-----(6)
//	          [205] open tie
//
// Four households (sym_loads 401-404) sit on nodes 3-6.
func testNetwork() *Network {
	return &Network{
		Nodes: []NetworkNode{
			{ID: 1, URated: 10500},
			{ID: 2, URated: 400},
			{ID: 3, URated: 400},
			{ID: 4, URated: 400},
			{ID: 5, URated: 400},
			{ID: 6, URated: 400},
		},
		Lines: []Line{
			{ID: 201, FromNode: 2, ToNode: 3, FromStatus: 1, ToStatus: 1, R1: 0.05, X1: 0.02, IN: 200},
			{ID: 202, FromNode: 3, ToNode: 4, FromStatus: 1, ToStatus: 1, R1: 0.05, X1: 0.02, IN: 200},
			{ID: 203, FromNode: 2, ToNode: 5, FromStatus: 1, ToStatus: 1, R1: 0.05, X1: 0.02, IN: 200},
			{ID: 204, FromNode: 5, ToNode: 6, FromStatus: 1, ToStatus: 1, R1: 0.05, X1: 0.02, IN: 200},
			{ID: 205, FromNode: 4, ToNode: 6, FromStatus: 1, ToStatus: 0, R1: 0.05, X1: 0.02, IN: 200},
		},
		Sources: []Source{
			{ID: 300, Node: 1, Status: 1, URef: 1.0},
		},
		SymLoads: []SymLoad{
			{ID: 401, Node: 3, Status: 1, PSpecified: 10000, QSpecified: 2000},
			{ID: 402, Node: 4, Status: 1, PSpecified: 10000, QSpecified: 2000},
			{ID: 403, Node: 5, Status: 1, PSpecified: 10000, QSpecified: 2000},
			{ID: 404, Node: 6, Status: 1, PSpecified: 10000, QSpecified: 2000},
		},
		Transformers: []Transformer{
			{
				ID: 100, FromNode: 1, ToNode: 2, FromStatus: 1, ToStatus: 1,
				U1: 10500, U2: 400, SN: 400000, UK: 0.04, PK: 4000,
				TapSide: 0, TapPos: 0, TapMin: -2, TapMax: 2, TapSize: 262.5,
			},
		},
	}
}

func testMetadata() *Metadata {
	return &Metadata{LVBusbar: 2, LVFeeders: []int64{201, 203}, MVSourceBus: 1}
}

func testTimestamps(n int) []time.Time {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * 15 * time.Minute)
	}
	return out
}

// testProfiles returns matching active and reactive power profiles for the
// four households over n timestamps.
func testProfiles(t *testing.T, n int) (*profile.Profile, *profile.Profile) {
	t.Helper()
	ids := []int64{401, 402, 403, 404}
	active := make([][]float64, n)
	reactive := make([][]float64, n)
	for row := 0; row < n; row++ {
		active[row] = make([]float64, len(ids))
		reactive[row] = make([]float64, len(ids))
		for col := range ids {
			active[row][col] = 8000 + 1000*float64(row+col)
			reactive[row][col] = 1500 + 200*float64(row)
		}
	}

	p, err := profile.New(testTimestamps(n), ids, active)
	if err != nil {
		t.Fatalf("build active profile: %v", err)
	}
	q, err := profile.New(testTimestamps(n), ids, reactive)
	if err != nil {
		t.Fatalf("build reactive profile: %v", err)
	}
	return p, q
}

// testEVProfile returns an EV charging pool with one column per sym_load.
func testEVProfile(t *testing.T, n int) *profile.Profile {
	t.Helper()
	ids := []int64{901, 902, 903, 904}
	values := make([][]float64, n)
	for row := 0; row < n; row++ {
		values[row] = make([]float64, len(ids))
		for col := range ids {
			values[row][col] = 3000 + 500*float64(col)
		}
	}
	ev, err := profile.New(testTimestamps(n), ids, values)
	if err != nil {
		t.Fatalf("build ev profile: %v", err)
	}
	return ev
}
