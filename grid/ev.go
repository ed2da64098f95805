package grid

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/stroomnet/gridsim/grid/emit"
	"github.com/stroomnet/gridsim/grid/profile"
)

// EVPenetrationConfig parameterizes an EV penetration study.
type EVPenetrationConfig struct {
	// Percentage of houses that get an EV charger, 0 to 100.
	Percentage float64

	// Seed drives the random assignment of chargers to houses and of
	// charging profiles to chargers. The same seed reproduces the same
	// assignment.
	Seed int64
}

// EVPenetrationResult is the outcome of one EV penetration study.
type EVPenetrationResult struct {
	// Assignments maps each selected sym_load ID to the EV charging profile
	// column assigned to it.
	Assignments map[int64]int64

	// EVPerFeeder is the number of chargers placed on each feeder.
	EVPerFeeder int

	NodeVoltages []NodeVoltageRow
	LineStats    []LineStatRow
}

// EVPenetration studies the grid impact of a given EV penetration level.
//
// The number of chargers per LV feeder is
//
//	floor(percentage/100 * nHouses / nFeeders)
//
// For each feeder, that many houses are drawn (seeded, without replacement)
// from the sym_loads downstream of the feeder, and each drawn house gets a
// distinct randomly chosen EV charging profile added to its active power.
// Reactive power is unchanged; EV chargers are modeled at unity power factor.
// The batch power flow then runs on the combined load.
//
// The EV profile pool must share timestamps with the load profiles and hold
// at least as many columns as there are sym_loads.
func (s *Simulator) EVPenetration(ctx context.Context, cfg EVPenetrationConfig, active, reactive, ev *profile.Profile) (*EVPenetrationResult, error) {
	if cfg.Percentage < 0 || cfg.Percentage > 100 {
		return nil, fmt.Errorf("penetration percentage %.1f outside [0, 100]", cfg.Percentage)
	}
	if err := ValidateInput(s.net, s.meta, active, reactive, ev); err != nil {
		return nil, err
	}

	nHouses := len(s.net.SymLoads)
	nFeeders := len(s.meta.LVFeeders)
	if nFeeders == 0 {
		return nil, fmt.Errorf("metadata lists no lv feeders: %w", ErrInvalidFeeder)
	}
	evPerFeeder := int(math.Floor(cfg.Percentage / 100 * float64(nHouses) / float64(nFeeders)))

	loadsByNode := make(map[int64][]int64, len(s.net.SymLoads))
	for _, ld := range s.net.SymLoads {
		loadsByNode[ld.Node] = append(loadsByNode[ld.Node], ld.ID)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	pool := append([]int64(nil), ev.IDs...) // unassigned EV profile columns

	assignments := make(map[int64]int64)
	combined := active.Clone()
	for _, feeder := range s.meta.LVFeeders {
		down, err := s.topo.DownstreamVertices(feeder)
		if err != nil {
			return nil, err
		}

		var candidates []int64
		for _, node := range down {
			candidates = append(candidates, loadsByNode[node]...)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

		take := evPerFeeder
		if take > len(candidates) {
			take = len(candidates)
		}
		for _, ci := range rng.Perm(len(candidates))[:take] {
			loadID := candidates[ci]
			pi := rng.Intn(len(pool))
			profileID := pool[pi]
			pool = append(pool[:pi], pool[pi+1:]...)
			assignments[loadID] = profileID

			evColumn, err := ev.Column(profileID)
			if err != nil {
				return nil, err
			}
			if err := addToColumn(combined, loadID, evColumn); err != nil {
				return nil, err
			}
		}
	}

	runID := s.newRunID()
	startedAt := time.Now()
	s.emitter.Emit(emit.Event{
		RunID: runID,
		Stage: "ev_penetration",
		Msg:   "run_start",
		Meta: map[string]interface{}{
			"percentage":    cfg.Percentage,
			"seed":          cfg.Seed,
			"ev_per_feeder": evPerFeeder,
		},
	})
	s.metrics.IncrementScenarios(runID, "ev")

	batch, err := s.runBatch(ctx, runID, "ev_penetration", s.net, combined, reactive)
	if err != nil {
		return nil, err
	}

	result := &EVPenetrationResult{
		Assignments:  assignments,
		EVPerFeeder:  evPerFeeder,
		NodeVoltages: NodeVoltageSummary(batch),
		LineStats:    LineStatistics(batch),
	}
	s.finishRun(ctx, runID, "ev_penetration", startedAt, struct {
		Assignments  map[int64]int64  `json:"assignments"`
		EVPerFeeder  int              `json:"ev_per_feeder"`
		NodeVoltages []NodeVoltageRow `json:"node_voltages"`
		LineStats    []LineStatRow    `json:"line_stats"`
	}{assignments, evPerFeeder, result.NodeVoltages, result.LineStats})
	return result, nil
}

// addToColumn adds values element-wise onto the profile column for id.
func addToColumn(p *profile.Profile, id int64, values []float64) error {
	col := -1
	for i, cid := range p.IDs {
		if cid == id {
			col = i
			break
		}
	}
	if col < 0 {
		return fmt.Errorf("profile column %d: %w", id, ErrIDNotFound)
	}
	if len(values) != p.Rows() {
		return fmt.Errorf("%d values for %d rows: %w", len(values), p.Rows(), ErrProfileShapeMismatch)
	}
	for t := range p.Values {
		p.Values[t][col] += values[t]
	}
	return nil
}
