package grid

import (
	"errors"
	"fmt"

	"github.com/stroomnet/gridsim/grid/profile"
)

// ValidateInput checks everything a simulation needs before any power flow
// runs. It is the single entry point behind NewSimulator, and mirrors the
// acceptance criteria for an LV grid dataset:
//
//  1. the network passes referential validation;
//  2. the network has exactly one source and one transformer;
//  3. every LV feeder ID is a valid line ID;
//  4. every feeder leaves from the transformer's LV side;
//  5. the energized graph is fully connected and has no cycles;
//  6. active, reactive, and EV profiles share timestamps;
//  7. active and reactive profiles share shape and column IDs;
//  8. profile columns are valid sym_load IDs;
//  9. there are at least as many EV charging profiles as sym_loads.
//
// Profiles may be nil when the corresponding analysis will not run; only the
// checks whose inputs are present are applied.
func ValidateInput(net *Network, meta *Metadata, active, reactive, ev *profile.Profile) error {
	if err := net.Validate(); err != nil {
		return err
	}
	if len(net.Sources) != 1 {
		return fmt.Errorf("%d sources: %w", len(net.Sources), ErrTooManySources)
	}
	if len(net.Transformers) != 1 {
		return fmt.Errorf("%d transformers: %w", len(net.Transformers), ErrTooManyTransformers)
	}

	lineNodes := make(map[int64]int64, len(net.Lines))
	for _, l := range net.Lines {
		lineNodes[l.ID] = l.FromNode
	}
	lvBusbar := net.Transformers[0].ToNode
	for _, feeder := range meta.LVFeeders {
		from, ok := lineNodes[feeder]
		if !ok {
			return fmt.Errorf("feeder %d: %w", feeder, ErrInvalidFeeder)
		}
		if from != lvBusbar {
			return fmt.Errorf("feeder %d leaves node %d, not the lv busbar %d: %w",
				feeder, from, lvBusbar, ErrFeederNotAtTransformer)
		}
	}

	if _, err := net.Topology(); err != nil {
		return err
	}

	if active != nil && reactive != nil {
		if err := ValidateProfiles(net, active, reactive); err != nil {
			return err
		}
	}
	if ev != nil {
		if active != nil {
			if err := active.SameIndex(ev); err != nil {
				return fmt.Errorf("ev profile: %w", ErrTimestampMismatch)
			}
		}
		if ev.Columns() < len(net.SymLoads) {
			return fmt.Errorf("%d ev profiles for %d sym_loads: %w",
				ev.Columns(), len(net.SymLoads), ErrTooFewEVProfiles)
		}
	}
	return nil
}

// ValidateProfiles checks that the active and reactive profiles agree with
// each other and with the network's sym_loads.
func ValidateProfiles(net *Network, active, reactive *profile.Profile) error {
	if err := active.SameShape(reactive); err != nil {
		return fmt.Errorf("active vs reactive: %w", ErrProfileShapeMismatch)
	}
	if err := active.SameIndex(reactive); err != nil {
		return fmt.Errorf("active vs reactive: %w", ErrTimestampMismatch)
	}
	if err := active.SameColumns(reactive); err != nil {
		return fmt.Errorf("active vs reactive: %w", ErrLoadIDMismatch)
	}

	known := make(map[int64]struct{}, len(net.SymLoads))
	for _, ld := range net.SymLoads {
		known[ld.ID] = struct{}{}
	}
	for _, id := range active.IDs {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("profile column %d is not a sym_load: %w", id, ErrLoadIDMismatch)
		}
	}
	return nil
}

// IsValidationError reports whether err stems from input validation rather
// than solver behavior.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrIDNotFound, ErrIDNotUnique, ErrInputLengthMismatch,
		ErrGraphNotConnected, ErrGraphCycle,
		ErrTooManySources, ErrTooManyTransformers,
		ErrInvalidFeeder, ErrFeederNotAtTransformer,
		ErrTooFewEVProfiles, ErrTimestampMismatch,
		ErrProfileShapeMismatch, ErrLoadIDMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	var simErr *SimulationError
	return errors.As(err, &simErr) && simErr.Code == "INVALID_COMPONENT"
}
