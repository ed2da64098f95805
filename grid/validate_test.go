package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/stroomnet/gridsim/grid/profile"
)

func TestValidateInput(t *testing.T) {
	active, reactive := testProfiles(t, 4)
	ev := testEVProfile(t, 4)

	t.Run("valid dataset", func(t *testing.T) {
		if err := ValidateInput(testNetwork(), testMetadata(), active, reactive, ev); err != nil {
			t.Errorf("ValidateInput: %v", err)
		}
	})

	t.Run("two sources", func(t *testing.T) {
		net := testNetwork()
		net.Sources = append(net.Sources, Source{ID: 301, Node: 1, Status: 1, URef: 1.0})
		err := ValidateInput(net, testMetadata(), nil, nil, nil)
		if !errors.Is(err, ErrTooManySources) {
			t.Errorf("error = %v, want ErrTooManySources", err)
		}
	})

	t.Run("two transformers", func(t *testing.T) {
		net := testNetwork()
		tr := net.Transformers[0]
		tr.ID = 101
		tr.FromStatus = 0
		net.Transformers = append(net.Transformers, tr)
		err := ValidateInput(net, testMetadata(), nil, nil, nil)
		if !errors.Is(err, ErrTooManyTransformers) {
			t.Errorf("error = %v, want ErrTooManyTransformers", err)
		}
	})

	t.Run("feeder is not a line", func(t *testing.T) {
		meta := testMetadata()
		meta.LVFeeders = []int64{201, 999}
		err := ValidateInput(testNetwork(), meta, nil, nil, nil)
		if !errors.Is(err, ErrInvalidFeeder) {
			t.Errorf("error = %v, want ErrInvalidFeeder", err)
		}
	})

	t.Run("feeder away from busbar", func(t *testing.T) {
		meta := testMetadata()
		meta.LVFeeders = []int64{201, 204} // 204 leaves node 5
		err := ValidateInput(testNetwork(), meta, nil, nil, nil)
		if !errors.Is(err, ErrFeederNotAtTransformer) {
			t.Errorf("error = %v, want ErrFeederNotAtTransformer", err)
		}
	})

	t.Run("cycle in energized graph", func(t *testing.T) {
		net := testNetwork()
		net.Lines[4].ToStatus = 1 // close the tie line
		err := ValidateInput(net, testMetadata(), nil, nil, nil)
		if !errors.Is(err, ErrGraphCycle) {
			t.Errorf("error = %v, want ErrGraphCycle", err)
		}
	})

	t.Run("disconnected energized graph", func(t *testing.T) {
		net := testNetwork()
		net.Lines[3].FromStatus = 0 // cut node 6 off
		err := ValidateInput(net, testMetadata(), nil, nil, nil)
		if !errors.Is(err, ErrGraphNotConnected) {
			t.Errorf("error = %v, want ErrGraphNotConnected", err)
		}
	})

	t.Run("ev timestamps differ", func(t *testing.T) {
		shifted := testEVProfile(t, 4)
		shifted.Timestamps[2] = shifted.Timestamps[2].Add(time.Minute)
		err := ValidateInput(testNetwork(), testMetadata(), active, reactive, shifted)
		if !errors.Is(err, ErrTimestampMismatch) {
			t.Errorf("error = %v, want ErrTimestampMismatch", err)
		}
	})

	t.Run("too few ev profiles", func(t *testing.T) {
		small, err := profile.New(testTimestamps(4), []int64{901, 902},
			[][]float64{{1, 2}, {1, 2}, {1, 2}, {1, 2}})
		if err != nil {
			t.Fatalf("build profile: %v", err)
		}
		verr := ValidateInput(testNetwork(), testMetadata(), active, reactive, small)
		if !errors.Is(verr, ErrTooFewEVProfiles) {
			t.Errorf("error = %v, want ErrTooFewEVProfiles", verr)
		}
	})
}

func TestValidateProfiles(t *testing.T) {
	net := testNetwork()
	active, reactive := testProfiles(t, 4)

	t.Run("valid", func(t *testing.T) {
		if err := ValidateProfiles(net, active, reactive); err != nil {
			t.Errorf("ValidateProfiles: %v", err)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		shortQ, _ := testProfiles(t, 3)
		err := ValidateProfiles(net, active, shortQ)
		if !errors.Is(err, ErrProfileShapeMismatch) {
			t.Errorf("error = %v, want ErrProfileShapeMismatch", err)
		}
	})

	t.Run("timestamp mismatch", func(t *testing.T) {
		q := reactive.Clone()
		q.Timestamps[0] = q.Timestamps[0].Add(time.Hour)
		err := ValidateProfiles(net, active, q)
		if !errors.Is(err, ErrTimestampMismatch) {
			t.Errorf("error = %v, want ErrTimestampMismatch", err)
		}
	})

	t.Run("column ids differ", func(t *testing.T) {
		q := reactive.Clone()
		q.IDs = append([]int64(nil), q.IDs...)
		q.IDs[0] = 499
		err := ValidateProfiles(net, active, q)
		if !errors.Is(err, ErrLoadIDMismatch) {
			t.Errorf("error = %v, want ErrLoadIDMismatch", err)
		}
	})

	t.Run("column is not a sym_load", func(t *testing.T) {
		p := active.Clone()
		q := reactive.Clone()
		p.IDs = append([]int64(nil), p.IDs...)
		q.IDs = append([]int64(nil), q.IDs...)
		p.IDs[0], q.IDs[0] = 499, 499
		err := ValidateProfiles(net, p, q)
		if !errors.Is(err, ErrLoadIDMismatch) {
			t.Errorf("error = %v, want ErrLoadIDMismatch", err)
		}
	})
}

func TestIsValidationError(t *testing.T) {
	if !IsValidationError(ErrInvalidFeeder) {
		t.Error("ErrInvalidFeeder should be a validation error")
	}
	if IsValidationError(ErrNotConverged) {
		t.Error("ErrNotConverged is a solver error, not a validation error")
	}
}
