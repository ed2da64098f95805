// Package profile holds time-series power profiles: one value per timestamp
// per component ID, read from and written to Parquet files.
package profile

import (
	"errors"
	"fmt"
	"time"
)

// ErrShapeMismatch indicates two profiles differ in row or column count.
var ErrShapeMismatch = errors.New("profile shapes do not match")

// ErrIndexMismatch indicates two profiles differ in timestamps.
var ErrIndexMismatch = errors.New("profile timestamps do not match")

// ErrColumnMismatch indicates two profiles differ in column IDs.
var ErrColumnMismatch = errors.New("profile column ids do not match")

// ErrColumnNotFound indicates a requested column ID is absent.
var ErrColumnNotFound = errors.New("profile column not found")

// Profile is a dense time series: Values[t][c] is the value for column
// IDs[c] at Timestamps[t]. Column IDs are component IDs (sym_loads for load
// profiles, charger profile numbers for EV pool profiles).
type Profile struct {
	Timestamps []time.Time
	IDs        []int64
	Values     [][]float64
}

// New builds a profile after checking that values form a dense
// len(timestamps) x len(ids) matrix.
func New(timestamps []time.Time, ids []int64, values [][]float64) (*Profile, error) {
	if len(values) != len(timestamps) {
		return nil, fmt.Errorf("%d rows for %d timestamps: %w", len(values), len(timestamps), ErrShapeMismatch)
	}
	for i, row := range values {
		if len(row) != len(ids) {
			return nil, fmt.Errorf("row %d has %d values for %d ids: %w", i, len(row), len(ids), ErrShapeMismatch)
		}
	}
	return &Profile{Timestamps: timestamps, IDs: ids, Values: values}, nil
}

// Rows returns the number of timestamps.
func (p *Profile) Rows() int { return len(p.Timestamps) }

// Columns returns the number of column IDs.
func (p *Profile) Columns() int { return len(p.IDs) }

// columnIndex returns the position of the given column ID.
func (p *Profile) columnIndex(id int64) (int, error) {
	for i, c := range p.IDs {
		if c == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("column %d: %w", id, ErrColumnNotFound)
}

// Column returns the series for one column ID.
func (p *Profile) Column(id int64) ([]float64, error) {
	idx, err := p.columnIndex(id)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(p.Values))
	for t, row := range p.Values {
		out[t] = row[idx]
	}
	return out, nil
}

// Select returns a new profile holding only the given columns, in the given
// order, sharing timestamps with the receiver.
func (p *Profile) Select(ids []int64) (*Profile, error) {
	idxs := make([]int, len(ids))
	for i, id := range ids {
		idx, err := p.columnIndex(id)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	values := make([][]float64, len(p.Values))
	for t, row := range p.Values {
		out := make([]float64, len(ids))
		for i, idx := range idxs {
			out[i] = row[idx]
		}
		values[t] = out
	}
	return &Profile{Timestamps: p.Timestamps, IDs: append([]int64(nil), ids...), Values: values}, nil
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	values := make([][]float64, len(p.Values))
	for t, row := range p.Values {
		values[t] = append([]float64(nil), row...)
	}
	return &Profile{
		Timestamps: append([]time.Time(nil), p.Timestamps...),
		IDs:        append([]int64(nil), p.IDs...),
		Values:     values,
	}
}

// SameIndex checks that both profiles carry identical timestamps.
func (p *Profile) SameIndex(other *Profile) error {
	if len(p.Timestamps) != len(other.Timestamps) {
		return fmt.Errorf("%d vs %d timestamps: %w", len(p.Timestamps), len(other.Timestamps), ErrIndexMismatch)
	}
	for i := range p.Timestamps {
		if !p.Timestamps[i].Equal(other.Timestamps[i]) {
			return fmt.Errorf("timestamp %d differs: %w", i, ErrIndexMismatch)
		}
	}
	return nil
}

// SameColumns checks that both profiles carry identical column IDs in the
// same order.
func (p *Profile) SameColumns(other *Profile) error {
	if len(p.IDs) != len(other.IDs) {
		return fmt.Errorf("%d vs %d columns: %w", len(p.IDs), len(other.IDs), ErrColumnMismatch)
	}
	for i := range p.IDs {
		if p.IDs[i] != other.IDs[i] {
			return fmt.Errorf("column %d: id %d vs %d: %w", i, p.IDs[i], other.IDs[i], ErrColumnMismatch)
		}
	}
	return nil
}

// SameShape checks that both profiles have equal dimensions.
func (p *Profile) SameShape(other *Profile) error {
	if p.Rows() != other.Rows() || p.Columns() != other.Columns() {
		return fmt.Errorf("%dx%d vs %dx%d: %w",
			p.Rows(), p.Columns(), other.Rows(), other.Columns(), ErrShapeMismatch)
	}
	return nil
}

// AddProfile returns the element-wise sum of the receiver and other. Both
// profiles must share timestamps and dimensions; other's column identities
// are ignored (superposition by position), which is how per-charger EV
// profiles are layered onto selected household columns.
func (p *Profile) AddProfile(other *Profile) (*Profile, error) {
	if err := p.SameShape(other); err != nil {
		return nil, err
	}
	if err := p.SameIndex(other); err != nil {
		return nil, err
	}
	sum := p.Clone()
	for t, row := range other.Values {
		for c, v := range row {
			sum.Values[t][c] += v
		}
	}
	return sum, nil
}
