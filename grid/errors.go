// Package grid provides the network model, topology analysis, and power-flow
// engine for gridsim.
package grid

import "errors"

// ErrIDNotFound indicates that a referenced vertex, edge, or line ID does not
// exist in the network.
var ErrIDNotFound = errors.New("id not found")

// ErrIDNotUnique indicates that vertex and edge IDs overlap or repeat.
var ErrIDNotUnique = errors.New("vertex and edge ids are not unique")

// ErrInputLengthMismatch indicates that parallel input slices (edge IDs,
// vertex pairs, enabled flags) have different lengths.
var ErrInputLengthMismatch = errors.New("input lengths do not match")

// ErrGraphNotConnected indicates that the enabled subgraph does not reach
// every vertex.
var ErrGraphNotConnected = errors.New("graph is not fully connected")

// ErrGraphCycle indicates that the enabled subgraph contains a cycle.
// A distribution network must be radial.
var ErrGraphCycle = errors.New("graph contains a cycle")

// ErrEdgeDisabled indicates an operation on an edge that is already disabled.
var ErrEdgeDisabled = errors.New("edge is already disabled")

// ErrLineNotConnected indicates that a line is not energized on both sides.
var ErrLineNotConnected = errors.New("line is not connected on both sides")

// ErrTooManySources indicates that the network does not hold exactly one
// source component.
var ErrTooManySources = errors.New("network must contain exactly one source")

// ErrTooManyTransformers indicates that the network does not hold exactly one
// transformer component.
var ErrTooManyTransformers = errors.New("network must contain exactly one transformer")

// ErrInvalidFeeder indicates that an LV feeder ID is not a known line ID.
var ErrInvalidFeeder = errors.New("feeder id is not a valid line id")

// ErrFeederNotAtTransformer indicates that a feeder line does not originate
// at the transformer's LV busbar.
var ErrFeederNotAtTransformer = errors.New("feeder is not connected to the transformer")

// ErrTooFewEVProfiles indicates fewer EV charging profiles than sym_loads.
var ErrTooFewEVProfiles = errors.New("fewer ev charging profiles than sym_loads")

// ErrTimestampMismatch indicates that time-series profiles do not share the
// same timestamps.
var ErrTimestampMismatch = errors.New("profile timestamps do not match")

// ErrProfileShapeMismatch indicates that two profiles differ in dimensions.
var ErrProfileShapeMismatch = errors.New("profile shapes do not match")

// ErrLoadIDMismatch indicates that profile column IDs do not match each other
// or the network's sym_load IDs.
var ErrLoadIDMismatch = errors.New("profile load ids do not match")

// ErrNotConverged indicates that the power-flow solver did not reach the
// requested tolerance within its iteration budget.
var ErrNotConverged = errors.New("power flow did not converge")

// ErrInvalidObjective indicates an unknown tap optimization objective.
var ErrInvalidObjective = errors.New("invalid tap optimization objective")

// SimulationError represents an error from Simulator operations.
// It carries a machine-readable code alongside the message, and wraps the
// underlying cause when one exists.
type SimulationError struct {
	Message string
	Code    string
	Cause   error
}

func (e *SimulationError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/errors.As support.
func (e *SimulationError) Unwrap() error {
	return e.Cause
}
