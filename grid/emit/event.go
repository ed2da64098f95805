// Package emit provides pluggable observability for simulation runs.
package emit

// Event is an observability event emitted during an analysis run.
//
// Events cover run start/completion, per-timestamp solves, and scenario
// evaluations (contingency alternatives, tap positions). Emitters route them
// to logs, OpenTelemetry spans, or buffers.
type Event struct {
	// RunID identifies the analysis run that emitted this event.
	RunID string

	// Step is the timestamp index within the batch (1-indexed).
	// Zero for run-level events.
	Step int

	// Stage names the analysis phase: "power_flow", "contingency",
	// "ev_penetration", "tap_scan", "validate".
	Stage string

	// Msg is a short machine-friendly description, e.g. "run_start",
	// "solve_step", "scenario_done", "run_complete".
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "duration_ms": solve duration in milliseconds
	//   - "iterations": solver iterations
	//   - "error": error details
	//   - "line_id", "tap_pos", "alternative_id": scenario identity
	Meta map[string]interface{}
}

// Emitter receives events from simulation runs.
//
// Implementations should be non-blocking, thread-safe, and resilient: a slow
// or failing backend must not stall or crash a batch run. Emit must not
// panic; internal errors are logged, not surfaced.
type Emitter interface {
	Emit(event Event)
}
