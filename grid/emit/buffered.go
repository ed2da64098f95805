package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, organized
// by runID. It backs tests and post-run inspection of analysis behavior.
//
// All events are retained until cleared, so prefer LogEmitter or OTelEmitter
// for long-running deployments.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // runID -> events in emission order
}

// HistoryFilter narrows a history query. Empty fields match everything; set
// fields are combined with AND.
type HistoryFilter struct {
	Stage   string // filter by analysis stage
	Msg     string // filter by message
	MinStep *int   // inclusive lower step bound
	MaxStep *int   // inclusive upper step bound
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to the run's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
}

// GetHistory returns a copy of all events emitted for the run, in order.
func (b *BufferedEmitter) GetHistory(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// GetHistoryWithFilter returns the run's events matching the filter.
func (b *BufferedEmitter) GetHistoryWithFilter(runID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, ev := range b.events[runID] {
		if filter.Stage != "" && ev.Stage != filter.Stage {
			continue
		}
		if filter.Msg != "" && ev.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && ev.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && ev.Step > *filter.MaxStep {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Clear drops the history of one run.
func (b *BufferedEmitter) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, runID)
}

// ClearAll drops every run's history.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
