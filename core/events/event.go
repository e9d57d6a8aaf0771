package events

import "settlechain/core/types"

// Event represents a structured ledger change.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter receives events as operations succeed.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Recorder buffers events in emission order.
type Recorder struct {
	events []Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if evt == nil {
		return
	}
	r.events = append(r.events, evt)
}

// Events returns the buffered events.
func (r *Recorder) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Flatten converts the buffered events, stamping each with height.
func (r *Recorder) Flatten(height uint64) []*types.Event {
	out := make([]*types.Event, 0, len(r.events))
	for _, evt := range r.events {
		flat := evt.Event()
		flat.Height = height
		out = append(out, flat)
	}
	return out
}

// Len returns the number of buffered events.
func (r *Recorder) Len() int { return len(r.events) }

// Truncate drops events recorded after the first n, used when an enclosing
// operation is rolled back.
func (r *Recorder) Truncate(n int) {
	if n < len(r.events) {
		r.events = r.events[:n]
	}
}
