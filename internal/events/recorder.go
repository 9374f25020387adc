package events

import (
	"context"
	"sync"
)

// Recorder is an EventHandler that keeps every event it receives.
// It is safe for concurrent use and intended for tests and diagnostics.
type Recorder struct {
	mu     sync.Mutex
	events []*Event
	Err    error
}

// HandleEvent stores the event and returns r.Err.
func (r *Recorder) HandleEvent(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Events returns the received events in arrival order.
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of each received event in arrival order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
