// Package tlmt defines the telemetry abstraction: anonymous usage events
// sent to an analytics backend, with a noop implementation for opt-out.
package tlmt

import "context"

// Event is one telemetry event.
type Event struct {
	Name  string
	Props map[string]any
}

// NewEvent creates an Event.
func NewEvent(name string, props map[string]any) Event {
	return Event{Name: name, Props: props}
}

// Telemetry sends events to an analytics backend.
type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}
