package events

import (
	"sync"

	"vaultengine/core/types"
)

// Event represents a structured state change emitted by a vault.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector buffers emitted events in order. It is safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(evt Event) {
	if c == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, payload.Clone())
	c.mu.Unlock()
}

// Events returns a copy of the buffered events.
func (c *Collector) Events() []*types.Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Event, len(c.events))
	for i, evt := range c.events {
		out[i] = evt.Clone()
	}
	return out
}

// OfType filters the buffered events by type.
func (c *Collector) OfType(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range c.Events() {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}
