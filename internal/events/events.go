// Package events carries lightweight lifecycle events (engine spawns,
// restarts, cache evictions, preview triggers) to an optional sink.
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event is a lifecycle event. Minimal and stable: name plus optional
// key/value fields.
type Event struct {
	Name   string
	Fields map[string]any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// NopPublisher is the default; it drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}

// LogPublisher writes events to a structured logger at debug level.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Debug().Str("event", e.Name)
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("lifecycle event")
}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Names returns just the event names, in publish order.
func (p *MemoryPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}
