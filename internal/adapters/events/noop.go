package events

import (
	"context"
	"log/slog"
	"sync"
)

// NoopPublisher logs events instead of publishing them and keeps them for inspection.
type NoopPublisher struct {
	mu        sync.Mutex
	published []Event
}

// Publish records e.
func (p *NoopPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	p.published = append(p.published, e)
	p.mu.Unlock()
	slog.Info("noop_event_publish", "key", e.Key, "id", e.ID)
	return nil
}

// Published returns a copy of the recorded events.
func (p *NoopPublisher) Published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.published...)
}
