package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// NoopSender logs messages instead of delivering them. It keeps what it was
// given so local runs and tests can inspect it.
type NoopSender struct {
	mu   sync.Mutex
	sent []Message
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records msg.
func (s *NoopSender) Send(_ context.Context, msg Message) (Result, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	n := len(s.sent)
	s.mu.Unlock()

	slog.Info("noop_email_send", "to", msg.To, "subject", msg.Subject)
	return Result{MessageID: fmt.Sprintf("noop-%d", n), SentAt: time.Now()}, nil
}

// SendBatch records every message in msgs.
func (s *NoopSender) SendBatch(ctx context.Context, msgs []Message) ([]Result, error) {
	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		r, err := s.Send(ctx, msg)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

// Sent returns a copy of the recorded messages.
func (s *NoopSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}
