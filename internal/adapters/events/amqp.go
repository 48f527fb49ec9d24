package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes persistent JSON messages on the default exchange.
// The connection is opened lazily and reopened after a failure.
type AMQPPublisher struct {
	url string

	mu       sync.Mutex
	conn     *amqp.Connection
	declared map[string]bool
}

// NewAMQPPublisher creates a publisher for the broker at url.
// PRE: url is an amqp:// or amqps:// URL
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url, declared: map[string]bool{}}
}

// Publish declares the event's queue once and publishes to it.
// POST: Message accepted by the broker, or an error and the connection is dropped
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Key, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
		p.declared = map[string]bool{}
	}

	ch, err := p.conn.Channel()
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if !p.declared[e.Key] {
		if _, err := ch.QueueDeclare(e.Key, true, false, false, false, nil); err != nil {
			p.reset()
			return fmt.Errorf("rabbitmq declare %s: %w", e.Key, err)
		}
		p.declared[e.Key] = true
	}

	err = ch.PublishWithContext(ctx, "", e.Key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt.UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq publish %s: %w", e.Key, err)
	}
	slog.Info("event_published", "key", e.Key, "id", e.ID)
	return nil
}

// Close closes the broker connection if one is open.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *AMQPPublisher) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = nil
}
