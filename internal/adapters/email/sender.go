// Package email delivers customer notifications through an external provider.
package email

import (
	"context"
	"time"
)

// Message is one email to one or more recipients.
type Message struct {
	To      []string
	From    string // overrides the sender's default address when set
	ReplyTo string
	Subject string
	HTML    string
	Text    string            // plain-text alternative
	Tags    map[string]string // provider tags, e.g. lesson_id
}

// Result is the provider's acceptance of a message.
type Result struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
	SendBatch(ctx context.Context, msgs []Message) ([]Result, error)
}
