// Package events publishes lesson lifecycle events to the message broker.
// Publishing is best effort; callers log failures and carry on.
package events

import (
	"context"
	"time"
)

// Routing keys. Each doubles as the durable queue name.
const (
	LessonCancelled = "lesson.cancelled"
)

// Event is one message for the broker.
type Event struct {
	Key        string    // routing key
	ID         string    // message id, used by consumers to drop duplicates
	OccurredAt time.Time
	Payload    any // JSON encoded
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LessonCancelledPayload is the body of a lesson.cancelled event.
type LessonCancelledPayload struct {
	LessonID         string `json:"lesson_id"`
	LessonType       string `json:"lesson_type"`
	Date             string `json:"date"`
	Time             string `json:"time"`
	Reason           string `json:"reason"`
	RefundType       string `json:"refund_type"`
	RefundAmount     string `json:"refund_amount"`
	ParticipantCount int    `json:"participant_count"`
	WeatherRelated   bool   `json:"weather_related"`
	Rescheduled      bool   `json:"rescheduled"`
	RescheduleDate   string `json:"reschedule_date,omitempty"`
	RescheduleTime   string `json:"reschedule_time,omitempty"`
}
