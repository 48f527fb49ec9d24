package outbox

import (
	"time"

	"surfshop/internal/domain/apperr"
)

// Status constants for outbox entry lifecycle.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusRetrying   = "retrying"
	StatusDone       = "done"
	StatusFailed     = "failed"
	StatusAbandoned  = "abandoned"
)

// ClaimLease is how long a processing claim holds before another worker may take the entry over.
const ClaimLease = 10 * time.Minute

// ActionCancellationNotice emails a cancelled lesson's participants and
// publishes the lesson.cancelled event.
const ActionCancellationNotice = "lesson_cancellation_notice"

// DefaultMaxAttempts bounds delivery attempts when an entry does not set its own.
const DefaultMaxAttempts = 5

// Entry is one pending side effect, written in the same transaction as the
// state change that caused it and delivered afterwards.
type Entry struct {
	ID              string
	ActionType      string
	AggregateID     string // lesson id for cancellation notices
	Payload         string // JSON
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string
	ErrorMessage    string
}

// New returns a pending entry.
func New(id, actionType, aggregateID, payload string, now time.Time) Entry {
	return Entry{
		ID:          id,
		ActionType:  actionType,
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, a validation error otherwise
func (e *Entry) Validate() error {
	if e.ID == "" {
		return apperr.Validation("outbox entry id is required")
	}
	if e.ActionType == "" {
		return apperr.Validation("action type is required")
	}
	if e.Payload == "" {
		return apperr.Validation("payload is required")
	}
	if e.CreatedAt.IsZero() {
		return apperr.Validation("created_at must be set")
	}
	if e.MaxAttempts <= 0 {
		return apperr.Validation("max attempts must be positive")
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying || e.Status == StatusFailed) &&
		e.Attempts < e.MaxAttempts
}

// IsTerminal returns true for done, abandoned, or failed with no attempts left.
func (e *Entry) IsTerminal() bool {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return true
	}
	return e.Status == StatusFailed && e.Attempts >= e.MaxAttempts
}

// MarkAttempt records a delivery attempt at now.
// POST: Attempts incremented, LastAttemptedAt = now, status processing
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusProcessing
}

// Claimed reports whether another attempt holds the entry at now.
func (e *Entry) Claimed(now time.Time) bool {
	return e.Status == StatusProcessing && now.Before(e.LastAttemptedAt.Add(ClaimLease))
}

// MarkSuccess marks the entry delivered.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err. The entry turns failed once attempts run out,
// retrying otherwise.
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
		return
	}
	e.Status = StatusRetrying
}

// MarkAbandoned stops further delivery.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay is 2^attempts * baseDelay, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}

// DueAt returns when the entry may next be attempted.
func (e *Entry) DueAt(baseDelay, maxDelay time.Duration) time.Time {
	if e.LastAttemptedAt.IsZero() {
		return e.CreatedAt
	}
	if e.Status == StatusProcessing {
		return e.LastAttemptedAt.Add(ClaimLease)
	}
	return e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay))
}
