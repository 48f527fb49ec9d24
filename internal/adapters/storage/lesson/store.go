package lesson

import (
	"context"

	domain "surfshop/internal/domain/lesson"
	"surfshop/internal/domain/outbox"
)

// Store persists lessons and their rosters. Every mutation is a single
// transaction; participants are only written through AddParticipant and
// RemoveParticipant so current_participants always equals the roster size.
type Store interface {
	// GetByID returns the lesson or a not_found error.
	GetByID(ctx context.Context, id string) (domain.Lesson, error)
	// List returns lessons matching filter ordered by schedule.
	List(ctx context.Context, filter ListFilter) ([]domain.Lesson, error)
	// Create inserts a new lesson.
	// PRE: l has been validated, l.CurrentParticipants == 0
	Create(ctx context.Context, l domain.Lesson) error
	// Update writes every lesson field when the stored version equals
	// expectedVersion, and enqueues notices in the same transaction.
	// POST: Returns l with Version = expectedVersion+1, or conflict / not_found
	Update(ctx context.Context, l domain.Lesson, expectedVersion int, notices ...outbox.Entry) (domain.Lesson, error)
	// Delete removes the lesson and, by cascade, its participants.
	Delete(ctx context.Context, id string) error
	// AddParticipant enrolls p when the lesson is scheduled, has room and
	// does not already list the customer.
	// POST: Returns the lesson after the increment, or conflict / not_found with nothing written
	AddParticipant(ctx context.Context, p domain.Participant) (domain.Lesson, error)
	// RemoveParticipant deletes the pair and decrements the counter.
	// POST: Returns the lesson after the decrement, or not_found / conflict
	RemoveParticipant(ctx context.Context, lessonID, customerID string) (domain.Lesson, error)
	// ListParticipants returns the roster in enrollment order.
	ListParticipants(ctx context.Context, lessonID string) ([]domain.Participant, error)
}

// ListFilter carries filtering parameters for List operations.
// Dates are inclusive YYYY-MM-DD bounds on the lesson date.
type ListFilter struct {
	Status          domain.Status
	DateFrom        string
	DateTo          string
	InstructorID    string
	RescheduledOnly bool
	Limit           int
	Offset          int
}
