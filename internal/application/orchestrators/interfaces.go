package orchestrators

import (
	"context"

	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/instructor"
	"surfshop/internal/domain/lesson"
	"surfshop/internal/domain/outbox"
	"surfshop/internal/domain/visit"
)

// LessonStore is the lesson persistence used by the lifecycle orchestrators.
type LessonStore interface {
	GetByID(ctx context.Context, id string) (lesson.Lesson, error)
	Create(ctx context.Context, l lesson.Lesson) error
	Update(ctx context.Context, l lesson.Lesson, expectedVersion int, notices ...outbox.Entry) (lesson.Lesson, error)
	Delete(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, p lesson.Participant) (lesson.Lesson, error)
	RemoveParticipant(ctx context.Context, lessonID, customerID string) (lesson.Lesson, error)
	ListParticipants(ctx context.Context, lessonID string) ([]lesson.Participant, error)
}

// InstructorLookup resolves the instructor whose name a lesson snapshots.
type InstructorLookup interface {
	GetByID(ctx context.Context, id string) (instructor.Instructor, error)
}

// InstructorStore persists instructors.
type InstructorStore interface {
	InstructorLookup
	Save(ctx context.Context, i instructor.Instructor) error
}

// CustomerLookup resolves a customer by id.
type CustomerLookup interface {
	GetByID(ctx context.Context, id string) (customer.Customer, error)
}

// CustomerStore persists customers.
type CustomerStore interface {
	CustomerLookup
	Save(ctx context.Context, c customer.Customer) error
	RecomputeAggregates(ctx context.Context, id string) (customer.Customer, error)
}

// VisitLedger appends visits and updates the owning customer's aggregates.
type VisitLedger interface {
	Append(ctx context.Context, v visit.Visit) (customer.Customer, error)
}

// OutboxDispatcher delivers one outbox entry right away.
type OutboxDispatcher interface {
	ProcessSingle(ctx context.Context, entryID string) error
}
