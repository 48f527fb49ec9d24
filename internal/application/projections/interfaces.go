package projections

import (
	"context"

	customerStore "surfshop/internal/adapters/storage/customer"
	lessonStore "surfshop/internal/adapters/storage/lesson"
	domainCustomer "surfshop/internal/domain/customer"
	domainLesson "surfshop/internal/domain/lesson"
	domainVisit "surfshop/internal/domain/visit"
)

// LessonStore interface for lesson queries.
type LessonStore interface {
	GetByID(ctx context.Context, id string) (domainLesson.Lesson, error)
	List(ctx context.Context, filter lessonStore.ListFilter) ([]domainLesson.Lesson, error)
	ListParticipants(ctx context.Context, lessonID string) ([]domainLesson.Participant, error)
}

// CustomerStore interface for customer queries.
type CustomerStore interface {
	GetByID(ctx context.Context, id string) (domainCustomer.Customer, error)
	List(ctx context.Context, filter customerStore.ListFilter) ([]domainCustomer.Customer, error)
}

// VisitStore interface for ledger queries.
type VisitStore interface {
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domainVisit.Visit, error)
}
