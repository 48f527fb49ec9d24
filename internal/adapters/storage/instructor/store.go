package instructor

import (
	"context"

	domain "surfshop/internal/domain/instructor"
)

// Store persists instructors.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Instructor, error)
	// List returns instructors ordered by name; activeOnly hides retired ones.
	List(ctx context.Context, activeOnly bool) ([]domain.Instructor, error)
	Save(ctx context.Context, i domain.Instructor) error
}
