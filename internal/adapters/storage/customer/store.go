package customer

import (
	"context"

	domain "surfshop/internal/domain/customer"
)

// Store persists customers. Aggregates (visits, spend) are written by the
// visit ledger; Save leaves them as stored for existing rows.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Customer, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Customer, error)
	// Save inserts or updates the contact, waiver and campground fields.
	// PRE: c has been validated
	Save(ctx context.Context, c domain.Customer) error
	// RecomputeAggregates rebuilds total_visits and total_spent from the ledger.
	RecomputeAggregates(ctx context.Context, id string) (domain.Customer, error)
}

// ListFilter carries filtering parameters for List operations.
// Search matches first name, last name or email, ignoring case.
type ListFilter struct {
	Status         domain.Status
	Search         string
	CampgroundOnly bool
	Limit          int
	Offset         int
}
