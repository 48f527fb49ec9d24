package visit

import (
	"context"

	"surfshop/internal/domain/customer"
	domain "surfshop/internal/domain/visit"
)

// Store is the append-only visit ledger. There is no update or delete.
type Store interface {
	// Append records v and updates the owning customer's aggregates in the
	// same transaction: visits +1, total spent re-summed from the ledger and
	// the campground flag raised for campground visits.
	// PRE: v has been validated
	// POST: Returns the updated customer, or not_found with nothing written
	Append(ctx context.Context, v domain.Visit) (customer.Customer, error)
	// ListByCustomer returns the customer's visits, newest first.
	// A limit of 0 or less returns every visit.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Visit, error)
}
