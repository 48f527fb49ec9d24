package outbox

import (
	"context"

	domain "surfshop/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or a not_found error
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry (insert or update).
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// Claim marks an attempt only if the entry is unchanged since it was read.
	// POST: Returns true when the caller holds the entry
	Claim(ctx context.Context, claimed domain.Entry, prevStatus string, prevAttempts int) (bool, error)

	// ListPending returns entries still to be delivered (pending, retrying or processing).
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that have permanently failed.
	// PRE: limit > 0
	// POST: Returns up to limit failed entries ordered by last_attempted_at desc
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
}
