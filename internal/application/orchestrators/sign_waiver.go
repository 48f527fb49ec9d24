package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
)

// SignWaiverDeps holds dependencies for SignWaiver.
type SignWaiverDeps struct {
	Customers CustomerStore
	Now       func() time.Time
}

// ExecuteSignWaiver records a freshly signed waiver for a customer.
// PRE: customerID refers to an existing customer
// POST: WaiverSigned, WaiverSignedAt = now, WaiverExpiryDate = now + 1 year
// INVARIANT: A re-signed waiver replaces the previous dates
func ExecuteSignWaiver(ctx context.Context, customerID string, deps SignWaiverDeps) (customer.Customer, error) {
	if customerID == "" {
		return customer.Customer{}, apperr.Validation("customer id is required")
	}
	c, err := deps.Customers.GetByID(ctx, customerID)
	if err != nil {
		return customer.Customer{}, err
	}
	if c.Status == customer.StatusBanned {
		return customer.Customer{}, apperr.Conflict("customer %q is banned", c.ID)
	}

	now := deps.Now()
	c.SignWaiver(now)
	if err := deps.Customers.Save(ctx, c); err != nil {
		return customer.Customer{}, err
	}
	slog.Info("customer_event", "event", "waiver_signed", "customer_id", c.ID, "expires", c.WaiverExpiryDate.Format(time.DateOnly))
	return c, nil
}
