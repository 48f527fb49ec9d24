package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
)

// SaveCustomerInput carries the editable customer fields. An empty ID creates a customer.
type SaveCustomerInput struct {
	ID                 string          `json:"id"`
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone"`
	EmergencyContact   string          `json:"emergency_contact"`
	Status             customer.Status `json:"status"`
	IsCampgroundGuest  bool            `json:"is_campground_guest"`
	CampgroundSite     string          `json:"campground_site"`
	CampgroundCheckIn  *time.Time      `json:"campground_check_in"`
	CampgroundCheckOut *time.Time      `json:"campground_check_out"`
	Notes              string          `json:"notes"`
}

// SaveCustomerDeps holds dependencies for SaveCustomer.
type SaveCustomerDeps struct {
	Customers  CustomerStore
	Now        func() time.Time
	GenerateID func() string
}

// ExecuteSaveCustomer creates a customer or updates an existing one's contact fields.
// PRE: input has first and last name
// POST: Customer persisted; waiver and ledger aggregates are never changed here
func ExecuteSaveCustomer(ctx context.Context, input SaveCustomerInput, deps SaveCustomerDeps) (customer.Customer, error) {
	now := deps.Now()
	c := customer.Customer{
		ID:         deps.GenerateID(),
		Status:     customer.StatusActive,
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
	}
	if input.ID != "" {
		existing, err := deps.Customers.GetByID(ctx, input.ID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return customer.Customer{}, err
		}
		if err == nil {
			c = existing
		} else {
			c.ID = input.ID
		}
	}

	c.FirstName = strings.TrimSpace(input.FirstName)
	c.LastName = strings.TrimSpace(input.LastName)
	c.Email = strings.ToLower(strings.TrimSpace(input.Email))
	c.Phone = strings.TrimSpace(input.Phone)
	c.EmergencyContact = input.EmergencyContact
	if input.Status != "" {
		c.Status = input.Status
	}
	c.IsCampgroundGuest = input.IsCampgroundGuest
	c.CampgroundSite = strings.TrimSpace(input.CampgroundSite)
	c.CampgroundCheckIn = input.CampgroundCheckIn
	c.CampgroundCheckOut = input.CampgroundCheckOut
	c.Notes = input.Notes
	c.UpdatedAt = now

	if err := c.Validate(); err != nil {
		return customer.Customer{}, err
	}
	if err := deps.Customers.Save(ctx, c); err != nil {
		return customer.Customer{}, err
	}
	slog.Info("customer_event", "event", "customer_saved", "customer_id", c.ID)
	return c, nil
}
