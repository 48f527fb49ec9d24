package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/visit"
)

// RecordVisitInput carries input for the orchestrator.
// A null TotalAmount is derived from the items; a zero Date means now.
type RecordVisitInput struct {
	CustomerID  string              `json:"-"`
	Date        time.Time           `json:"date"`
	Type        visit.Type          `json:"type"`
	Items       []visit.Item        `json:"items"`
	TotalAmount decimal.NullDecimal `json:"total_amount"`
	Notes       string              `json:"notes"`
}

// RecordVisitDeps holds dependencies for RecordVisit.
type RecordVisitDeps struct {
	Ledger     VisitLedger
	Now        func() time.Time
	GenerateID func() string
}

// RecordVisitResult is the appended visit and the customer after the update.
type RecordVisitResult struct {
	Visit    visit.Visit       `json:"visit"`
	Customer customer.Customer `json:"customer"`
}

// ExecuteRecordVisit appends a visit to the ledger.
// PRE: CustomerID refers to an existing customer
// POST: Visit stored; customer visits +1 and total spent re-summed, in one transaction
func ExecuteRecordVisit(ctx context.Context, input RecordVisitInput, deps RecordVisitDeps) (RecordVisitResult, error) {
	now := deps.Now()
	v := visit.Visit{
		ID:         deps.GenerateID(),
		CustomerID: input.CustomerID,
		Date:       input.Date,
		Type:       input.Type,
		Items:      input.Items,
		Notes:      input.Notes,
		CreatedAt:  now,
	}
	if v.Date.IsZero() {
		v.Date = now
	}
	if input.TotalAmount.Valid {
		v.TotalAmount = input.TotalAmount.Decimal.Round(2)
	} else {
		v.TotalAmount = v.ItemsTotal()
	}
	if err := v.Validate(); err != nil {
		return RecordVisitResult{}, err
	}

	c, err := deps.Ledger.Append(ctx, v)
	if err != nil {
		return RecordVisitResult{}, err
	}
	slog.Info("customer_event", "event", "visit_recorded", "customer_id", c.ID, "visit_id", v.ID,
		"type", v.Type, "amount", v.TotalAmount.StringFixed(2), "total_visits", c.TotalVisits)
	return RecordVisitResult{Visit: v, Customer: c}, nil
}

// RecomputeCustomerAggregatesDeps holds dependencies for RecomputeCustomerAggregates.
type RecomputeCustomerAggregatesDeps struct {
	Customers CustomerStore
}

// ExecuteRecomputeCustomerAggregates rebuilds visit count and spend from the ledger.
// PRE: customerID is non-empty
// POST: TotalVisits = number of visits, TotalSpent = sum of their amounts
func ExecuteRecomputeCustomerAggregates(ctx context.Context, customerID string, deps RecomputeCustomerAggregatesDeps) (customer.Customer, error) {
	if customerID == "" {
		return customer.Customer{}, apperr.Validation("customer id is required")
	}
	c, err := deps.Customers.RecomputeAggregates(ctx, customerID)
	if err != nil {
		return customer.Customer{}, err
	}
	slog.Info("customer_event", "event", "aggregates_recomputed", "customer_id", c.ID,
		"total_visits", c.TotalVisits, "total_spent", c.TotalSpent.StringFixed(2))
	return c, nil
}
