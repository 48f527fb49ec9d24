package projections

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	customerStore "surfshop/internal/adapters/storage/customer"
	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/visit"
)

// Transaction is a visit as shown in a customer's history.
type Transaction struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Type        visit.Type      `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Items       []visit.Item    `json:"items"`
}

// GetTransactionHistoryDeps holds dependencies for GetTransactionHistory.
type GetTransactionHistoryDeps struct {
	VisitStore VisitStore
}

// QueryGetTransactionHistory maps a customer's visits to transactions, newest first.
// PRE: customerID is non-empty; limit <= 0 returns every visit
func QueryGetTransactionHistory(ctx context.Context, customerID string, limit int, deps GetTransactionHistoryDeps) ([]Transaction, error) {
	visits, err := deps.VisitStore.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Transaction, 0, len(visits))
	for _, v := range visits {
		items := v.Items
		if items == nil {
			items = []visit.Item{}
		}
		out = append(out, Transaction{
			ID:          v.ID,
			Date:        v.Date,
			Type:        v.Type,
			Description: visit.Describe(v),
			Amount:      v.TotalAmount,
			Items:       items,
		})
	}
	return out, nil
}

// CustomerRow is one line of the customer list.
type CustomerRow struct {
	ID                         string                  `json:"id"`
	Name                       string                  `json:"name"`
	Email                      string                  `json:"email"`
	Phone                      string                  `json:"phone"`
	Status                     customer.Status         `json:"status"`
	TotalVisits                int                     `json:"total_visits"`
	TotalSpent                 decimal.Decimal         `json:"total_spent"`
	WaiverStatus               customer.WaiverValidity `json:"waiver_status"`
	IsCampgroundGuest          bool                    `json:"is_campground_guest"`
	CampgroundDiscountEligible bool                    `json:"campground_discount_eligible"`
}

// GetCustomerListQuery carries query parameters.
// WaiverStatus, when set, keeps only customers in that state.
type GetCustomerListQuery struct {
	Filter       customerStore.ListFilter
	WaiverStatus customer.WaiverValidity
}

// GetCustomerListDeps holds dependencies for GetCustomerList.
type GetCustomerListDeps struct {
	CustomerStore CustomerStore
	Now           func() time.Time
}

// QueryGetCustomerList lists customers with their derived waiver state.
// POST: Every row's WaiverStatus comes from customer.ClassifyWaiver at one instant
func QueryGetCustomerList(ctx context.Context, query GetCustomerListQuery, deps GetCustomerListDeps) ([]CustomerRow, error) {
	customers, err := deps.CustomerStore.List(ctx, query.Filter)
	if err != nil {
		return nil, err
	}
	now := deps.Now()
	rows := make([]CustomerRow, 0, len(customers))
	for i := range customers {
		c := &customers[i]
		status := customer.ClassifyWaiver(c, now)
		if query.WaiverStatus != "" && status != query.WaiverStatus {
			continue
		}
		rows = append(rows, CustomerRow{
			ID:                         c.ID,
			Name:                       c.FullName(),
			Email:                      c.Email,
			Phone:                      c.Phone,
			Status:                     c.Status,
			TotalVisits:                c.TotalVisits,
			TotalSpent:                 c.TotalSpent,
			WaiverStatus:               status,
			IsCampgroundGuest:          c.IsCampgroundGuest,
			CampgroundDiscountEligible: c.CampgroundDiscountEligible(now),
		})
	}
	return rows, nil
}

// RecentTransactionLimit is how many transactions a profile shows.
const RecentTransactionLimit = 10

// CustomerProfile is a customer with derived state and recent history.
type CustomerProfile struct {
	Customer                   customer.Customer       `json:"customer"`
	WaiverStatus               customer.WaiverValidity `json:"waiver_status"`
	CampgroundDiscountEligible bool                    `json:"campground_discount_eligible"`
	RecentTransactions         []Transaction           `json:"recent_transactions"`
}

// GetCustomerProfileDeps holds dependencies for GetCustomerProfile.
type GetCustomerProfileDeps struct {
	CustomerStore CustomerStore
	VisitStore    VisitStore
	Now           func() time.Time
}

// QueryGetCustomerProfile loads one customer with waiver state and recent transactions.
// PRE: customerID is non-empty
// POST: Returns the profile or not_found
func QueryGetCustomerProfile(ctx context.Context, customerID string, deps GetCustomerProfileDeps) (CustomerProfile, error) {
	c, err := deps.CustomerStore.GetByID(ctx, customerID)
	if err != nil {
		return CustomerProfile{}, err
	}
	txns, err := QueryGetTransactionHistory(ctx, customerID, RecentTransactionLimit, GetTransactionHistoryDeps{VisitStore: deps.VisitStore})
	if err != nil {
		return CustomerProfile{}, err
	}
	now := deps.Now()
	return CustomerProfile{
		Customer:                   c,
		WaiverStatus:               c.WaiverStatus(now),
		CampgroundDiscountEligible: c.CampgroundDiscountEligible(now),
		RecentTransactions:         txns,
	}, nil
}
