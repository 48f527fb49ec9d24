package customer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	customerStore "surfshop/internal/adapters/storage/customer"
	"surfshop/internal/adapters/storage/storagetest"
	"surfshop/internal/domain/apperr"
	domain "surfshop/internal/domain/customer"
)

var fixedNow = time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)

func newCustomer(id, first, last string) domain.Customer {
	return domain.Customer{
		ID:         id,
		FirstName:  first,
		LastName:   last,
		Status:     domain.StatusActive,
		TotalSpent: decimal.Zero,
		CreatedAt:  fixedNow,
		UpdatedAt:  fixedNow,
	}
}

// TestSQLStore_SaveGet round-trips optional timestamps.
func TestSQLStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	store := customerStore.NewSQLStore(storagetest.Open(t))

	c := newCustomer("c1", "Mia", "Cruz")
	c.Email = "mia@example.com"
	c.SignWaiver(fixedNow)
	require.NoError(t, store.Save(ctx, c))

	got, err := store.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.True(t, got.WaiverSigned)
	require.NotNil(t, got.WaiverExpiryDate)
	require.True(t, got.WaiverExpiryDate.Equal(fixedNow.AddDate(1, 0, 0)))
	require.Nil(t, got.CampgroundCheckIn)
	require.Equal(t, domain.WaiverValid, got.WaiverStatus(fixedNow))

	_, err = store.GetByID(ctx, "missing")
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}

// TestSQLStore_SaveKeepsAggregates verifies an edit cannot overwrite ledger totals.
func TestSQLStore_SaveKeepsAggregates(t *testing.T) {
	ctx := context.Background()
	db := storagetest.Open(t)
	store := customerStore.NewSQLStore(db)
	c := newCustomer("c1", "Mia", "Cruz")
	require.NoError(t, store.Save(ctx, c))

	_, err := db.ExecContext(ctx, "UPDATE customer SET total_visits = 3, total_spent = '120.50' WHERE id = ?", "c1")
	require.NoError(t, err)

	c.Phone = "555-0101"
	require.NoError(t, store.Save(ctx, c))
	got, err := store.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "555-0101", got.Phone)
	require.Equal(t, 3, got.TotalVisits)
	require.True(t, got.TotalSpent.Equal(decimal.RequireFromString("120.50")))
}

// TestSQLStore_List filters by status, search and campground flag.
func TestSQLStore_List(t *testing.T) {
	ctx := context.Background()
	store := customerStore.NewSQLStore(storagetest.Open(t))

	mia := newCustomer("c1", "Mia", "Cruz")
	mia.Email = "mia@example.com"
	leo := newCustomer("c2", "Leo", "Adams")
	leo.IsCampgroundGuest = true
	zed := newCustomer("c3", "Zed", "Brown")
	zed.Status = domain.StatusBanned
	for _, c := range []domain.Customer{mia, leo, zed} {
		require.NoError(t, store.Save(ctx, c))
	}

	tests := []struct {
		name   string
		filter customerStore.ListFilter
		want   []string
	}{
		{"all ordered by last name", customerStore.ListFilter{}, []string{"c2", "c3", "c1"}},
		{"status", customerStore.ListFilter{Status: domain.StatusActive}, []string{"c2", "c1"}},
		{"search is case insensitive", customerStore.ListFilter{Search: "MIA@"}, []string{"c1"}},
		{"search last name", customerStore.ListFilter{Search: "brow"}, []string{"c3"}},
		{"campground only", customerStore.ListFilter{CampgroundOnly: true}, []string{"c2"}},
		{"paged", customerStore.ListFilter{Limit: 1, Offset: 1}, []string{"c3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, c := range got {
				ids = append(ids, c.ID)
			}
			require.Equal(t, tt.want, ids)
		})
	}
}

// TestSQLStore_RecomputeAggregates rebuilds totals from the ledger rows.
func TestSQLStore_RecomputeAggregates(t *testing.T) {
	ctx := context.Background()
	db := storagetest.Open(t)
	store := customerStore.NewSQLStore(db)
	require.NoError(t, store.Save(ctx, newCustomer("c1", "Mia", "Cruz")))

	for i, amount := range []string{"45.50", "10.25"} {
		_, err := db.ExecContext(ctx,
			"INSERT INTO customer_visit (id, customer_id, visit_date, visit_type, items, total_amount, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			[]string{"v1", "v2"}[i], "c1", "2026-07-01T00:00:00.000000000Z", "rental", "[]", amount, "", "2026-07-01T00:00:00.000000000Z")
		require.NoError(t, err)
	}

	got, err := store.RecomputeAggregates(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, 2, got.TotalVisits)
	require.True(t, got.TotalSpent.Equal(decimal.RequireFromString("55.75")), "got %s", got.TotalSpent)

	_, err = store.RecomputeAggregates(ctx, "missing")
	require.True(t, errors.Is(err, apperr.ErrNotFound))
}
