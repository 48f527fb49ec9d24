package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"surfshop/internal/adapters/storage"
	"surfshop/internal/domain/apperr"
	domain "surfshop/internal/domain/customer"
)

const customerColumns = `id, first_name, last_name, email, phone, emergency_contact, waiver_signed,
	waiver_signed_at, waiver_expiry_date, total_visits, total_spent, is_campground_guest, campground_site,
	campground_check_in, campground_check_out, status, notes, created_at, updated_at`

// SQLStore implements Store over the shared SQL schema.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new customer store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Customer by its ID.
// PRE: id is non-empty
// POST: Returns the entity or a not_found error
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := storage.Do(ctx, "customer.get", func(ctx context.Context) error {
		var err error
		c, err = Get(ctx, s.db, id)
		return err
	})
	return c, err
}

// Get reads one customer through q, which may be an open transaction.
func Get(ctx context.Context, q storage.Queryer, id string) (domain.Customer, error) {
	row := q.QueryRowContext(ctx, "SELECT "+customerColumns+" FROM customer WHERE id = ?", id)
	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, apperr.NotFound("customer", id)
	}
	return c, err
}

// List retrieves customers based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by last then first name
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Customer, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		where = append(where, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, like, like, like)
	}
	if filter.CampgroundOnly {
		where = append(where, "is_campground_guest = ?")
		args = append(args, true)
	}
	query := "SELECT " + customerColumns + " FROM customer"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_name, first_name, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var out []domain.Customer
	err := storage.Do(ctx, "customer.list", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = nil
		for rows.Next() {
			c, err := scanCustomer(rows)
			if err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

// Save persists a Customer, preserving stored aggregates on update.
// PRE: entity has been validated
// POST: Entity is inserted or its editable fields are replaced
func (s *SQLStore) Save(ctx context.Context, c domain.Customer) error {
	return storage.Do(ctx, "customer.save", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO customer (`+customerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				email = excluded.email,
				phone = excluded.phone,
				emergency_contact = excluded.emergency_contact,
				waiver_signed = excluded.waiver_signed,
				waiver_signed_at = excluded.waiver_signed_at,
				waiver_expiry_date = excluded.waiver_expiry_date,
				is_campground_guest = excluded.is_campground_guest,
				campground_site = excluded.campground_site,
				campground_check_in = excluded.campground_check_in,
				campground_check_out = excluded.campground_check_out,
				status = excluded.status,
				notes = excluded.notes,
				updated_at = excluded.updated_at`,
			c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.EmergencyContact, c.WaiverSigned,
			storage.NullTime(c.WaiverSignedAt), storage.NullTime(c.WaiverExpiryDate),
			c.TotalVisits, c.TotalSpent.String(), c.IsCampgroundGuest, c.CampgroundSite,
			storage.NullTime(c.CampgroundCheckIn), storage.NullTime(c.CampgroundCheckOut),
			string(c.Status), c.Notes, storage.FormatTime(c.CreatedAt), storage.FormatTime(c.UpdatedAt),
		)
		return err
	})
}

// RecomputeAggregates rebuilds the customer's totals from the visit ledger.
func (s *SQLStore) RecomputeAggregates(ctx context.Context, id string) (domain.Customer, error) {
	var c domain.Customer
	err := storage.Do(ctx, "customer.recompute", func(ctx context.Context) error {
		return storage.InTx(ctx, s.db, func(tx *storage.Tx) error {
			visits, spent, err := ledgerTotals(ctx, tx, id)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx,
				"UPDATE customer SET total_visits = ?, total_spent = ? WHERE id = ?", visits, spent.String(), id)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return apperr.NotFound("customer", id)
			}
			c, err = Get(ctx, tx, id)
			return err
		})
	})
	return c, err
}

// UpdateSpent sets total_spent from the ledger sum inside an open transaction.
func UpdateSpent(ctx context.Context, tx *storage.Tx, id string) error {
	_, spent, err := ledgerTotals(ctx, tx, id)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "UPDATE customer SET total_spent = ? WHERE id = ?", spent.String(), id)
	return err
}

// ledgerTotals sums in decimal; SQL SUM over TEXT amounts would go through floats.
func ledgerTotals(ctx context.Context, q storage.Queryer, id string) (int, decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, "SELECT total_amount FROM customer_visit WHERE customer_id = ?", id)
	if err != nil {
		return 0, decimal.Zero, err
	}
	defer rows.Close()
	count := 0
	sum := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return 0, decimal.Zero, err
		}
		sum = sum.Add(amount)
		count++
	}
	return count, sum, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (domain.Customer, error) {
	var c domain.Customer
	var signedAt, expiry, checkIn, checkOut sql.NullString
	var status, createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.EmergencyContact, &c.WaiverSigned,
		&signedAt, &expiry, &c.TotalVisits, &c.TotalSpent, &c.IsCampgroundGuest, &c.CampgroundSite,
		&checkIn, &checkOut, &status, &c.Notes, &createdAt, &updatedAt)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Status = domain.Status(status)
	if c.WaiverSignedAt, err = storage.ParseNullTime(signedAt); err != nil {
		return domain.Customer{}, fmt.Errorf("parse waiver_signed_at: %w", err)
	}
	if c.WaiverExpiryDate, err = storage.ParseNullTime(expiry); err != nil {
		return domain.Customer{}, fmt.Errorf("parse waiver_expiry_date: %w", err)
	}
	if c.CampgroundCheckIn, err = storage.ParseNullTime(checkIn); err != nil {
		return domain.Customer{}, fmt.Errorf("parse campground_check_in: %w", err)
	}
	if c.CampgroundCheckOut, err = storage.ParseNullTime(checkOut); err != nil {
		return domain.Customer{}, fmt.Errorf("parse campground_check_out: %w", err)
	}
	if c.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Customer{}, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return domain.Customer{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, nil
}
