package visit

import (
	"context"
	"encoding/json"
	"fmt"

	"surfshop/internal/adapters/storage"
	customerStore "surfshop/internal/adapters/storage/customer"
	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
	domain "surfshop/internal/domain/visit"
)

// SQLStore implements Store over the shared SQL schema.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new visit store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Append inserts a visit and refreshes the customer aggregates.
// The customer row is updated first so concurrent appends for one customer
// serialize on it.
func (s *SQLStore) Append(ctx context.Context, v domain.Visit) (customer.Customer, error) {
	items, err := json.Marshal(itemsOrEmpty(v.Items))
	if err != nil {
		return customer.Customer{}, fmt.Errorf("encode items: %w", err)
	}
	var c customer.Customer
	err = storage.Do(ctx, "visit.append", func(ctx context.Context) error {
		return storage.InTx(ctx, s.db, func(tx *storage.Tx) error {
			res, err := tx.ExecContext(ctx, `UPDATE customer
				SET total_visits = total_visits + 1,
					is_campground_guest = CASE WHEN ? THEN TRUE ELSE is_campground_guest END,
					updated_at = ?
				WHERE id = ?`,
				v.Type == domain.TypeCampground, storage.FormatTime(v.CreatedAt), v.CustomerID)
			if err != nil {
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				return apperr.NotFound("customer", v.CustomerID)
			}

			_, err = tx.ExecContext(ctx,
				"INSERT INTO customer_visit (id, customer_id, visit_date, visit_type, items, total_amount, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				v.ID, v.CustomerID, storage.FormatTime(v.Date), string(v.Type), string(items),
				v.TotalAmount.String(), v.Notes, storage.FormatTime(v.CreatedAt))
			if storage.IsUniqueViolation(err) {
				return apperr.Conflict("visit %q already recorded", v.ID)
			}
			if err != nil {
				return err
			}
			if err := customerStore.UpdateSpent(ctx, tx, v.CustomerID); err != nil {
				return err
			}
			c, err = customerStore.Get(ctx, tx, v.CustomerID)
			return err
		})
	})
	if err != nil {
		return customer.Customer{}, err
	}
	return c, nil
}

// ListByCustomer retrieves a customer's visits, newest first.
func (s *SQLStore) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Visit, error) {
	query := "SELECT id, customer_id, visit_date, visit_type, items, total_amount, notes, created_at FROM customer_visit WHERE customer_id = ? ORDER BY visit_date DESC, created_at DESC, id"
	args := []any{customerID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var out []domain.Visit
	err := storage.Do(ctx, "visit.list", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = nil
		for rows.Next() {
			var v domain.Visit
			var date, visitType, items, createdAt string
			if err := rows.Scan(&v.ID, &v.CustomerID, &date, &visitType, &items, &v.TotalAmount, &v.Notes, &createdAt); err != nil {
				return err
			}
			v.Type = domain.Type(visitType)
			if err := json.Unmarshal([]byte(items), &v.Items); err != nil {
				return fmt.Errorf("decode items of visit %s: %w", v.ID, err)
			}
			if v.Date, err = storage.ParseTime(date); err != nil {
				return fmt.Errorf("parse visit_date: %w", err)
			}
			if v.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
				return fmt.Errorf("parse created_at: %w", err)
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func itemsOrEmpty(items []domain.Item) []domain.Item {
	if items == nil {
		return []domain.Item{}
	}
	return items
}
