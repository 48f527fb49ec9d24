package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"surfshop/internal/adapters/storage"
	"surfshop/internal/domain/apperr"
	domain "surfshop/internal/domain/outbox"
)

const entryColumns = "id, action_type, aggregate_id, payload, status, attempts, max_attempts, last_attempted_at, created_at, external_id, error_message"

// SQLStore implements Store over the shared SQL schema.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new outbox store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	var e domain.Entry
	err := storage.Do(ctx, "outbox.get", func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM outbox WHERE id = ?", id)
		var err error
		e, err = scanEntry(row)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("outbox entry", id)
		}
		return err
	})
	return e, err
}

// Save persists an outbox entry to the database.
func (s *SQLStore) Save(ctx context.Context, e domain.Entry) error {
	return storage.Do(ctx, "outbox.save", func(ctx context.Context) error {
		return Insert(ctx, s.db, e)
	})
}

// Insert upserts e through q, so callers can enqueue inside their own transaction.
// PRE: e has been validated
// POST: e is persisted when q's transaction commits
func Insert(ctx context.Context, q storage.Queryer, e domain.Entry) error {
	lastAttempted := ""
	if !e.LastAttemptedAt.IsZero() {
		lastAttempted = storage.FormatTime(e.LastAttemptedAt)
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO outbox (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			attempts = excluded.attempts,
			max_attempts = excluded.max_attempts,
			last_attempted_at = excluded.last_attempted_at,
			external_id = excluded.external_id,
			error_message = excluded.error_message`,
		e.ID, e.ActionType, e.AggregateID, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		lastAttempted, storage.FormatTime(e.CreatedAt), e.ExternalID, e.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListPending returns entries that need to be processed (pending or retrying).
func (s *SQLStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	var out []domain.Entry
	err := storage.Do(ctx, "outbox.list_pending", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+entryColumns+" FROM outbox WHERE status IN (?, ?, ?) ORDER BY created_at ASC LIMIT ?",
			domain.StatusPending, domain.StatusRetrying, domain.StatusProcessing, limit)
		if err != nil {
			return err
		}
		out, err = scanEntries(rows)
		return err
	})
	return out, err
}

// Claim writes claimed's attempt only if the row still has prevStatus and
// prevAttempts, so concurrent callers cannot both deliver one entry.
// PRE: claimed came from MarkAttempt on an entry read with prevStatus/prevAttempts
// POST: Returns true when this caller now holds the entry
func (s *SQLStore) Claim(ctx context.Context, claimed domain.Entry, prevStatus string, prevAttempts int) (bool, error) {
	var won bool
	err := storage.Do(ctx, "outbox.claim", func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE outbox SET status = ?, attempts = ?, last_attempted_at = ?
			 WHERE id = ? AND status = ? AND attempts = ?`,
			claimed.Status, claimed.Attempts, storage.FormatTime(claimed.LastAttemptedAt),
			claimed.ID, prevStatus, prevAttempts)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		won = n == 1
		return nil
	})
	return won, err
}

// ListFailed returns entries that have permanently failed.
func (s *SQLStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	var out []domain.Entry
	err := storage.Do(ctx, "outbox.list_failed", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+entryColumns+" FROM outbox WHERE status = ? AND attempts >= max_attempts ORDER BY last_attempted_at DESC LIMIT ?",
			domain.StatusFailed, limit)
		if err != nil {
			return err
		}
		out, err = scanEntries(rows)
		return err
	})
	return out, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var e domain.Entry
	var createdAt, lastAttemptedAt string
	err := row.Scan(&e.ID, &e.ActionType, &e.AggregateID, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	if e.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Entry{}, fmt.Errorf("parse outbox created_at: %w", err)
	}
	if lastAttemptedAt != "" {
		if e.LastAttemptedAt, err = storage.ParseTime(lastAttemptedAt); err != nil {
			return domain.Entry{}, fmt.Errorf("parse outbox last_attempted_at: %w", err)
		}
	}
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]domain.Entry, error) {
	defer rows.Close()
	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
