package instructor

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"surfshop/internal/adapters/storage"
	"surfshop/internal/domain/apperr"
	domain "surfshop/internal/domain/instructor"
)

// SQLStore implements Store over the shared SQL schema.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new instructor store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an Instructor by its ID.
// PRE: id is non-empty
// POST: Returns the entity or a not_found error
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Instructor, error) {
	var i domain.Instructor
	err := storage.Do(ctx, "instructor.get", func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx,
			"SELECT id, name, email, phone, specialties, active, created_at FROM instructor WHERE id = ?", id)
		var err error
		i, err = scanInstructor(row)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("instructor", id)
		}
		return err
	})
	return i, err
}

// List retrieves instructors ordered by name.
func (s *SQLStore) List(ctx context.Context, activeOnly bool) ([]domain.Instructor, error) {
	query := "SELECT id, name, email, phone, specialties, active, created_at FROM instructor"
	var args []any
	if activeOnly {
		query += " WHERE active = ?"
		args = append(args, true)
	}
	query += " ORDER BY name, id"

	var out []domain.Instructor
	err := storage.Do(ctx, "instructor.list", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = nil
		for rows.Next() {
			i, err := scanInstructor(rows)
			if err != nil {
				return err
			}
			out = append(out, i)
		}
		return rows.Err()
	})
	return out, err
}

// Save persists an Instructor (insert or update).
// PRE: entity has been validated
// POST: Entity is persisted
func (s *SQLStore) Save(ctx context.Context, i domain.Instructor) error {
	specialties := i.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	encoded, err := json.Marshal(specialties)
	if err != nil {
		return fmt.Errorf("encode specialties: %w", err)
	}
	return storage.Do(ctx, "instructor.save", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO instructor (id, name, email, phone, specialties, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				email = excluded.email,
				phone = excluded.phone,
				specialties = excluded.specialties,
				active = excluded.active`,
			i.ID, i.Name, i.Email, i.Phone, string(encoded), i.Active, storage.FormatTime(i.CreatedAt))
		return err
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstructor(row scanner) (domain.Instructor, error) {
	var i domain.Instructor
	var specialties, createdAt string
	if err := row.Scan(&i.ID, &i.Name, &i.Email, &i.Phone, &specialties, &i.Active, &createdAt); err != nil {
		return domain.Instructor{}, err
	}
	if err := json.Unmarshal([]byte(specialties), &i.Specialties); err != nil {
		return domain.Instructor{}, fmt.Errorf("decode specialties: %w", err)
	}
	var err error
	if i.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Instructor{}, fmt.Errorf("parse created_at: %w", err)
	}
	return i, nil
}
