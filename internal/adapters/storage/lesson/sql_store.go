package lesson

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"surfshop/internal/adapters/storage"
	outboxStore "surfshop/internal/adapters/storage/outbox"
	"surfshop/internal/domain/apperr"
	domain "surfshop/internal/domain/lesson"
	"surfshop/internal/domain/outbox"
)

const lessonColumns = `id, lesson_type, instructor_id, instructor_name, max_participants, current_participants,
	lesson_date, lesson_time, location, notes, price, status, created_at, updated_at, version,
	rescheduled, reschedule_date, reschedule_time, follow_up_required, advance_notice_hours, notification_sent,
	cancellation_reason, cancellation_notes, refund_amount, refund_type, cancelled_at, processing_fee,
	weather_related, instructor_fault, customer_no_show, compensation_offered, compensation_type,
	compensation_value, total_revenue, participant_count, original_price`

// SQLStore implements Store over the shared SQL schema.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new lesson store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Lesson by its ID.
// PRE: id is non-empty
// POST: Returns the entity or a not_found error
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Lesson, error) {
	var l domain.Lesson
	err := storage.Do(ctx, "lesson.get", func(ctx context.Context) error {
		var err error
		l, err = getLesson(ctx, s.db, id)
		return err
	})
	return l, err
}

func getLesson(ctx context.Context, q storage.Queryer, id string) (domain.Lesson, error) {
	row := q.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lesson WHERE id = ?", id)
	l, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lesson{}, apperr.NotFound("lesson", id)
	}
	return l, err
}

// List retrieves lessons based on the filter.
// PRE: filter has valid parameters
// POST: Returns matching entities ordered by date and time
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Lesson, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DateFrom != "" {
		where = append(where, "lesson_date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		where = append(where, "lesson_date <= ?")
		args = append(args, filter.DateTo)
	}
	if filter.InstructorID != "" {
		where = append(where, "instructor_id = ?")
		args = append(args, filter.InstructorID)
	}
	if filter.RescheduledOnly {
		where = append(where, "rescheduled = ?")
		args = append(args, true)
	}
	query := "SELECT " + lessonColumns + " FROM lesson"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY lesson_date, lesson_time, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var out []domain.Lesson
	err := storage.Do(ctx, "lesson.list", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = nil
		for rows.Next() {
			l, err := scanLesson(rows)
			if err != nil {
				return err
			}
			out = append(out, l)
		}
		return rows.Err()
	})
	return out, err
}

// Create persists a new Lesson.
// PRE: entity has been validated
// POST: Entity is inserted; a duplicate id is a conflict
func (s *SQLStore) Create(ctx context.Context, l domain.Lesson) error {
	return storage.Do(ctx, "lesson.create", func(ctx context.Context) error {
		args := append([]any{l.ID}, lessonValues(l)...)
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO lesson ("+lessonColumns+") VALUES ("+placeholders(len(args))+")", args...)
		if storage.IsUniqueViolation(err) {
			return apperr.Conflict("lesson %q already exists", l.ID)
		}
		return err
	})
}

// Update writes l when the stored version still equals expectedVersion.
// PRE: l has been validated
// POST: All fields and notices are written together, or nothing is
func (s *SQLStore) Update(ctx context.Context, l domain.Lesson, expectedVersion int, notices ...outbox.Entry) (domain.Lesson, error) {
	l.Version = expectedVersion + 1
	err := storage.Do(ctx, "lesson.update", func(ctx context.Context) error {
		return storage.InTx(ctx, s.db, func(tx *storage.Tx) error {
			args := append(lessonValues(l), l.ID, expectedVersion)
			res, err := tx.ExecContext(ctx, `UPDATE lesson SET
				lesson_type = ?, instructor_id = ?, instructor_name = ?, max_participants = ?, current_participants = ?,
				lesson_date = ?, lesson_time = ?, location = ?, notes = ?, price = ?, status = ?, created_at = ?,
				updated_at = ?, version = ?, rescheduled = ?, reschedule_date = ?, reschedule_time = ?,
				follow_up_required = ?, advance_notice_hours = ?, notification_sent = ?, cancellation_reason = ?,
				cancellation_notes = ?, refund_amount = ?, refund_type = ?, cancelled_at = ?, processing_fee = ?,
				weather_related = ?, instructor_fault = ?, customer_no_show = ?, compensation_offered = ?,
				compensation_type = ?, compensation_value = ?, total_revenue = ?, participant_count = ?,
				original_price = ?
				WHERE id = ? AND version = ?`, args...)
			if err != nil {
				if storage.IsCheckViolation(err) {
					return apperr.Conflict("lesson capacity below current participants")
				}
				return err
			}
			if n, err := res.RowsAffected(); err != nil {
				return err
			} else if n == 0 {
				if _, err := getLesson(ctx, tx, l.ID); err != nil {
					return err
				}
				return apperr.Conflict("lesson %q was modified concurrently", l.ID)
			}
			for _, e := range notices {
				if err := outboxStore.Insert(ctx, tx, e); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return l, nil
}

// Delete removes a Lesson and its participants.
// PRE: id is non-empty
// POST: Lesson and roster are gone, or not_found
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return storage.Do(ctx, "lesson.delete", func(ctx context.Context) error {
		return storage.InTx(ctx, s.db, func(tx *storage.Tx) error {
			// Explicit so the roster goes even where foreign keys are not enforced.
			if _, err := tx.ExecContext(ctx, "DELETE FROM lesson_participant WHERE lesson_id = ?", id); err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, "DELETE FROM lesson WHERE id = ?", id)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return apperr.NotFound("lesson", id)
			}
			return nil
		})
	})
}

// AddParticipant enrolls a participant with a conditional increment.
// The increment takes the row lock first, so concurrent adds serialize on
// the lesson and can never push the counter past capacity.
func (s *SQLStore) AddParticipant(ctx context.Context, p domain.Participant) (domain.Lesson, error) {
	var l domain.Lesson
	attempts := 0
	err := storage.Do(ctx, "lesson.add_participant", func(ctx context.Context) error {
		attempts++
		var err error
		l, err = s.addParticipant(ctx, p, attempts > 1)
		return err
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return l, nil
}

// addParticipant runs one enrollment transaction. On a retried attempt a row
// for the pair with p's AddedAt is the earlier attempt's commit, so it is
// returned as success without a second increment.
func (s *SQLStore) addParticipant(ctx context.Context, p domain.Participant, retried bool) (domain.Lesson, error) {
	var l domain.Lesson
	err := storage.InTx(ctx, s.db, func(tx *storage.Tx) error {
		if retried {
			var addedAt string
			err := tx.QueryRowContext(ctx,
				"SELECT added_at FROM lesson_participant WHERE lesson_id = ? AND customer_id = ?",
				p.LessonID, p.CustomerID).Scan(&addedAt)
			if err == nil && addedAt == storage.FormatTime(p.AddedAt) {
				l, err = getLesson(ctx, tx, p.LessonID)
				return err
			}
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `UPDATE lesson
			SET current_participants = current_participants + 1, version = version + 1, updated_at = ?
			WHERE id = ? AND status = ? AND current_participants < max_participants`,
			storage.FormatTime(p.AddedAt), p.LessonID, string(domain.StatusScheduled))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			current, err := getLesson(ctx, tx, p.LessonID)
			if err != nil {
				return err
			}
			if err := current.CheckEnrollable(); err != nil {
				return err
			}
			return apperr.Conflict("lesson full")
		}

		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM lesson_participant WHERE lesson_id = ? AND customer_id = ?",
			p.LessonID, p.CustomerID).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return apperr.Conflict("already registered")
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO lesson_participant (lesson_id, customer_id, customer_name, waiver_collected, added_at) VALUES (?, ?, ?, ?, ?)",
			p.LessonID, p.CustomerID, p.CustomerName, p.WaiverCollected, storage.FormatTime(p.AddedAt))
		if storage.IsUniqueViolation(err) {
			return apperr.Conflict("already registered")
		}
		if err != nil {
			return err
		}
		l, err = getLesson(ctx, tx, p.LessonID)
		return err
	})
	return l, err
}

// RemoveParticipant deletes the (lesson, customer) row and decrements the counter.
func (s *SQLStore) RemoveParticipant(ctx context.Context, lessonID, customerID string) (domain.Lesson, error) {
	var l domain.Lesson
	err := storage.Do(ctx, "lesson.remove_participant", func(ctx context.Context) error {
		return storage.InTx(ctx, s.db, func(tx *storage.Tx) error {
			// Lock the lesson row before touching the roster.
			res, err := tx.ExecContext(ctx, `UPDATE lesson
				SET current_participants = current_participants - 1, version = version + 1
				WHERE id = ? AND status IN (?, ?) AND current_participants > 0`,
				lessonID, string(domain.StatusScheduled), string(domain.StatusInProgress))
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				current, err := getLesson(ctx, tx, lessonID)
				if err != nil {
					return err
				}
				if current.Status.IsTerminal() {
					return apperr.Conflict("cannot change the roster of a %s lesson", current.Status)
				}
				return apperr.NotFound("participant", customerID)
			}

			res, err = tx.ExecContext(ctx,
				"DELETE FROM lesson_participant WHERE lesson_id = ? AND customer_id = ?", lessonID, customerID)
			if err != nil {
				return err
			}
			if n, err = res.RowsAffected(); err != nil {
				return err
			}
			if n == 0 {
				return apperr.NotFound("participant", customerID)
			}
			l, err = getLesson(ctx, tx, lessonID)
			return err
		})
	})
	if err != nil {
		return domain.Lesson{}, err
	}
	return l, nil
}

// ListParticipants returns the roster of a lesson in enrollment order.
func (s *SQLStore) ListParticipants(ctx context.Context, lessonID string) ([]domain.Participant, error) {
	var out []domain.Participant
	err := storage.Do(ctx, "lesson.list_participants", func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT lesson_id, customer_id, customer_name, waiver_collected, added_at FROM lesson_participant WHERE lesson_id = ? ORDER BY added_at, customer_id",
			lessonID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = nil
		for rows.Next() {
			var p domain.Participant
			var addedAt string
			if err := rows.Scan(&p.LessonID, &p.CustomerID, &p.CustomerName, &p.WaiverCollected, &addedAt); err != nil {
				return err
			}
			if p.AddedAt, err = storage.ParseTime(addedAt); err != nil {
				return fmt.Errorf("parse added_at: %w", err)
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// lessonValues returns every column after id, in lessonColumns order.
func lessonValues(l domain.Lesson) []any {
	c := l.Cancellation
	var cancelledAt sql.NullString
	if !c.CancelledAt.IsZero() {
		cancelledAt = sql.NullString{String: storage.FormatTime(c.CancelledAt), Valid: true}
	}
	var instructorID sql.NullString
	if l.InstructorID != "" {
		instructorID = sql.NullString{String: l.InstructorID, Valid: true}
	}
	return []any{
		string(l.Type), instructorID, l.InstructorName, l.MaxParticipants, l.CurrentParticipants,
		l.Date, l.Time, l.Location, l.Notes, l.Price.String(), string(l.Status),
		storage.FormatTime(l.CreatedAt), storage.FormatTime(l.UpdatedAt), l.Version,
		l.Rescheduled, l.RescheduleDate, l.RescheduleTime, l.FollowUpRequired, l.AdvanceNoticeHours, l.NotificationSent,
		c.Reason, c.Notes, c.RefundAmount.String(), string(c.RefundType), cancelledAt, c.ProcessingFee.String(),
		c.WeatherRelated, c.InstructorFault, c.CustomerNoShow, c.CompensationOffered, string(c.CompensationType),
		c.CompensationValue.String(), c.TotalRevenue.String(), c.ParticipantCount, c.OriginalPrice.String(),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLesson(row scanner) (domain.Lesson, error) {
	var l domain.Lesson
	c := &l.Cancellation
	var instructorID, cancelledAt sql.NullString
	var createdAt, updatedAt, lessonType, status, refundType, compType string
	err := row.Scan(
		&l.ID, &lessonType, &instructorID, &l.InstructorName, &l.MaxParticipants, &l.CurrentParticipants,
		&l.Date, &l.Time, &l.Location, &l.Notes, &l.Price, &status, &createdAt, &updatedAt, &l.Version,
		&l.Rescheduled, &l.RescheduleDate, &l.RescheduleTime, &l.FollowUpRequired, &l.AdvanceNoticeHours, &l.NotificationSent,
		&c.Reason, &c.Notes, &c.RefundAmount, &refundType, &cancelledAt, &c.ProcessingFee,
		&c.WeatherRelated, &c.InstructorFault, &c.CustomerNoShow, &c.CompensationOffered, &compType,
		&c.CompensationValue, &c.TotalRevenue, &c.ParticipantCount, &c.OriginalPrice,
	)
	if err != nil {
		return domain.Lesson{}, err
	}
	l.Type = domain.Type(lessonType)
	l.Status = domain.Status(status)
	l.InstructorID = instructorID.String
	c.RefundType = domain.RefundType(refundType)
	c.CompensationType = domain.CompensationType(compType)
	if l.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Lesson{}, fmt.Errorf("parse created_at: %w", err)
	}
	if l.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
		return domain.Lesson{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if cancelledAt.Valid {
		if c.CancelledAt, err = storage.ParseTime(cancelledAt.String); err != nil {
			return domain.Lesson{}, fmt.Errorf("parse cancelled_at: %w", err)
		}
	}
	return l, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
