package projections

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	customerStore "surfshop/internal/adapters/storage/customer"
	lessonStore "surfshop/internal/adapters/storage/lesson"
	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/lesson"
	"surfshop/internal/domain/visit"
)

var projectionNow = time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)

func projectionClock() time.Time { return projectionNow }

// stubLessons filters by status and rescheduled flag like the SQL store.
type stubLessons struct {
	lessons      []lesson.Lesson
	participants map[string][]lesson.Participant
}

func (s *stubLessons) GetByID(_ context.Context, id string) (lesson.Lesson, error) {
	for _, l := range s.lessons {
		if l.ID == id {
			return l, nil
		}
	}
	return lesson.Lesson{}, apperr.NotFound("lesson", id)
}

func (s *stubLessons) List(_ context.Context, f lessonStore.ListFilter) ([]lesson.Lesson, error) {
	var out []lesson.Lesson
	for _, l := range s.lessons {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.RescheduledOnly && !l.Rescheduled {
			continue
		}
		if (f.DateFrom != "" && l.Date < f.DateFrom) || (f.DateTo != "" && l.Date > f.DateTo) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *stubLessons) ListParticipants(_ context.Context, id string) ([]lesson.Participant, error) {
	return s.participants[id], nil
}

type stubCustomers struct {
	customers []customer.Customer
	visits    []visit.Visit
}

func (s *stubCustomers) GetByID(_ context.Context, id string) (customer.Customer, error) {
	for _, c := range s.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return customer.Customer{}, apperr.NotFound("customer", id)
}

func (s *stubCustomers) List(_ context.Context, _ customerStore.ListFilter) ([]customer.Customer, error) {
	return s.customers, nil
}

func (s *stubCustomers) ListByCustomer(_ context.Context, id string, limit int) ([]visit.Visit, error) {
	var out []visit.Visit
	for _, v := range s.visits {
		if v.CustomerID == id {
			out = append(out, v)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func lessonAt(id, date string, status lesson.Status, current, capacity int, price string) lesson.Lesson {
	return lesson.Lesson{
		ID: id, Type: lesson.TypeGroup, Date: date, Time: "09:00", Location: "North Beach",
		Status: status, CurrentParticipants: current, MaxParticipants: capacity,
		Price: decimal.RequireFromString(price), Version: 1,
	}
}

func timePtr(t time.Time) *time.Time { return &t }
