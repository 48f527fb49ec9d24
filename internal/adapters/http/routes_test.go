package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"surfshop/internal/adapters/email"
	"surfshop/internal/adapters/events"
	"surfshop/internal/adapters/storage/customer"
	"surfshop/internal/adapters/storage/instructor"
	"surfshop/internal/adapters/storage/lesson"
	"surfshop/internal/adapters/storage/outbox"
	"surfshop/internal/adapters/storage/storagetest"
	"surfshop/internal/adapters/storage/visit"
	"surfshop/internal/application/orchestrators"
	"surfshop/internal/application/projections"
	customerDomain "surfshop/internal/domain/customer"
	instructorDomain "surfshop/internal/domain/instructor"
	lessonDomain "surfshop/internal/domain/lesson"
	outboxDomain "surfshop/internal/domain/outbox"
)

var routeNow = time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)

type testApp struct {
	handler   http.Handler
	stores    *Stores
	sender    *email.NoopSender
	publisher *events.NoopPublisher
}

// newTestApp wires the mux over a migrated in-memory database.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return routeNow }
	t.Cleanup(func() { timeNow = prev })

	db := storagetest.Open(t)
	stores := &Stores{
		LessonStore:     lesson.NewSQLStore(db),
		InstructorStore: instructor.NewSQLStore(db),
		CustomerStore:   customer.NewSQLStore(db),
		VisitStore:      visit.NewSQLStore(db),
		OutboxStore:     outbox.NewSQLStore(db),
	}
	sender := email.NewNoopSender()
	publisher := &events.NoopPublisher{}
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outboxDomain.ActionCancellationNotice: &orchestrators.CancellationNoticeExecutor{Deps: orchestrators.NotifyCancellationDeps{
			LessonStore: stores.LessonStore,
			Customers:   stores.CustomerStore,
			Sender:      sender,
			Publisher:   publisher,
			SchoolName:  "North Shore Surf",
			Now:         timeNow,
		}},
	}, timeNow)

	handler := NewMux(stores, Options{
		Location: time.UTC,
		Outbox:   processor,
		DB:       db,
		CSRFKey:  []byte(strings.Repeat("k", 32)),
	})
	return &testApp{handler: handler, stores: stores, sender: sender, publisher: publisher}
}

// do sends a JSON request and returns the recorder.
func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (a *testApp) createCustomer(t *testing.T, first, last, mail string) customerDomain.Customer {
	t.Helper()
	rr := a.do(t, "POST", "/api/customers", map[string]any{"first_name": first, "last_name": last, "email": mail})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeBody[customerDomain.Customer](t, rr)
}

func (a *testApp) createLesson(t *testing.T, capacity int) lessonDomain.Lesson {
	t.Helper()
	rr := a.do(t, "POST", "/api/instructors", map[string]any{"name": "Kai Mahoe", "specialties": []string{"longboard"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	inst := decodeBody[instructorDomain.Instructor](t, rr)

	rr = a.do(t, "POST", "/api/lessons", map[string]any{
		"type": "group", "instructor_id": inst.ID, "max_participants": capacity,
		"date": "2026-07-12", "time": "09:30", "location": "North Beach", "price": "75.00",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	l := decodeBody[lessonDomain.Lesson](t, rr)
	require.Equal(t, "Kai Mahoe", l.InstructorName)
	require.Equal(t, lessonDomain.StatusScheduled, l.Status)
	return l
}

// TestLessonLifecycle_EnrollCancelNotify walks a lesson from creation to a notified cancellation.
func TestLessonLifecycle_EnrollCancelNotify(t *testing.T) {
	app := newTestApp(t)
	l := app.createLesson(t, 2)
	ana := app.createCustomer(t, "Ana", "Silva", "ana@example.com")
	ben := app.createCustomer(t, "Ben", "Ono", "")
	cy := app.createCustomer(t, "Cy", "Lee", "cy@example.com")

	rr := app.do(t, "POST", "/api/customers/"+ana.ID+"/waiver", "{}")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	base := "/api/lessons/" + l.ID
	for _, c := range []customerDomain.Customer{ana, ben} {
		rr = app.do(t, "POST", base+"/participants", map[string]any{"customer_id": c.ID, "customer_name": c.FullName()})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	rr = app.do(t, "POST", base+"/participants", map[string]any{"customer_id": ana.ID, "customer_name": "Ana Silva"})
	require.Equal(t, http.StatusConflict, rr.Code)
	rr = app.do(t, "POST", base+"/participants", map[string]any{"customer_id": cy.ID, "customer_name": "Cy Lee"})
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "lesson full")
	rr = app.do(t, "POST", base+"/participants", map[string]any{"customer_id": "no-such-customer", "customer_name": "Ghost"})
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())

	rr = app.do(t, "GET", base+"/roster", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	roster := decodeBody[projections.LessonRoster](t, rr)
	require.Len(t, roster.Participants, 2)
	require.Equal(t, 1, roster.WaiversMissing)

	rr = app.do(t, "POST", base+"/cancel", map[string]any{
		"reason": lessonDomain.ReasonWeather, "refund_type": "full", "weather_related": true,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	result := decodeBody[orchestrators.CancelLessonResult](t, rr)
	require.True(t, decimal.RequireFromString("150").Equal(result.Quote.FinalRefund), result.Quote.FinalRefund.String())
	require.True(t, result.Quote.ProcessingFee.IsZero())
	require.Equal(t, 50, result.Lesson.AdvanceNoticeHours)

	sent := app.sender.Sent()
	require.Len(t, sent, 1, "only the participant with an email is notified")
	require.Equal(t, []string{"ana@example.com"}, sent[0].To)
	require.Len(t, app.publisher.Published(), 1)

	rr = app.do(t, "GET", base, nil)
	stored := decodeBody[lessonDomain.Lesson](t, rr)
	require.Equal(t, lessonDomain.StatusCancelled, stored.Status)
	require.True(t, stored.NotificationSent)
	require.Equal(t, 2, stored.CurrentParticipants, "participants are untouched by cancel")

	rr = app.do(t, "POST", base+"/cancel", map[string]any{"reason": lessonDomain.ReasonOther, "refund_type": "none"})
	require.Equal(t, http.StatusConflict, rr.Code)
	rr = app.do(t, "DELETE", base+"/participants/"+ben.ID, nil)
	require.Equal(t, http.StatusConflict, rr.Code, "roster of a cancelled lesson is history")

	rr = app.do(t, "GET", "/api/lessons/analytics/cancellations?from=2026-07-01&to=2026-07-31", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	analytics := decodeBody[projections.CancellationAnalytics](t, rr)
	require.Equal(t, 1, analytics.TotalCancellations)
	require.Equal(t, 0, analytics.NotificationsPending)
}

// TestLessonLifecycle_StatusAndReschedule tests transitions and the reschedule note.
func TestLessonLifecycle_StatusAndReschedule(t *testing.T) {
	app := newTestApp(t)
	l := app.createLesson(t, 4)
	base := "/api/lessons/" + l.ID

	rr := app.do(t, "POST", base+"/reschedule", map[string]any{"date": "2026-07-11", "time": "07:00", "notes": "swell"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	moved := decodeBody[lessonDomain.Lesson](t, rr)
	require.True(t, moved.Rescheduled)
	require.Equal(t, "2026-07-11", moved.Date)
	require.Contains(t, moved.Notes, "Rescheduled from 2026-07-12 09:30: swell")

	rr = app.do(t, "POST", base+"/status", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusConflict, rr.Code)
	rr = app.do(t, "POST", base+"/status", map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = app.do(t, "POST", base+"/status", map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = app.do(t, "POST", base+"/reschedule", map[string]any{"date": "2026-07-13", "time": "07:00"})
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = app.do(t, "GET", "/api/lessons/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[projections.LessonStats](t, rr)
	require.Equal(t, 1, stats.InProgress)

	rr = app.do(t, "GET", "/api/lessons?rescheduled=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decodeBody[[]lessonDomain.Lesson](t, rr), 1)

	rr = app.do(t, "DELETE", base, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = app.do(t, "DELETE", base, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

// TestCustomerLedger_RecordVisit tests visits update aggregates and history.
func TestCustomerLedger_RecordVisit(t *testing.T) {
	app := newTestApp(t)
	c := app.createCustomer(t, "Mia", "Kahale", "mia@example.com")
	path := "/api/customers/" + c.ID

	rr := app.do(t, "POST", path+"/visits", map[string]any{
		"type":  "rental",
		"items": []map[string]any{{"kind": "equipment", "name": "Longboard", "quantity": 2, "price": "20.00"}},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = app.do(t, "POST", path+"/visits", map[string]any{"type": "campground", "total_amount": "35.50"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = app.do(t, "GET", path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decodeBody[projections.CustomerProfile](t, rr)
	require.Equal(t, 2, profile.Customer.TotalVisits)
	require.True(t, decimal.RequireFromString("75.50").Equal(profile.Customer.TotalSpent), profile.Customer.TotalSpent.String())
	require.True(t, profile.Customer.IsCampgroundGuest)
	require.Equal(t, customerDomain.WaiverNone, profile.WaiverStatus)

	rr = app.do(t, "GET", path+"/transactions?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	txns := decodeBody[[]projections.Transaction](t, rr)
	require.Len(t, txns, 1)

	rr = app.do(t, "GET", "/api/customers?campground=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rows := decodeBody[[]projections.CustomerRow](t, rr)
	require.Len(t, rows, 1)
	require.True(t, rows[0].CampgroundDiscountEligible)

	rr = app.do(t, "GET", "/api/customers/nope/transactions", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	rr = app.do(t, "POST", "/api/customers/nope/visits", map[string]any{"type": "waiver_only"})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

// TestErrorMapping tests request errors reach the client with the right status.
func TestErrorMapping(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing lesson", "GET", "/api/lessons/missing", nil, http.StatusNotFound},
		{"malformed body", "POST", "/api/lessons", `{"type":`, http.StatusBadRequest},
		{"unknown field", "POST", "/api/customers", `{"first_name":"A","last_name":"B","shoe_size":9}`, http.StatusBadRequest},
		{"invalid lesson", "POST", "/api/lessons", map[string]any{"type": "group", "max_participants": 0, "date": "2026-07-12", "time": "09:30", "location": "X", "price": "10"}, http.StatusBadRequest},
		{"bad date filter", "GET", "/api/lessons?from=12/07/2026", nil, http.StatusBadRequest},
		{"bad status filter", "GET", "/api/customers?status=vip", nil, http.StatusBadRequest},
		{"wrong method", "PUT", "/api/lessons", nil, http.StatusMethodNotAllowed},
		{"health", "GET", "/healthz", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	rr := app.do(t, "GET", "/api/lessons/missing", nil)
	body := decodeBody[errorBody](t, rr)
	require.Equal(t, "not_found", string(body.Error))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

// TestAdminOutbox tests listing, abandoning and retrying outbox entries.
func TestAdminOutbox(t *testing.T) {
	app := newTestApp(t)
	entry := outboxDomain.New("ob-1", outboxDomain.ActionCancellationNotice, "l-gone", `{"lesson_id":"l-gone"}`, routeNow)
	require.NoError(t, app.stores.OutboxStore.Save(t.Context(), entry))

	rr := app.do(t, "GET", "/api/admin/outbox?status=pending", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	pending := decodeBody[[]outboxDomain.Entry](t, rr)
	require.Len(t, pending, 1)
	require.Equal(t, "ob-1", pending[0].ID)

	rr = app.do(t, "GET", "/api/admin/outbox", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, decodeBody[[]outboxDomain.Entry](t, rr), "failed entries are listed by default")

	rr = app.do(t, "GET", "/api/admin/outbox?status=sent", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = app.do(t, "POST", "/api/admin/outbox/ob-1/abandon", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = app.do(t, "GET", "/api/admin/outbox?status=pending", nil)
	require.Empty(t, decodeBody[[]outboxDomain.Entry](t, rr))

	rr = app.do(t, "POST", "/api/admin/outbox/ob-1/retry", nil)
	require.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())

	rr = app.do(t, "POST", "/api/admin/outbox/missing/retry", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
