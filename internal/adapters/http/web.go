package web

import (
	"context"
	"net/http"
	"time"

	"surfshop/internal/adapters/http/middleware"
	customerStore "surfshop/internal/adapters/storage/customer"
	instructorStore "surfshop/internal/adapters/storage/instructor"
	lessonStore "surfshop/internal/adapters/storage/lesson"
	outboxStore "surfshop/internal/adapters/storage/outbox"
	visitStore "surfshop/internal/adapters/storage/visit"
	"surfshop/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	LessonStore     lessonStore.Store
	InstructorStore instructorStore.Store
	CustomerStore   customerStore.Store
	VisitStore      visitStore.Store
	OutboxStore     outboxStore.Store
}

// Pinger reports whether the record store answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures NewMux.
type Options struct {
	Location    *time.Location                 // school time zone for lesson schedules
	Outbox      *orchestrators.OutboxProcessor // immediate notice dispatch; nil leaves it to the worker
	DB          Pinger                         // health check target; nil reports healthy
	CSRFKey     []byte                         // 32 bytes
	CSRF        middleware.CSRFOptions
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	SlowRequest time.Duration
}

// server carries the handler dependencies.
type server struct {
	stores   *Stores
	outbox   *orchestrators.OutboxProcessor
	location *time.Location
	db       Pinger
}

// NewMux wires HTTP handlers for the app.
// PRE: s has every store set; opts.CSRFKey is 32 bytes
func NewMux(s *Stores, opts Options) http.Handler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	srv := &server{stores: s, outbox: opts.Outbox, location: loc, db: opts.DB}

	mux := http.NewServeMux()
	srv.registerRoutes(mux)

	middlewares := []func(http.Handler) http.Handler{
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, opts.CSRF),
	}
	if opts.RateLimiter != nil {
		middlewares = append(middlewares, middleware.RateLimit(opts.RateLimiter))
	}
	middlewares = append(middlewares, middleware.RequestLog(opts.SlowRequest))

	// RequestLog -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux, middlewares...)
}

func (s *server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/lessons", s.handleCreateLesson)
	mux.HandleFunc("GET /api/lessons", s.handleListLessons)
	mux.HandleFunc("GET /api/lessons/stats", s.handleLessonStats)
	mux.HandleFunc("GET /api/lessons/analytics/cancellations", s.handleCancellationAnalytics)
	mux.HandleFunc("GET /api/lessons/analytics/reschedules", s.handleRescheduleAnalytics)
	mux.HandleFunc("GET /api/lessons/{id}", s.handleGetLesson)
	mux.HandleFunc("DELETE /api/lessons/{id}", s.handleDeleteLesson)
	mux.HandleFunc("POST /api/lessons/{id}/participants", s.handleAddParticipant)
	mux.HandleFunc("DELETE /api/lessons/{id}/participants/{customerID}", s.handleRemoveParticipant)
	mux.HandleFunc("GET /api/lessons/{id}/roster", s.handleLessonRoster)
	mux.HandleFunc("POST /api/lessons/{id}/cancel", s.handleCancelLesson)
	mux.HandleFunc("POST /api/lessons/{id}/reschedule", s.handleRescheduleLesson)
	mux.HandleFunc("POST /api/lessons/{id}/status", s.handleUpdateLessonStatus)

	mux.HandleFunc("POST /api/instructors", s.handleSaveInstructor)
	mux.HandleFunc("GET /api/instructors", s.handleListInstructors)

	mux.HandleFunc("POST /api/customers", s.handleSaveCustomer)
	mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	mux.HandleFunc("GET /api/customers/{id}", s.handleGetCustomer)
	mux.HandleFunc("POST /api/customers/{id}/waiver", s.handleSignWaiver)
	mux.HandleFunc("POST /api/customers/{id}/visits", s.handleRecordVisit)
	mux.HandleFunc("GET /api/customers/{id}/transactions", s.handleTransactions)
	mux.HandleFunc("POST /api/customers/{id}/recompute", s.handleRecomputeCustomer)

	mux.HandleFunc("GET /api/admin/outbox", s.handleListOutbox)
	mux.HandleFunc("POST /api/admin/outbox/{id}/retry", s.handleRetryOutbox)
	mux.HandleFunc("POST /api/admin/outbox/{id}/abandon", s.handleAbandonOutbox)
}
