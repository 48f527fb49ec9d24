package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"surfshop/internal/adapters/email"
	"surfshop/internal/adapters/events"
	web "surfshop/internal/adapters/http"
	"surfshop/internal/adapters/http/middleware"
	"surfshop/internal/adapters/storage"
	customerStore "surfshop/internal/adapters/storage/customer"
	instructorStore "surfshop/internal/adapters/storage/instructor"
	lessonStore "surfshop/internal/adapters/storage/lesson"
	outboxStore "surfshop/internal/adapters/storage/outbox"
	visitStore "surfshop/internal/adapters/storage/visit"
	"surfshop/internal/application/orchestrators"
	"surfshop/internal/domain/outbox"
	"surfshop/internal/platform/config"
	"surfshop/internal/platform/otel"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Setup(ctx, "surfshop", version, cfg.OTelEndpoint)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing_shutdown_failed", "error", err)
		}
	}()

	storage.SetPolicy(storage.Policy{
		Timeout: cfg.StoreTimeout,
		Retries: cfg.StoreRetries,
		Backoff: storage.DefaultPolicy.Backoff,
	})
	dialect, err := storage.ParseDialect(cfg.DBDialect)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	db, err := storage.Open(ctx, dialect, cfg.DBDSN, storage.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		SlowQuery:    cfg.SlowQuery,
	})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Printf("Database ready (dialect=%s, schema=%s)", dialect, storage.LatestSchemaVersion())

	stores := &web.Stores{
		LessonStore:     lessonStore.NewSQLStore(db),
		InstructorStore: instructorStore.NewSQLStore(db),
		CustomerStore:   customerStore.NewSQLStore(db),
		VisitStore:      visitStore.NewSQLStore(db),
		OutboxStore:     outboxStore.NewSQLStore(db),
	}

	var sender email.Sender
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			log.Println("WARNING: SURFSHOP_RESEND_API_KEY is not set, cancellation emails are DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set SURFSHOP_RESEND_API_KEY for real delivery)")
		}
	}

	var publisher events.Publisher = &events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher := events.NewAMQPPublisher(cfg.AMQPURL)
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Println("Event publisher configured (AMQP)")
	}

	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionCancellationNotice: &orchestrators.CancellationNoticeExecutor{Deps: orchestrators.NotifyCancellationDeps{
			LessonStore: stores.LessonStore,
			Customers:   stores.CustomerStore,
			Sender:      sender,
			Publisher:   publisher,
			SchoolName:  cfg.SchoolName,
			Now:         time.Now,
		}},
	}, time.Now)
	workerDone := orchestrators.StartBackgroundWorker(ctx, processor, cfg.OutboxInterval)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	csrfKey, err := cfg.CSRFKey()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	go limiter.Run(ctx, time.Minute)

	handler := web.NewMux(stores, web.Options{
		Location:    loc,
		Outbox:      processor,
		DB:          db,
		CSRFKey:     csrfKey,
		CSRF:        middleware.CSRFOptions{Secure: cfg.IsProduction(), TrustedOrigins: cfg.TrustedOrigins},
		RateLimiter: limiter,
		SlowRequest: cfg.SlowRequest,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		log.Printf("Surfshop %s starting on %s (env=%s, tz=%s)", version, cfg.Addr, cfg.Env, loc)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http_shutdown_failed", "error", err)
	}
	<-workerDone
}
