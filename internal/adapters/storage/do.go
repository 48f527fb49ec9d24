package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"surfshop/internal/domain/apperr"
)

// Policy bounds every store call.
type Policy struct {
	Timeout time.Duration // per attempt
	Retries int           // extra attempts after a transient failure
	Backoff time.Duration // pause between attempts
}

// DefaultPolicy is a 10s attempt timeout with a single retry.
var DefaultPolicy = Policy{Timeout: 10 * time.Second, Retries: 1, Backoff: 100 * time.Millisecond}

var policy atomic.Pointer[Policy]

var tracer = otel.Tracer("surfshop/storage")

// SetPolicy replaces the policy used by Do.
func SetPolicy(p Policy) {
	policy.Store(&p)
}

// CurrentPolicy returns the policy used by Do.
func CurrentPolicy() Policy {
	if p := policy.Load(); p != nil {
		return *p
	}
	return DefaultPolicy
}

// Do runs fn under the store policy: each attempt gets its own timeout and a
// transient failure is retried. Errors come back classified: *apperr.Error
// values returned by fn pass through, exhausted transient failures become
// transient_store, and auth or unknown-database failures become store_config.
//
// fn must finish all scanning before it returns; the attempt context is
// cancelled afterwards.
func Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	p := CurrentPolicy()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("db.operation", op)))
	defer span.End()

	var err error
	attempt := 0
	for {
		attempt++
		err = runAttempt(ctx, p.Timeout, fn)
		if err == nil || !IsTransient(ctx, err) || attempt > p.Retries || ctx.Err() != nil {
			break
		}
		slog.Warn("store_retry", "op", op, "attempt", attempt, "error", err)
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		if p.Backoff > 0 {
			t := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
			case <-t.C:
			}
			t.Stop()
		}
	}
	span.SetAttributes(attribute.Int("db.attempts", attempt))
	if err == nil {
		return nil
	}

	err = classify(ctx, op, err)
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindNotFound:
		span.SetAttributes(attribute.String("error.kind", string(apperr.KindOf(err))))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("store_failed", "op", op, "attempts", attempt, "kind", string(apperr.KindOf(err)), "error", err)
	}
	return err
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(actx)
}

func classify(ctx context.Context, op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if IsConfigError(err) {
		return apperr.StoreConfig(op, err)
	}
	if IsTransient(ctx, err) {
		return apperr.Transient(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsTransient reports whether err is worth retrying: a dropped connection,
// a network failure, the attempt's own deadline, a busy SQLite database, or
// a Postgres connection/serialization failure.
// parent is the caller's context; its own cancellation is never transient.
func IsTransient(parent context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return parent.Err() == nil
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsConfigError reports whether err points at configuration rather than the
// network: rejected credentials, an unknown database, or an unopenable file.
func IsConfigError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "28" || pqErr.Code == "3D000"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_PERM:
			return true
		}
	}
	return false
}

// IsUniqueViolation reports a primary-key or unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		c := sqErr.Code()
		return c == sqlite3.SQLITE_CONSTRAINT_UNIQUE || c == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// IsCheckViolation reports a CHECK constraint failure.
func IsCheckViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23514"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_CHECK
	}
	return false
}
