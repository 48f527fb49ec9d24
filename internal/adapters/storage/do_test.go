package storage_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surfshop/internal/adapters/storage"
	"surfshop/internal/domain/apperr"
)

func withPolicy(t *testing.T, p storage.Policy) {
	t.Helper()
	prev := storage.CurrentPolicy()
	storage.SetPolicy(p)
	t.Cleanup(func() { storage.SetPolicy(prev) })
}

// TestDo_RetriesTransientOnce verifies a single retry then success.
func TestDo_RetriesTransientOnce(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: time.Second, Retries: 1})
	calls := 0
	err := storage.Do(context.Background(), "lesson.get", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return driver.ErrBadConn
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// TestDo_ExhaustedTransient surfaces transient_store after the retry.
func TestDo_ExhaustedTransient(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: time.Second, Retries: 1})
	calls := 0
	err := storage.Do(context.Background(), "lesson.get", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("dial: %w", driver.ErrBadConn)
	})
	require.ErrorIs(t, err, apperr.ErrTransientStore)
	require.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 2, calls)
}

// TestDo_AttemptTimeout verifies each attempt is bounded and retried.
func TestDo_AttemptTimeout(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: 20 * time.Millisecond, Retries: 1})
	calls := 0
	err := storage.Do(context.Background(), "lesson.list", func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, apperr.ErrTransientStore)
	assert.Equal(t, 2, calls)
}

// TestDo_CallerCancelNotRetried verifies the caller's own cancellation stops at once.
func TestDo_CallerCancelNotRetried(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: time.Second, Retries: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := storage.Do(ctx, "lesson.list", func(ctx context.Context) error {
		calls++
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, apperr.ErrTransientStore))
	assert.Equal(t, 1, calls)
}

// TestDo_DomainErrorsPassThrough verifies classified errors are not retried or rewrapped.
func TestDo_DomainErrorsPassThrough(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: time.Second, Retries: 1})
	calls := 0
	err := storage.Do(context.Background(), "lesson.add_participant", func(ctx context.Context) error {
		calls++
		return apperr.Conflict("lesson full")
	})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "lesson full", err.Error())
	assert.Equal(t, 1, calls)
}

// TestDo_ConfigErrors classifies Postgres auth and catalog failures.
func TestDo_ConfigErrors(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: time.Second, Retries: 1})
	for _, code := range []pq.ErrorCode{"28P01", "28000", "3D000"} {
		t.Run(string(code), func(t *testing.T) {
			calls := 0
			err := storage.Do(context.Background(), "storage.ping", func(ctx context.Context) error {
				calls++
				return &pq.Error{Code: code, Message: "rejected"}
			})
			require.ErrorIs(t, err, apperr.ErrStoreConfig)
			assert.Equal(t, 1, calls)
		})
	}
}

// TestDo_PostgresTransient retries connection and serialization failures.
func TestDo_PostgresTransient(t *testing.T) {
	withPolicy(t, storage.Policy{Timeout: time.Second, Retries: 1})
	for _, code := range []pq.ErrorCode{"08006", "40001", "40P01", "57P01"} {
		t.Run(string(code), func(t *testing.T) {
			calls := 0
			err := storage.Do(context.Background(), "lesson.save", func(ctx context.Context) error {
				calls++
				return &pq.Error{Code: code}
			})
			require.ErrorIs(t, err, apperr.ErrTransientStore)
			assert.Equal(t, 2, calls)
		})
	}
}

// TestDo_OtherErrorsWrapped keeps unknown failures unclassified.
func TestDo_OtherErrorsWrapped(t *testing.T) {
	boom := errors.New("syntax error")
	err := storage.Do(context.Background(), "lesson.save", func(ctx context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
	assert.Equal(t, "lesson.save: syntax error", err.Error())
}
