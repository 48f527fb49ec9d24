package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surfshop/internal/domain/apperr"
	domain "surfshop/internal/domain/outbox"
)

// OutboxStore is the outbox persistence used by the processor.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	Claim(ctx context.Context, claimed domain.Entry, prevStatus string, prevAttempts int) (bool, error)
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns an external reference for the log and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers outbox entries with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	if now == nil {
		now = time.Now
	}
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 20,
	}
}

// WithBackoff overrides the retry delays.
func (p *OutboxProcessor) WithBackoff(base, limit time.Duration) *OutboxProcessor {
	p.baseDelay = base
	p.maxDelay = limit
	return p
}

// ProcessPending processes entries that are due.
// PRE: Context is valid
// POST: Due entries are attempted; failures stay pending until attempts run out.
// An entry claimed by a concurrent ProcessSingle is skipped.
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox entries: %w", err)
	}

	attempted := 0
	now := p.now()
	for _, entry := range entries {
		if entry.DueAt(p.baseDelay, p.maxDelay).After(now) {
			continue
		}
		attempted++
		if err := p.attempt(ctx, entry); errors.Is(err, errClaimLost) {
			slog.Debug("outbox_entry_claimed_elsewhere", "entry_id", entry.ID)
		} else if err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	return attempted, nil
}

// ProcessSingle delivers one entry now, ignoring backoff.
// PRE: entryID is non-empty
// POST: Entry is attempted and its status saved; a delivery failure is returned
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.IsTerminal() {
		return apperr.Conflict("outbox entry %s is %s and cannot be retried", entryID, entry.Status)
	}
	if entry.Claimed(p.now()) {
		return apperr.Conflict("outbox entry %s is already being delivered", entryID)
	}
	err = p.attempt(ctx, entry)
	if errors.Is(err, errClaimLost) {
		return apperr.Conflict("outbox entry %s is already being delivered", entryID)
	}
	return err
}

// errClaimLost means another caller claimed the entry first.
var errClaimLost = errors.New("outbox entry claimed by another attempt")

// AbandonEntry marks an entry as abandoned.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	entry.MarkAbandoned()
	return p.store.Save(ctx, entry)
}

// attempt runs the executor and saves the outcome. The delivery error is
// returned after the save so callers can log or surface it.
func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAttempt(p.now())
		entry.Attempts = entry.MaxAttempts
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	prevStatus, prevAttempts := entry.Status, entry.Attempts
	entry.MarkAttempt(p.now())
	won, err := p.store.Claim(ctx, entry, prevStatus, prevAttempts)
	if err != nil {
		return fmt.Errorf("claim outbox entry %s: %w", entry.ID, err)
	}
	if !won {
		return errClaimLost
	}

	externalID, runErr := executor.Execute(ctx, entry.Payload)
	if runErr != nil {
		entry.MarkFailed(runErr)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType,
			"attempt", entry.Attempts, "max_attempts", entry.MaxAttempts, "error", runErr.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}

	if err := p.store.Save(ctx, entry); err != nil {
		return fmt.Errorf("save outbox entry %s: %w", entry.ID, err)
	}
	return runErr
}

// StartBackgroundWorker periodically processes pending outbox entries.
// PRE: ctx is cancelled to signal shutdown
// POST: Returns a channel closed once the worker has stopped
func StartBackgroundWorker(ctx context.Context, processor *OutboxProcessor, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				if _, err := processor.ProcessPending(runCtx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				}
				cancel()
			case <-ctx.Done():
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
	return done
}
