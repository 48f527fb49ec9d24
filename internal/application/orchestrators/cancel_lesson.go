package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/lesson"
	"surfshop/internal/domain/outbox"
)

// CancelLessonInput carries input for the orchestrator.
type CancelLessonInput struct {
	LessonID string
	Cancel   lesson.CancelInput
}

// CancelLessonDeps holds dependencies for CancelLesson.
// Dispatcher is optional; without it the background worker delivers the notice.
type CancelLessonDeps struct {
	LessonStore LessonStore
	Dispatcher  OutboxDispatcher
	Location    *time.Location
	Now         func() time.Time
	GenerateID  func() string
}

// CancelLessonResult is the cancelled lesson and its refund breakdown.
type CancelLessonResult struct {
	Lesson lesson.Lesson      `json:"lesson"`
	Quote  lesson.RefundQuote `json:"quote"`
}

// CancellationNoticePayload is the outbox payload of a cancellation notice.
type CancellationNoticePayload struct {
	LessonID string `json:"lesson_id"`
}

// ExecuteCancelLesson cancels a scheduled lesson and records the refund.
// PRE: LessonID refers to a scheduled lesson; Cancel has a reason and refund type
// POST: Lesson cancelled with every cancellation field and a pending notice written
// in one versioned update; participants untouched
// INVARIANT: A lost race leaves the stored lesson unchanged and returns conflict
func ExecuteCancelLesson(ctx context.Context, input CancelLessonInput, deps CancelLessonDeps) (CancelLessonResult, error) {
	if err := input.Cancel.Validate(); err != nil {
		return CancelLessonResult{}, err
	}
	l, err := deps.LessonStore.GetByID(ctx, input.LessonID)
	if err != nil {
		return CancelLessonResult{}, err
	}

	now := deps.Now()
	expected := l.Version
	quote, err := l.Cancel(input.Cancel, now, deps.Location)
	if err != nil {
		return CancelLessonResult{}, err
	}

	payload, err := json.Marshal(CancellationNoticePayload{LessonID: l.ID})
	if err != nil {
		return CancelLessonResult{}, fmt.Errorf("encode cancellation notice: %w", err)
	}
	notice := outbox.New(deps.GenerateID(), outbox.ActionCancellationNotice, l.ID, string(payload), now)

	updated, err := deps.LessonStore.Update(ctx, l, expected, notice)
	if err != nil {
		return CancelLessonResult{}, err
	}
	slog.Info("lesson_event", "event", "lesson_cancelled", "lesson_id", updated.ID,
		"reason", updated.Cancellation.Reason, "refund_type", updated.Cancellation.RefundType,
		"refund", quote.FinalRefund.StringFixed(2), "fee", quote.ProcessingFee.StringFixed(2),
		"participants", updated.Cancellation.ParticipantCount, "advance_notice_hours", updated.AdvanceNoticeHours)

	if deps.Dispatcher != nil {
		if err := deps.Dispatcher.ProcessSingle(ctx, notice.ID); err != nil {
			slog.Warn("cancellation_notice_deferred", "lesson_id", updated.ID, "entry_id", notice.ID, "error", err.Error())
		}
	}
	return CancelLessonResult{Lesson: updated, Quote: quote}, nil
}

// UpdateLessonStatusInput carries input for the orchestrator.
type UpdateLessonStatusInput struct {
	LessonID string
	Status   lesson.Status
}

// UpdateLessonStatusDeps holds dependencies for UpdateLessonStatus.
type UpdateLessonStatusDeps struct {
	LessonStore LessonStore
	Now         func() time.Time
}

// ExecuteUpdateLessonStatus moves a lesson along scheduled -> in-progress -> completed.
// PRE: Status is not cancelled
// POST: Status written with a versioned update, or conflict for an illegal edge
func ExecuteUpdateLessonStatus(ctx context.Context, input UpdateLessonStatusInput, deps UpdateLessonStatusDeps) (lesson.Lesson, error) {
	if !input.Status.Valid() {
		return lesson.Lesson{}, apperr.Validation("unknown status %q", input.Status)
	}
	l, err := deps.LessonStore.GetByID(ctx, input.LessonID)
	if err != nil {
		return lesson.Lesson{}, err
	}
	from, expected := l.Status, l.Version
	if err := l.TransitionTo(input.Status, deps.Now()); err != nil {
		return lesson.Lesson{}, err
	}
	updated, err := deps.LessonStore.Update(ctx, l, expected)
	if err != nil {
		return lesson.Lesson{}, err
	}
	slog.Info("lesson_event", "event", "lesson_status_changed", "lesson_id", updated.ID, "from", from, "to", updated.Status)
	return updated, nil
}

// DeleteLessonDeps holds dependencies for DeleteLesson.
type DeleteLessonDeps struct {
	LessonStore LessonStore
}

// ExecuteDeleteLesson hard-deletes a lesson and its roster.
// PRE: lessonID is non-empty
// POST: Lesson and participants removed, or not_found
func ExecuteDeleteLesson(ctx context.Context, lessonID string, deps DeleteLessonDeps) error {
	if lessonID == "" {
		return apperr.Validation("lesson id is required")
	}
	if err := deps.LessonStore.Delete(ctx, lessonID); err != nil {
		return err
	}
	slog.Info("lesson_event", "event", "lesson_deleted", "lesson_id", lessonID)
	return nil
}
