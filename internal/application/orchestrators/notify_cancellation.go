package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"surfshop/internal/adapters/email"
	"surfshop/internal/adapters/events"
	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/lesson"
)

// NotifyCancellationDeps holds dependencies for NotifyCancellation.
type NotifyCancellationDeps struct {
	LessonStore LessonStore
	Customers   CustomerLookup
	Sender      email.Sender
	Publisher   events.Publisher
	SchoolName  string
	Now         func() time.Time
}

// NotifyCancellationResult reports what a notification run did.
type NotifyCancellationResult struct {
	Emailed     int
	Skipped     int // participants without a customer record or email
	AlreadySent bool
}

// ExecuteNotifyCancellation emails a cancelled lesson's participants and
// publishes the lesson.cancelled event.
// PRE: lessonID refers to a cancelled lesson
// POST: On success NotificationSent is true; a lesson already notified is left alone
// INVARIANT: Never changes the cancellation itself
func ExecuteNotifyCancellation(ctx context.Context, lessonID string, deps NotifyCancellationDeps) (NotifyCancellationResult, error) {
	var result NotifyCancellationResult
	l, err := deps.LessonStore.GetByID(ctx, lessonID)
	if err != nil {
		return result, err
	}
	if l.Status != lesson.StatusCancelled {
		return result, apperr.Conflict("lesson %q is %s, not cancelled", l.ID, l.Status)
	}
	if l.NotificationSent {
		result.AlreadySent = true
		return result, nil
	}

	participants, err := deps.LessonStore.ListParticipants(ctx, l.ID)
	if err != nil {
		return result, err
	}
	var msgs []email.Message
	for _, p := range participants {
		c, err := deps.Customers.GetByID(ctx, p.CustomerID)
		if errors.Is(err, apperr.ErrNotFound) {
			result.Skipped++
			continue
		}
		if err != nil {
			return result, err
		}
		if strings.TrimSpace(c.Email) == "" {
			result.Skipped++
			continue
		}
		msg, err := cancellationEmail(l, c.FirstName, c.Email, deps.SchoolName)
		if err != nil {
			return result, err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) > 0 {
		if _, err := deps.Sender.SendBatch(ctx, msgs); err != nil {
			return result, fmt.Errorf("send cancellation emails: %w", err)
		}
	}
	result.Emailed = len(msgs)

	c := l.Cancellation
	err = deps.Publisher.Publish(ctx, events.Event{
		Key:        events.LessonCancelled,
		ID:         events.LessonCancelled + ":" + l.ID,
		OccurredAt: c.CancelledAt,
		Payload: events.LessonCancelledPayload{
			LessonID:         l.ID,
			LessonType:       string(l.Type),
			Date:             l.Date,
			Time:             l.Time,
			Reason:           c.Reason,
			RefundType:       string(c.RefundType),
			RefundAmount:     c.RefundAmount.StringFixed(2),
			ParticipantCount: c.ParticipantCount,
			WeatherRelated:   c.WeatherRelated,
			Rescheduled:      l.Rescheduled,
			RescheduleDate:   l.RescheduleDate,
			RescheduleTime:   l.RescheduleTime,
		},
	})
	if err != nil {
		return result, fmt.Errorf("publish %s: %w", events.LessonCancelled, err)
	}

	if err := markNotificationSent(ctx, l, deps); err != nil {
		return result, err
	}
	slog.Info("lesson_event", "event", "cancellation_notified", "lesson_id", l.ID, "emailed", result.Emailed, "skipped", result.Skipped)
	return result, nil
}

// markNotificationSent sets the flag, re-reading once if the row moved.
func markNotificationSent(ctx context.Context, l lesson.Lesson, deps NotifyCancellationDeps) error {
	for attempt := 0; ; attempt++ {
		l.NotificationSent = true
		l.UpdatedAt = deps.Now()
		_, err := deps.LessonStore.Update(ctx, l, l.Version)
		if err == nil || attempt > 0 || !errors.Is(err, apperr.ErrConflict) {
			return err
		}
		if l, err = deps.LessonStore.GetByID(ctx, l.ID); err != nil {
			return err
		}
	}
}

func cancellationEmail(l lesson.Lesson, firstName, to, school string) (email.Message, error) {
	if school == "" {
		school = "the surf school"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", markdownEscape(firstName))
	fmt.Fprintf(&b, "Your **%s lesson** on %s at %s has been cancelled.\n\n", l.Type, l.Date, l.Time)
	fmt.Fprintf(&b, "Reason: %s\n", markdownEscape(l.Cancellation.Reason))
	switch l.Cancellation.RefundType {
	case lesson.RefundFull, lesson.RefundPartial:
		fmt.Fprintf(&b, "Refund: %s refund of the lesson price\n", l.Cancellation.RefundType)
	default:
		b.WriteString("Refund: none\n")
	}
	if l.Rescheduled && l.RescheduleDate != "" {
		fmt.Fprintf(&b, "\nWe have pencilled you in for **%s at %s** instead.\n", l.RescheduleDate, l.RescheduleTime)
	}
	if l.Cancellation.CompensationOffered && l.Cancellation.CompensationType != lesson.CompensationNone {
		fmt.Fprintf(&b, "\nAs an apology we are offering a %s.\n", strings.ReplaceAll(string(l.Cancellation.CompensationType), "_", " "))
	}
	fmt.Fprintf(&b, "\nSee you in the water,\n%s\n", school)

	body := b.String()
	html, err := email.RenderMarkdown(body)
	if err != nil {
		return email.Message{}, err
	}
	return email.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("Lesson cancelled: %s %s", l.Date, l.Time),
		HTML:    html,
		Text:    body,
		Tags:    map[string]string{"type": "lesson_cancellation", "lesson_id": l.ID},
	}, nil
}

var markdownEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`, `<`, `&lt;`)

func markdownEscape(s string) string {
	return markdownEscaper.Replace(s)
}

// CancellationNoticeExecutor runs cancellation notices from the outbox.
type CancellationNoticeExecutor struct {
	Deps NotifyCancellationDeps
}

// Execute decodes the payload and notifies the lesson's participants.
// PRE: payload is valid JSON matching CancellationNoticePayload
// POST: returns the number of emails sent as the external id
// INVARIANT: outbox entry status managed by caller
func (e *CancellationNoticeExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p CancellationNoticePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	res, err := ExecuteNotifyCancellation(ctx, p.LessonID, e.Deps)
	if err != nil {
		return "", err
	}
	if res.AlreadySent {
		return "already-sent", nil
	}
	return fmt.Sprintf("emailed:%d", res.Emailed), nil
}
