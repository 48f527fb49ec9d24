package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/lesson"
)

// AddParticipantInput carries input for the orchestrator.
type AddParticipantInput struct {
	LessonID        string `json:"-"`
	CustomerID      string `json:"customer_id"`
	CustomerName    string `json:"customer_name"`
	WaiverCollected bool   `json:"waiver_collected"`
}

// AddParticipantDeps holds dependencies for AddParticipant.
type AddParticipantDeps struct {
	LessonStore LessonStore
	Customers   CustomerLookup
	Now         func() time.Time
}

// ExecuteAddParticipant enrolls a customer in a lesson.
// PRE: LessonID and CustomerID are non-empty
// POST: Participant stored and CurrentParticipants incremented, or an error with nothing written;
// not_found when the customer does not exist
// INVARIANT: CurrentParticipants == roster size <= MaxParticipants
func ExecuteAddParticipant(ctx context.Context, input AddParticipantInput, deps AddParticipantDeps) (lesson.Lesson, error) {
	if input.LessonID == "" || input.CustomerID == "" {
		return lesson.Lesson{}, apperr.Validation("lesson id and customer id are required")
	}
	c, err := deps.Customers.GetByID(ctx, input.CustomerID)
	if err != nil {
		return lesson.Lesson{}, err
	}

	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		name = c.FullName()
	}
	p := lesson.Participant{
		LessonID:        input.LessonID,
		CustomerID:      c.ID,
		CustomerName:    name,
		WaiverCollected: input.WaiverCollected,
		AddedAt:         deps.Now(),
	}
	if err := p.Validate(); err != nil {
		return lesson.Lesson{}, err
	}

	l, err := deps.LessonStore.AddParticipant(ctx, p)
	if err != nil {
		return lesson.Lesson{}, err
	}
	slog.Info("lesson_event", "event", "participant_added", "lesson_id", l.ID, "customer_id", p.CustomerID,
		"current", l.CurrentParticipants, "max", l.MaxParticipants)
	return l, nil
}

// RemoveParticipantInput carries input for the orchestrator.
type RemoveParticipantInput struct {
	LessonID   string
	CustomerID string
}

// RemoveParticipantDeps holds dependencies for RemoveParticipant.
type RemoveParticipantDeps struct {
	LessonStore LessonStore
}

// ExecuteRemoveParticipant drops a customer from a lesson roster.
// PRE: LessonID and CustomerID are non-empty
// POST: Participant removed and CurrentParticipants decremented; not_found when not enrolled
func ExecuteRemoveParticipant(ctx context.Context, input RemoveParticipantInput, deps RemoveParticipantDeps) (lesson.Lesson, error) {
	if input.LessonID == "" || input.CustomerID == "" {
		return lesson.Lesson{}, apperr.Validation("lesson id and customer id are required")
	}
	l, err := deps.LessonStore.RemoveParticipant(ctx, input.LessonID, input.CustomerID)
	if err != nil {
		return lesson.Lesson{}, err
	}
	slog.Info("lesson_event", "event", "participant_removed", "lesson_id", l.ID, "customer_id", input.CustomerID,
		"current", l.CurrentParticipants)
	return l, nil
}
