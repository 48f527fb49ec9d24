package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/lesson"
)

// CreateLessonInput carries input for the orchestrator.
type CreateLessonInput struct {
	Type            lesson.Type     `json:"type"`
	InstructorID    string          `json:"instructor_id"`
	InstructorName  string          `json:"instructor_name"` // used when no InstructorID is given
	MaxParticipants int             `json:"max_participants"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	Location        string          `json:"location"`
	Notes           string          `json:"notes"`
	Price           decimal.Decimal `json:"price"`
}

// CreateLessonDeps holds dependencies for CreateLesson.
type CreateLessonDeps struct {
	LessonStore LessonStore
	Instructors InstructorLookup
	Now         func() time.Time
	GenerateID  func() string
}

// ExecuteCreateLesson validates and persists a new scheduled lesson.
// PRE: input fields are populated from the create form
// POST: Lesson persisted with status scheduled, no participants, version 1
// INVARIANT: InstructorName is a snapshot of the instructor at creation
func ExecuteCreateLesson(ctx context.Context, input CreateLessonInput, deps CreateLessonDeps) (lesson.Lesson, error) {
	now := deps.Now()
	l := lesson.Lesson{
		ID:              deps.GenerateID(),
		Type:            input.Type,
		InstructorName:  strings.TrimSpace(input.InstructorName),
		MaxParticipants: input.MaxParticipants,
		Date:            input.Date,
		Time:            input.Time,
		Location:        strings.TrimSpace(input.Location),
		Notes:           input.Notes,
		Price:           input.Price.Round(2),
		Status:          lesson.StatusScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}
	if err := l.Validate(); err != nil {
		return lesson.Lesson{}, err
	}

	if input.InstructorID != "" {
		inst, err := deps.Instructors.GetByID(ctx, input.InstructorID)
		if err != nil {
			return lesson.Lesson{}, err
		}
		l.InstructorID = inst.ID
		l.InstructorName = inst.Name
	}

	if err := deps.LessonStore.Create(ctx, l); err != nil {
		return lesson.Lesson{}, err
	}
	slog.Info("lesson_event", "event", "lesson_created", "lesson_id", l.ID, "type", l.Type, "date", l.Date, "time", l.Time)
	return l, nil
}
