package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"surfshop/internal/domain/lesson"
)

// RescheduleLessonInput carries input for the orchestrator.
type RescheduleLessonInput struct {
	LessonID   string
	Reschedule lesson.RescheduleInput
}

// RescheduleLessonDeps holds dependencies for RescheduleLesson.
type RescheduleLessonDeps struct {
	LessonStore LessonStore
	Instructors InstructorLookup
	Location    *time.Location
	Now         func() time.Time
}

// ExecuteRescheduleLesson moves a scheduled lesson to a new slot.
// PRE: Reschedule has a valid date and time
// POST: Schedule overwritten, note appended, follow-up flagged, status unchanged
func ExecuteRescheduleLesson(ctx context.Context, input RescheduleLessonInput, deps RescheduleLessonDeps) (lesson.Lesson, error) {
	if err := input.Reschedule.Validate(); err != nil {
		return lesson.Lesson{}, err
	}
	l, err := deps.LessonStore.GetByID(ctx, input.LessonID)
	if err != nil {
		return lesson.Lesson{}, err
	}

	instructorName := l.InstructorName
	if id := input.Reschedule.InstructorID; id != "" && id != l.InstructorID {
		inst, err := deps.Instructors.GetByID(ctx, id)
		if err != nil {
			return lesson.Lesson{}, err
		}
		instructorName = inst.Name
	}

	oldDate, oldTime, expected := l.Date, l.Time, l.Version
	if err := l.Reschedule(input.Reschedule, instructorName, deps.Now(), deps.Location); err != nil {
		return lesson.Lesson{}, err
	}
	updated, err := deps.LessonStore.Update(ctx, l, expected)
	if err != nil {
		return lesson.Lesson{}, err
	}
	slog.Info("lesson_event", "event", "lesson_rescheduled", "lesson_id", updated.ID,
		"from", oldDate+" "+oldTime, "to", updated.Date+" "+updated.Time, "advance_notice_hours", updated.AdvanceNoticeHours)
	return updated, nil
}
