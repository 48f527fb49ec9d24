package lesson

import (
	"strings"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/validation"
)

// RescheduleInput carries the new schedule for a lesson.
type RescheduleInput struct {
	Date         string `json:"date" validate:"calendar_date"`
	Time         string `json:"time" validate:"clock_time"`
	Location     string `json:"location" validate:"max=200"`
	InstructorID string `json:"instructor_id"`
	Notes        string `json:"notes" validate:"max=2000"`
}

// Validate checks the reschedule form.
func (in *RescheduleInput) Validate() error {
	return validation.Struct(in)
}

// Reschedule moves a scheduled lesson to a new slot. Status is left as is.
// An empty Location or InstructorID keeps the current value; instructorName
// is the snapshot for in.InstructorID and ignored when that is empty.
// PRE: in has been validated; loc is the school's time zone
// POST: AdvanceNoticeHours measured from the old slot, Rescheduled and FollowUpRequired set
func (l *Lesson) Reschedule(in RescheduleInput, instructorName string, now time.Time, loc *time.Location) error {
	if l.Status != StatusScheduled {
		return apperr.Conflict("cannot reschedule a lesson that is %s", l.Status)
	}
	oldAt, err := l.ScheduledAt(loc)
	if err != nil {
		return err
	}
	if _, err := ParseSchedule(in.Date, in.Time, loc); err != nil {
		return err
	}
	oldDate, oldTime := l.Date, l.Time

	l.AdvanceNoticeHours = AdvanceNoticeHours(oldAt, now)
	l.Date = in.Date
	l.Time = in.Time
	if in.Location != "" {
		l.Location = in.Location
	}
	if in.InstructorID != "" {
		l.InstructorID = in.InstructorID
		l.InstructorName = instructorName
	}
	l.Rescheduled = true
	l.RescheduleDate = in.Date
	l.RescheduleTime = in.Time
	l.FollowUpRequired = true
	l.Notes = appendRescheduleNote(l.Notes, oldDate, oldTime, in.Notes)
	l.UpdatedAt = now
	return nil
}

func appendRescheduleNote(existing, oldDate, oldTime, notes string) string {
	entry := "Rescheduled from " + oldDate + " " + oldTime
	if n := strings.TrimSpace(notes); n != "" {
		entry += ": " + n
	}
	if strings.TrimSpace(existing) == "" {
		return entry
	}
	return existing + "\n\n" + entry
}
