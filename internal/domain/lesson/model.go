package lesson

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/validation"
)

// Status is a lesson lifecycle state.
type Status string

// Lifecycle states. Scheduled is the only initial state.
const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Type is a lesson category.
type Type string

// Lesson categories offered by the school.
const (
	TypeGroup       Type = "group"
	TypePrivate     Type = "private"
	TypeSemiPrivate Type = "semi-private"
	TypeKids        Type = "kids"
	TypeAdvanced    Type = "advanced"
)

// Layouts of the stored schedule fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether the state machine allows from -> to.
// INVARIANT: completed and cancelled have no outgoing edges
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Lesson is a scheduled group or private activity.
type Lesson struct {
	ID                  string          `json:"id"`
	Type                Type            `json:"type" validate:"oneof=group private semi-private kids advanced"`
	InstructorID        string          `json:"instructor_id,omitempty"`
	InstructorName      string          `json:"instructor_name"`
	MaxParticipants     int             `json:"max_participants" validate:"gte=1"`
	CurrentParticipants int             `json:"current_participants" validate:"gte=0,ltefield=MaxParticipants"`
	Date                string          `json:"date" validate:"calendar_date"`
	Time                string          `json:"time" validate:"clock_time"`
	Location            string          `json:"location" validate:"required,max=200"`
	Notes               string          `json:"notes" validate:"max=4000"`
	Price               decimal.Decimal `json:"price"`
	Status              Status          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Version             int             `json:"version"`

	// Shared by cancel and reschedule.
	Rescheduled        bool   `json:"rescheduled"`
	RescheduleDate     string `json:"reschedule_date,omitempty"`
	RescheduleTime     string `json:"reschedule_time,omitempty"`
	FollowUpRequired   bool   `json:"follow_up_required"`
	AdvanceNoticeHours int    `json:"advance_notice_hours"`
	NotificationSent   bool   `json:"notification_sent"`

	Cancellation Cancellation `json:"cancellation"`
}

// Validate checks if the Lesson has valid data.
// PRE: Lesson struct is initialized
// POST: Returns a validation error if any field is out of range, nil otherwise
// INVARIANT: 0 <= CurrentParticipants <= MaxParticipants, Price >= 0
func (l *Lesson) Validate() error {
	if err := validation.Struct(l); err != nil {
		return err
	}
	if l.Price.IsNegative() {
		return apperr.Validation("price cannot be negative")
	}
	if !l.Status.Valid() {
		return apperr.Validation("unknown status %q", l.Status)
	}
	if _, err := l.ScheduledAt(time.UTC); err != nil {
		return err
	}
	return nil
}

// ScheduledAt combines Date and Time in loc.
// PRE: Date is YYYY-MM-DD, Time is HH:MM
// POST: Returns the lesson start instant or a validation error
func (l *Lesson) ScheduledAt(loc *time.Location) (time.Time, error) {
	return ParseSchedule(l.Date, l.Time, loc)
}

// ParseSchedule parses a date and clock time in loc.
func ParseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid schedule %q %q", date, clock)
	}
	return t, nil
}

// IsFull reports whether the roster has reached capacity.
func (l *Lesson) IsFull() bool {
	return l.CurrentParticipants >= l.MaxParticipants
}

// CheckEnrollable returns a conflict error unless a participant may be added.
// PRE: Lesson loaded from the store
// POST: nil when status is scheduled and capacity remains
func (l *Lesson) CheckEnrollable() error {
	if l.Status != StatusScheduled {
		return apperr.Conflict("lesson is not open for enrollment (status %s)", l.Status)
	}
	if l.IsFull() {
		return apperr.Conflict("lesson full")
	}
	return nil
}

// TransitionTo moves the lesson to status to.
// PRE: to is not cancelled (use Cancel)
// POST: Status and UpdatedAt set, or conflict error for an illegal edge
func (l *Lesson) TransitionTo(to Status, now time.Time) error {
	if to == StatusCancelled {
		return apperr.Validation("use cancel to cancel a lesson")
	}
	if !CanTransition(l.Status, to) {
		return apperr.Conflict("cannot move lesson from %s to %s", l.Status, to)
	}
	l.Status = to
	l.UpdatedAt = now
	return nil
}

// AdvanceNoticeHours rounds (scheduledAt - now) half up to whole hours, so
// -1.5h records -1. Negative when now is past the scheduled start; not clamped.
func AdvanceNoticeHours(scheduledAt, now time.Time) int {
	return int(math.Floor(scheduledAt.Sub(now).Hours() + 0.5))
}

// String renders a short identifier for logs.
func (l *Lesson) String() string {
	return fmt.Sprintf("%s %s %s@%s", l.ID, l.Type, l.Date, l.Time)
}
