package projections

import (
	"context"
	"errors"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/lesson"
)

// RosterEntry is one participant with their current waiver state.
type RosterEntry struct {
	CustomerID      string                  `json:"customer_id"`
	Name            string                  `json:"name"`
	Email           string                  `json:"email,omitempty"`
	WaiverCollected bool                    `json:"waiver_collected"`
	WaiverStatus    customer.WaiverValidity `json:"waiver_status"`
	AddedAt         time.Time               `json:"added_at"`
}

// LessonRoster is a lesson with its participants.
type LessonRoster struct {
	Lesson         lesson.Lesson `json:"lesson"`
	Participants   []RosterEntry `json:"participants"`
	WaiversMissing int           `json:"waivers_missing"` // participants not VALID or EXPIRING_SOON
}

// GetLessonRosterDeps holds dependencies for GetLessonRoster.
type GetLessonRosterDeps struct {
	LessonStore   LessonStore
	CustomerStore CustomerStore
	Now           func() time.Time
}

// QueryGetLessonRoster loads a lesson's participants with waiver states.
// PRE: lessonID is non-empty
// POST: Unknown customers keep the snapshot name and show NO_WAIVER
func QueryGetLessonRoster(ctx context.Context, lessonID string, deps GetLessonRosterDeps) (LessonRoster, error) {
	l, err := deps.LessonStore.GetByID(ctx, lessonID)
	if err != nil {
		return LessonRoster{}, err
	}
	participants, err := deps.LessonStore.ListParticipants(ctx, lessonID)
	if err != nil {
		return LessonRoster{}, err
	}

	now := deps.Now()
	roster := LessonRoster{Lesson: l, Participants: make([]RosterEntry, 0, len(participants))}
	for _, p := range participants {
		entry := RosterEntry{
			CustomerID:      p.CustomerID,
			Name:            p.CustomerName,
			WaiverCollected: p.WaiverCollected,
			WaiverStatus:    customer.WaiverNone,
			AddedAt:         p.AddedAt,
		}
		c, err := deps.CustomerStore.GetByID(ctx, p.CustomerID)
		switch {
		case err == nil:
			entry.Email = c.Email
			entry.WaiverStatus = customer.ClassifyWaiver(&c, now)
		case !errors.Is(err, apperr.ErrNotFound):
			return LessonRoster{}, err
		}
		if entry.WaiverStatus != customer.WaiverValid && entry.WaiverStatus != customer.WaiverExpiringSoon {
			roster.WaiversMissing++
		}
		roster.Participants = append(roster.Participants, entry)
	}
	return roster, nil
}
