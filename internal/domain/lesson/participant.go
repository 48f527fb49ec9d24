package lesson

import (
	"time"

	"surfshop/internal/domain/validation"
)

// Participant is a customer's enrollment in one lesson.
// CustomerName is a snapshot taken when the participant was added.
type Participant struct {
	LessonID        string    `json:"lesson_id" validate:"required"`
	CustomerID      string    `json:"customer_id" validate:"required"`
	CustomerName    string    `json:"customer_name" validate:"required,max=200"`
	WaiverCollected bool      `json:"waiver_collected"`
	AddedAt         time.Time `json:"added_at"`
}

// Validate checks if the Participant has valid data.
// PRE: Participant struct is initialized
// POST: Returns a validation error if a reference or the name is missing
func (p *Participant) Validate() error {
	return validation.Struct(p)
}
