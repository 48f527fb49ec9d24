package instructor

import (
	"strings"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/validation"
)

// Instructor teaches lessons. Lessons keep a name snapshot, so removing an
// instructor never alters lesson history.
type Instructor struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required,max=100"`
	Email       string    `json:"email" validate:"omitempty,email,max=254"`
	Phone       string    `json:"phone" validate:"max=40"`
	Specialties []string  `json:"specialties" validate:"max=20,dive,required,max=50"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks if the Instructor has valid data.
// PRE: Instructor struct is initialized
// POST: Returns a validation error if validation fails, nil otherwise
func (i *Instructor) Validate() error {
	if err := validation.Struct(i); err != nil {
		return err
	}
	if strings.TrimSpace(i.Name) == "" {
		return apperr.Validation("instructor name cannot be blank")
	}
	return nil
}

// Teaches reports whether specialty is listed, ignoring case.
func (i *Instructor) Teaches(specialty string) bool {
	for _, s := range i.Specialties {
		if strings.EqualFold(s, specialty) {
			return true
		}
	}
	return false
}
