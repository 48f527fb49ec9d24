package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/instructor"
)

// SaveInstructorInput carries input for the orchestrator. An empty ID creates an instructor.
type SaveInstructorInput struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Specialties []string `json:"specialties"`
	Active      *bool    `json:"active"` // nil keeps the stored value, true for new instructors
}

// SaveInstructorDeps holds dependencies for SaveInstructor.
type SaveInstructorDeps struct {
	Instructors InstructorStore
	Now         func() time.Time
	GenerateID  func() string
}

// ExecuteSaveInstructor creates or updates an instructor.
// POST: Instructor persisted; lessons keep the name they snapshotted
func ExecuteSaveInstructor(ctx context.Context, input SaveInstructorInput, deps SaveInstructorDeps) (instructor.Instructor, error) {
	inst := instructor.Instructor{ID: deps.GenerateID(), Active: true, CreatedAt: deps.Now()}
	if input.ID != "" {
		existing, err := deps.Instructors.GetByID(ctx, input.ID)
		switch {
		case err == nil:
			inst = existing
		case errors.Is(err, apperr.ErrNotFound):
			inst.ID = input.ID
		default:
			return instructor.Instructor{}, err
		}
	}

	inst.Name = strings.TrimSpace(input.Name)
	inst.Email = strings.ToLower(strings.TrimSpace(input.Email))
	inst.Phone = strings.TrimSpace(input.Phone)
	inst.Specialties = nil
	for _, s := range input.Specialties {
		if s = strings.TrimSpace(s); s != "" && !inst.Teaches(s) {
			inst.Specialties = append(inst.Specialties, s)
		}
	}
	if input.Active != nil {
		inst.Active = *input.Active
	}

	if err := inst.Validate(); err != nil {
		return instructor.Instructor{}, err
	}
	if err := deps.Instructors.Save(ctx, inst); err != nil {
		return instructor.Instructor{}, err
	}
	slog.Info("instructor_saved", "instructor_id", inst.ID, "active", inst.Active)
	return inst, nil
}
