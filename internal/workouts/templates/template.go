package templates

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound  = errors.New("template not found")
	ErrNameTaken = errors.New("template name taken")

	// ErrStateConflict means the client's view of the template no
	// longer matches the persisted rows, usually because another
	// request changed them after the editor was loaded.
	ErrStateConflict = errors.New("template state conflict")
)

// ValidationError rejects a malformed save payload before any
// mutation happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Template is a reusable workout plan owned by one user.
type Template struct {
	ID        int                `json:"id"`
	Name      string             `json:"name"`
	Exercises []TemplateExercise `json:"exercises,omitempty"`
}

// TemplateExercise is one row of a template's exercise list. Sets is
// kept as text but always holds a non-negative integer.
type TemplateExercise struct {
	ID           int    `json:"id"`
	TemplateID   int    `json:"templateId"`
	ExerciseID   int    `json:"exerciseId"`
	ExerciseName string `json:"exerciseName,omitempty"`
	Sets         string `json:"sets"`
	SortOrder    int    `json:"sortOrder"`
}
