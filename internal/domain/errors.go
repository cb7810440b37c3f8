package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotImplemented  = errors.New("not implemented")
	ErrInvalidRecipe   = errors.New("invalid recipe")
	ErrInvalidParams   = errors.New("invalid brew parameters")
	ErrInvalidSchedule = errors.New("invalid step schedule")
	ErrInvalidElapsed  = errors.New("invalid elapsed time")
	ErrNoSession       = errors.New("no brew session loaded")
	ErrSessionFinished = errors.New("brew session is finished")
	ErrUnavailable     = errors.New("capability unavailable")
)

// RecipeValidationError describes a validation error in a recipe definition.
// It unwraps to ErrInvalidRecipe.
type RecipeValidationError struct {
	Field   string
	Index   int
	Message string
}

func (e *RecipeValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("recipe %s[%d]: %s", e.Field, e.Index, e.Message)
	}
	return fmt.Sprintf("recipe %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidRecipe.
func (e *RecipeValidationError) Unwrap() error { return ErrInvalidRecipe }
