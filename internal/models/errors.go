package models

import (
	"errors"
	"fmt"
)

// Error classes shared by every package. Concrete errors wrap one of these
// with %w so callers can branch with errors.Is.
var (
	// ErrValidation marks bad user input. The caller re-prompts.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a lookup miss (invitation code, group, user).
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a request that contradicts current state.
	ErrConflict = errors.New("conflict")

	// ErrBackendUnavailable marks a failed call to the tabular store or ledger.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrDataCorruption marks a persisted row that cannot be parsed.
	ErrDataCorruption = errors.New("data corruption")
)

// ValidationError describes why a piece of user input was rejected.
// Reason is a short, stable class the transport can map to a message.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
