package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrInvalidChunk     = errors.New("invalid chunk")
	ErrInvalidPrecedent = errors.New("invalid precedent")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidAmount    = errors.New("invalid claim amount")
	ErrEmptyQuery       = errors.New("empty query")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
