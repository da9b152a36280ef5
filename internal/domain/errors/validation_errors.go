package errors

import (
	"errors"
	"fmt"
)

var (
	// General validation errors
	ErrInvalidInput  = errors.New("invalid input")
	ErrRequiredField = errors.New("required field is missing")

	// Specific field validation errors
	ErrInvalidAppUserID          = errors.New("app user id must be a non-empty string")
	ErrInvalidAttributionNetwork = errors.New("invalid attribution network")
	ErrInvalidProductIDs         = errors.New("product identifiers must be non-empty")
)

// ValidationError wraps a field validation error
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s': %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error wrapping ErrInvalidInput
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     ErrInvalidInput,
	}
}

// NewFieldError creates a validation error wrapping a sentinel
func NewFieldError(field string, err error) *ValidationError {
	return &ValidationError{
		Field: field,
		Err:   err,
	}
}
