package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery   = errors.New("invalid query")
	ErrNotFound       = errors.New("not found")
	ErrAuthRequired   = errors.New("authentication required")
	ErrValidation     = errors.New("validation failed")
	ErrPermission     = errors.New("permission denied")
	ErrUnavailable    = errors.New("remote source unavailable")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrConflict       = errors.New("already exists")
)

// ValidationError points at the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
