package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every store when a referenced record is missing.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks master process definitions that cannot be expanded.
	ErrConfiguration = errors.New("invalid process configuration")
	// ErrValidation marks malformed caller input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrOverlappingCalendar is returned when a client already has periods of
	// the same process inside the requested year.
	ErrOverlappingCalendar = errors.New("calendar overlaps existing periods")
)

// ConfigurationError reports a master process that cannot be generated.
type ConfigurationError struct {
	ProcessID int64
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("process %d: %s", e.ProcessID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
