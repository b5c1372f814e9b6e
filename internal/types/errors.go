package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors; match with errors.Is.
var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRule is returned when a catalog rule fails validation.
	ErrInvalidRule = errors.New("invalid rule")
)

// FieldError is a single schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// ValidationError reports every schema violation of a payload at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// Add records a violation.
func (e *ValidationError) Add(field, format string, args ...interface{}) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// OrNil returns e when it holds violations and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NotFoundError reports an unresolvable resource, e.g. a guideline version.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ComputationWarning is a recoverable collaborator failure. It is turned into a
// trace warning and never returned to callers.
type ComputationWarning struct {
	Source string
	Err    error
}

func (w *ComputationWarning) Error() string {
	return fmt.Sprintf("%s computation failed: %v", w.Source, w.Err)
}

func (w *ComputationWarning) Unwrap() error { return w.Err }

// InternalError hides an unexpected failure behind a generic message.
// The cause stays reachable through Unwrap for logging.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string { return "internal error" }

func (e *InternalError) Unwrap() error { return e.Err }

// Cause returns a log-safe description including the wrapped error.
func (e *InternalError) Cause() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}
