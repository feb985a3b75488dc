// internal/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency unavailable")
	ErrNotFound   = errors.New("not found")
)

// ValidationError reports bad input detected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError blocks a single operation until the caller resolves it.
type ConflictError struct {
	Resource   string
	Key        string
	Reason     string
	ExistingID string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Resource, e.Key, e.Reason)
	if e.ExistingID != "" {
		msg += fmt.Sprintf(" (existing %s)", e.ExistingID)
	}
	return msg
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// DependencyError wraps a failing collaborator (storage, config, mail).
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

func (e *DependencyError) Unwrap() error { return e.Err }

// Dependency wraps err as a DependencyError unless it already carries a kind.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &DependencyError{Op: op, Err: err}
}

// NotFound reports a missing record.
func NotFound(resource, id string) error {
	return fmt.Errorf("%s %s: %w", resource, id, ErrNotFound)
}
