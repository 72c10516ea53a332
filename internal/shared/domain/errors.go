package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = fmt.Errorf("%w: state transition is not allowed", ErrConflict)
	ErrDependency        = errors.New("external dependency unavailable")
)

// ValidationError lists every rule violated by a single call.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Violations, ", ")
}

// Is lets callers match any ValidationError with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Violations accumulates precondition failures before any write happens.
type Violations struct {
	items []string
}

// Add records a violation.
func (v *Violations) Add(msg string) {
	v.items = append(v.items, msg)
}

// Merge appends every violation of other.
func (v *Violations) Merge(other []string) {
	v.items = append(v.items, other...)
}

// Empty reports whether no violation was recorded.
func (v *Violations) Empty() bool {
	return len(v.items) == 0
}

// Err returns a *ValidationError, or nil when nothing was recorded.
func (v *Violations) Err() error {
	if v.Empty() {
		return nil
	}
	items := make([]string, len(v.items))
	copy(items, v.items)
	return &ValidationError{Violations: items}
}

// IsRetryable reports whether err came from an unavailable dependency.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDependency)
}
