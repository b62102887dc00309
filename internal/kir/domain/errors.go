package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the KIR context. Every error the wizard returns wraps exactly one
// of ErrValidation, ErrConflict, ErrUnavailable or ErrPermissionDenied.
var (
	// ErrValidation marks a missing required field, malformed natural key or failed rule.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the natural key already belongs to another record.
	ErrConflict = errors.New("natural key already registered")

	// ErrUnavailable wraps network and availability failures. Safe to retry.
	ErrUnavailable = errors.New("record repository unavailable")

	// ErrPermissionDenied is returned when the repository rejects the caller. Not retried.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRecordNotFound is returned when a record id has no row.
	ErrRecordNotFound = errors.New("record not found")

	// ErrOptimisticLock is returned when an optimistic lock conflict occurs.
	ErrOptimisticLock = errors.New("optimistic lock conflict")

	// ErrRecordAlreadyAssigned is returned when a session is asked to adopt a second record id.
	ErrRecordAlreadyAssigned = errors.New("session already bound to a different record")

	// ErrCorruptData is returned when data loaded from persistence is invalid.
	ErrCorruptData = errors.New("corrupt data in storage")
)

// Violation is one failed check on one field.
type Violation struct {
	Field   string `json:"field"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ValidationError lists every violation found while checking a step or a natural key.
// The wizard state is unchanged when one is returned.
type ValidationError struct {
	Step       int
	Violations []Violation
}

// NewValidationError builds a ValidationError for the given step.
func NewValidationError(step int, violations ...Violation) *ValidationError {
	return &ValidationError{Step: step, Violations: violations}
}

func (e *ValidationError) Error() string {
	labels := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		labels = append(labels, v.Label)
	}
	if e.Step > 0 {
		return fmt.Sprintf("step %d: %s: %s", e.Step, ErrValidation, strings.Join(labels, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(labels, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Fields returns the names of the violated fields in report order.
func (e *ValidationError) Fields() []string {
	names := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		names = append(names, v.Field)
	}
	return names
}

// ConflictError reports the record that already owns a natural key.
// ExistingID may be empty when the store could not tell which record won.
type ConflictError struct {
	NaturalKey NaturalKey
	ExistingID RecordID
}

func (e *ConflictError) Error() string {
	if e.ExistingID.IsEmpty() {
		return fmt.Sprintf("%s: %s", ErrConflict, e.NaturalKey.Masked())
	}
	return fmt.Sprintf("%s: %s owned by %s", ErrConflict, e.NaturalKey.Masked(), e.ExistingID)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
