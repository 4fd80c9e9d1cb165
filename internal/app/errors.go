package app

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the assignment engine. Callers compare with errors.Is.
var (
	// ErrNoConsultantsAvailable is returned when the active roster is empty.
	// Not retryable without administrative action.
	ErrNoConsultantsAvailable = errors.New("no consultants available")

	// ErrNoSuitableConsultant is returned when the roster is non-empty but
	// selection produced no candidate, e.g. every consultant was excluded.
	ErrNoSuitableConsultant = errors.New("no suitable consultant")

	// ErrConcurrencyConflict is the parent of the transient commit conflicts.
	// The caller should retry the full select and commit cycle.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrConsultantLocked is returned when the consultant lock wait expires.
	ErrConsultantLocked = fmt.Errorf("%w: consultant locked", ErrConcurrencyConflict)

	// ErrVersionMismatch is returned when the consultant changed between
	// snapshot and commit.
	ErrVersionMismatch = fmt.Errorf("%w: consultant version mismatch", ErrConcurrencyConflict)

	// ErrValidation is the parent of ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence is the parent of PersistenceError.
	ErrPersistence = errors.New("persistence failure")

	// ErrConsultantHasActiveAssignments is returned when deactivating a
	// consultant that still holds open work.
	ErrConsultantHasActiveAssignments = errors.New("consultant has active assignments")

	// ErrAssignmentNotFound is returned when an assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrConsultantNotFound is returned when a consultant does not exist.
	ErrConsultantNotFound = errors.New("consultant not found")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid transition")
)

// ValidationError reports a malformed or missing request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// PersistenceError wraps an underlying store failure. Nothing was committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrPersistence and the cause.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// IsRetryable reports whether err is a transient concurrency conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func persistenceErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
