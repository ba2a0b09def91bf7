package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskNotFound is returned when a task cannot be found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSubmissionNotFound is returned when a submission cannot be found.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrDisputeNotFound is returned when a dispute cannot be found.
	ErrDisputeNotFound = errors.New("dispute not found")

	// ErrDuplicateSubmission is returned when a worker already has a
	// non-terminal submission for the task.
	ErrDuplicateSubmission = errors.New("worker already has an open submission for this task")

	// ErrNoSlotsAvailable is returned when a task has no remaining slots.
	ErrNoSlotsAvailable = errors.New("task has no slots available")

	// ErrDisputeAlreadyPending is returned when a second dispute is filed
	// while one is still open.
	ErrDisputeAlreadyPending = errors.New("a dispute is already pending for this submission")

	// ErrDisputeAlreadyResolved is returned when resolving a dispute twice.
	ErrDisputeAlreadyResolved = errors.New("dispute is already resolved")

	// ErrValidation marks synchronous bad-input failures. No state has
	// changed and the wrapped message is safe to surface verbatim.
	ErrValidation = errors.New("validation failed")
)

// InvalidStateTransitionError is returned for any submission status
// change not present in the transition table.
type InvalidStateTransitionError struct {
	SubmissionID string
	Current      SubmissionStatus
	Attempted    SubmissionStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for submission %s: %s -> %s",
		e.SubmissionID, e.Current, e.Attempted)
}

// ExternalPaymentError wraps failures of the external payment gateway.
// No local state has changed when it is returned, so the whole
// operation is safe to retry from the beginning.
type ExternalPaymentError struct {
	Op  string
	Err error
}

func (e *ExternalPaymentError) Error() string {
	return fmt.Sprintf("external payment %s failed: %v", e.Op, e.Err)
}

func (e *ExternalPaymentError) Unwrap() error {
	return e.Err
}

// NewExternalPaymentError wraps a gateway error for the given operation.
func NewExternalPaymentError(op string, err error) error {
	return &ExternalPaymentError{Op: op, Err: err}
}
