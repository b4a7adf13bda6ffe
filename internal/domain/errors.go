package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Event errors
	ErrEventNotFound         = errors.New("event not found")
	ErrEventNotOpen          = errors.New("event is not open for registration")
	ErrEventFull             = errors.New("event has no remaining capacity")
	ErrEventHasRegistrations = errors.New("event has registrations and cannot be deleted")
	ErrRejectionReasonNeeded = errors.New("rejection requires a reason")

	// Registration errors
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrDuplicateRegistration = errors.New("user is already registered for this event")
	ErrAlreadyCancelled      = errors.New("registration is already cancelled")
	ErrNotConfirmed          = errors.New("registration is not confirmed")
	ErrAlreadyCheckedIn      = errors.New("registration is already checked in")
	ErrMissingIdentifier     = errors.New("ticket number or check-in token is required")

	// Lifecycle errors
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Storage errors
	// ErrDuplicateKey signals a ticket or token unique-constraint collision.
	// Retryable at the issuing site by generating a fresh identifier.
	ErrDuplicateKey = errors.New("duplicate key")

	// Validation errors
	ErrInvalidEventID   = errors.New("invalid event id")
	ErrInvalidUserID    = errors.New("invalid user id")
	ErrInvalidTitle     = errors.New("event title is required")
	ErrInvalidEventType = errors.New("unknown event type")
	ErrInvalidSchedule  = errors.New("event end time must be after start time")
	ErrInvalidDeadline  = errors.New("registration deadline must precede start time")
	ErrInvalidCapacity  = errors.New("max participants must be positive when set")
	ErrInvalidOrganizer = errors.New("invalid organizer id")
)

// StateTransitionError reports an illegal lifecycle transition with the
// current and requested states. It matches ErrInvalidStateTransition under
// errors.Is.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s cannot transition from %s to %s", e.Entity, e.From, e.To)
}

func (e *StateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// NewEventTransitionError builds a StateTransitionError for an event.
func NewEventTransitionError(from, to EventStatus) error {
	return &StateTransitionError{Entity: "event", From: string(from), To: string(to)}
}

// NewRegistrationTransitionError builds a StateTransitionError for a registration.
func NewRegistrationTransitionError(from, to RegistrationStatus) error {
	return &StateTransitionError{Entity: "registration", From: string(from), To: string(to)}
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrRegistrationNotFound)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrEventNotOpen) ||
		errors.Is(err, ErrEventFull) ||
		errors.Is(err, ErrEventHasRegistrations) ||
		errors.Is(err, ErrDuplicateRegistration) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrNotConfirmed) ||
		errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrInvalidStateTransition)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidEventID) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidTitle) ||
		errors.Is(err, ErrInvalidEventType) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidDeadline) ||
		errors.Is(err, ErrInvalidCapacity) ||
		errors.Is(err, ErrInvalidOrganizer) ||
		errors.Is(err, ErrRejectionReasonNeeded) ||
		errors.Is(err, ErrMissingIdentifier)
}

// IsRetryableError checks if the error can be retried at the call site
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
