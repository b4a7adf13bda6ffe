package repository

import (
	"context"

	"github.com/campushq/event-service/internal/domain"
)

// RegistrationRepository defines the interface for registration data access
type RegistrationRepository interface {
	// Create inserts a new registration. Unique violations are mapped to
	// domain.ErrDuplicateRegistration (same user already active on the
	// event) or domain.ErrDuplicateKey (ticket number or check-in token
	// collision, retryable with fresh identifiers).
	Create(ctx context.Context, reg *domain.Registration) error

	// GetByID retrieves a registration by its ID
	GetByID(ctx context.Context, id string) (*domain.Registration, error)

	// GetActiveByEventAndUser retrieves the non-cancelled registration for
	// a user on an event, if any.
	GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error)

	// ListByEvent retrieves registrations for an event, newest first
	ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error)

	// ListByUser retrieves registrations for a user, newest first
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error)

	// Cancel moves a registration to cancelled. Conditional on the current
	// status still being cancellable; on failure the follow-up read
	// distinguishes domain.ErrAlreadyCancelled, domain.ErrAlreadyCheckedIn
	// and domain.ErrRegistrationNotFound.
	Cancel(ctx context.Context, id string) (*domain.Registration, error)

	// CheckInByTicket marks the registration holding ticketNumber on
	// eventID as attended. The update is conditional so a double scan is
	// detected rather than double-counted. checkedInBy records the staff
	// member performing the scan.
	CheckInByTicket(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error)

	// CheckInByToken is CheckInByTicket keyed by the stored check-in token.
	CheckInByToken(ctx context.Context, eventID, checkinToken, checkedInBy string) (*domain.Registration, error)

	// CountActiveByEvent counts confirmed and attended registrations for an
	// event, the ground truth behind the participant counter.
	CountActiveByEvent(ctx context.Context, eventID string) (int, error)
}
