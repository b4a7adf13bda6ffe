package domain

import "time"

// RegistrationStatus represents the lifecycle state of a registration
type RegistrationStatus string

const (
	RegistrationStatusPending   RegistrationStatus = "pending"
	RegistrationStatusConfirmed RegistrationStatus = "confirmed"
	RegistrationStatusCancelled RegistrationStatus = "cancelled"
	RegistrationStatusAttended  RegistrationStatus = "attended"
)

func (s RegistrationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are legal from s.
func (s RegistrationStatus) IsTerminal() bool {
	return s == RegistrationStatusCancelled || s == RegistrationStatusAttended
}

// IsActive reports whether the registration holds a capacity unit.
func (s RegistrationStatus) IsActive() bool {
	return s == RegistrationStatusPending || s == RegistrationStatusConfirmed || s == RegistrationStatusAttended
}

// CanTransitionTo reports whether s -> target is a legal transition.
// Registrations are created directly in confirmed; pending exists for a
// future organizer-gated flow and may only be confirmed or cancelled.
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	switch s {
	case RegistrationStatusPending:
		return target == RegistrationStatusConfirmed || target == RegistrationStatusCancelled
	case RegistrationStatusConfirmed:
		return target == RegistrationStatusAttended || target == RegistrationStatusCancelled
	default:
		return false
	}
}

// Registration represents one user's booking on one event. Rows are never
// physically deleted; cancellation is a status flip so the history survives
// for audit and statistics. Ticket numbers and check-in tokens are immutable
// once issued and never reused, including across cancelled registrations.
type Registration struct {
	ID           string             `json:"id"`
	EventID      string             `json:"event_id"`
	UserID       string             `json:"user_id"`
	Status       RegistrationStatus `json:"status"`
	TicketNumber string             `json:"ticket_number"`
	CheckinToken string             `json:"checkin_token"`
	Note         string             `json:"note,omitempty"`
	CheckedInAt  *time.Time         `json:"checked_in_at,omitempty"`
	CheckedInBy  string             `json:"checked_in_by,omitempty"`
	CancelledAt  *time.Time         `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// BelongsToUser reports whether the registration is owned by userID.
func (r *Registration) BelongsToUser(userID string) bool {
	return r.UserID == userID
}

// IsConfirmed reports whether the registration is in confirmed status.
func (r *Registration) IsConfirmed() bool {
	return r.Status == RegistrationStatusConfirmed
}

// IsCancelled reports whether the registration is in cancelled status.
func (r *Registration) IsCancelled() bool {
	return r.Status == RegistrationStatusCancelled
}

// IsCheckedIn reports whether the attended transition already happened.
func (r *Registration) IsCheckedIn() bool {
	return r.CheckedInAt != nil
}
