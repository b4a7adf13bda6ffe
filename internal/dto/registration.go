package dto

import (
	"time"

	"github.com/campushq/event-service/internal/domain"
)

// RegisterRequest represents request to register a user for an event
type RegisterRequest struct {
	Note           string `json:"note,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// RegisterResponse represents response after a successful registration
type RegisterResponse struct {
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	Status         string    `json:"status"`
	TicketNumber   string    `json:"ticket_number"`
	CheckinToken   string    `json:"checkin_token"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// CheckInRequest identifies a registration to check in. Exactly one of
// TicketNumber or CheckinToken must be provided.
type CheckInRequest struct {
	TicketNumber string `json:"ticket_number,omitempty"`
	CheckinToken string `json:"checkin_token,omitempty"`
}

// CheckInResponse represents response after a check-in scan
type CheckInResponse struct {
	RegistrationID string    `json:"registration_id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	TicketNumber   string    `json:"ticket_number"`
	Status         string    `json:"status"`
	CheckedInAt    time.Time `json:"checked_in_at"`
	CheckedInBy    string    `json:"checked_in_by,omitempty"`
}

// CancelRegistrationResponse represents response after cancelling a registration
type CancelRegistrationResponse struct {
	RegistrationID string    `json:"registration_id"`
	Status         string    `json:"status"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

// RegistrationResponse represents a registration in API response
type RegistrationResponse struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	Status       string     `json:"status"`
	TicketNumber string     `json:"ticket_number"`
	Note         string     `json:"note,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedInBy  string     `json:"checked_in_by,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RegistrationListResponse represents a list of registrations for an event
type RegistrationListResponse struct {
	Registrations []*RegistrationResponse `json:"registrations"`
	Total         int                     `json:"total"`
}

// RegistrationFromDomain converts domain Registration to RegistrationResponse
func RegistrationFromDomain(r *domain.Registration) *RegistrationResponse {
	return &RegistrationResponse{
		ID:           r.ID,
		EventID:      r.EventID,
		UserID:       r.UserID,
		Status:       string(r.Status),
		TicketNumber: r.TicketNumber,
		Note:         r.Note,
		CheckedInAt:  r.CheckedInAt,
		CheckedInBy:  r.CheckedInBy,
		CancelledAt:  r.CancelledAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
