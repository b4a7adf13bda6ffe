package dto

import (
	"time"

	"github.com/campushq/event-service/internal/domain"
)

// CreateEventRequest represents request to create a draft event
type CreateEventRequest struct {
	Title                string     `json:"title" binding:"required"`
	Description          string     `json:"description,omitempty"`
	Type                 string     `json:"type" binding:"required"`
	StartTime            time.Time  `json:"start_time" binding:"required"`
	EndTime              time.Time  `json:"end_time" binding:"required"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
}

// UpdateEventRequest represents request to update a draft event
type UpdateEventRequest struct {
	Title                *string    `json:"title,omitempty"`
	Description          *string    `json:"description,omitempty"`
	Type                 *string    `json:"type,omitempty"`
	StartTime            *time.Time `json:"start_time,omitempty"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
}

// ReviewEventRequest represents an approve or reject decision on a
// pending event. Reason is required when Approve is false.
type ReviewEventRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// EventResponse represents an event in API response
type EventResponse struct {
	ID                   string     `json:"id"`
	Slug                 string     `json:"slug"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Type                 string     `json:"type"`
	Status               string     `json:"status"`
	RejectionReason      string     `json:"rejection_reason,omitempty"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              time.Time  `json:"end_time"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
	CurrentParticipants  int        `json:"current_participants"`
	AvailableSpots       *int       `json:"available_spots,omitempty"`
	OrganizerID          string     `json:"organizer_id"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// EventListResponse represents a paged list of events
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ReconcileResponse reports the outcome of a participant counter rebuild
type ReconcileResponse struct {
	EventID       string `json:"event_id"`
	PreviousCount int    `json:"previous_count"`
	ActualCount   int    `json:"actual_count"`
	Adjusted      bool   `json:"adjusted"`
}

// EventFromDomain converts domain Event to EventResponse
func EventFromDomain(e *domain.Event) *EventResponse {
	resp := &EventResponse{
		ID:                   e.ID,
		Slug:                 e.Slug,
		Title:                e.Title,
		Description:          e.Description,
		Type:                 string(e.Type),
		Status:               string(e.Status),
		RejectionReason:      e.RejectionReason,
		StartTime:            e.StartTime,
		EndTime:              e.EndTime,
		RegistrationDeadline: e.RegistrationDeadline,
		MaxParticipants:      e.MaxParticipants,
		CurrentParticipants:  e.CurrentParticipants,
		OrganizerID:          e.OrganizerID,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
	if e.MaxParticipants != nil {
		spots := *e.MaxParticipants - e.CurrentParticipants
		if spots < 0 {
			spots = 0
		}
		resp.AvailableSpots = &spots
	}
	return resp
}

// EventListFromDomain converts a slice of domain Events to EventListResponse
func EventListFromDomain(events []*domain.Event, total, limit, offset int) *EventListResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventFromDomain(e))
	}
	return &EventListResponse{
		Events: out,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
}
