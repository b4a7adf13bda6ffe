package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventStatus represents the approval lifecycle state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPending   EventStatus = "pending"
	EventStatusApproved  EventStatus = "approved"
	EventStatusRejected  EventStatus = "rejected"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

func (s EventStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are legal from s.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCancelled || s == EventStatusCompleted
}

// CanTransitionTo reports whether s -> target is a legal approval transition.
// Cancellation is legal from any non-terminal state; who may trigger it is a
// policy decision made by the caller.
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	if target == EventStatusCancelled {
		return !s.IsTerminal()
	}
	switch s {
	case EventStatusDraft:
		return target == EventStatusPending
	case EventStatusPending:
		return target == EventStatusApproved || target == EventStatusRejected
	case EventStatusApproved:
		return target == EventStatusCompleted
	default:
		return false
	}
}

// EventType is the fixed taxonomy of campus events
type EventType string

const (
	EventTypeConference EventType = "conference"
	EventTypeWorkshop   EventType = "workshop"
	EventTypeSeminar    EventType = "seminar"
	EventTypeSocial     EventType = "social"
	EventTypeSports     EventType = "sports"
	EventTypeOther      EventType = "other"
)

// ValidEventType reports whether t belongs to the taxonomy.
func ValidEventType(t EventType) bool {
	switch t {
	case EventTypeConference, EventTypeWorkshop, EventTypeSeminar,
		EventTypeSocial, EventTypeSports, EventTypeOther:
		return true
	}
	return false
}

// Event represents a campus event and its denormalized capacity counter.
// CurrentParticipants is a cache of the count of confirmed+attended
// registrations; the registrations table is the source of truth and the
// counter is rebuilt from it during reconciliation.
type Event struct {
	ID                  string      `json:"id"`
	Slug                string      `json:"slug"`
	Title               string      `json:"title"`
	Description         string      `json:"description"`
	Type                EventType   `json:"type"`
	Status              EventStatus `json:"status"`
	RejectionReason     string      `json:"rejection_reason,omitempty"`
	StartTime           time.Time   `json:"start_time"`
	EndTime             time.Time   `json:"end_time"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	MaxParticipants     *int        `json:"max_participants,omitempty"`
	CurrentParticipants int         `json:"current_participants"`
	OrganizerID         string      `json:"organizer_id"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Validate checks the structural invariants of an event.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrInvalidTitle
	}
	if !ValidEventType(e.Type) {
		return ErrInvalidEventType
	}
	if e.OrganizerID == "" {
		return ErrInvalidOrganizer
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrInvalidSchedule
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.Before(e.StartTime) {
		return ErrInvalidDeadline
	}
	if e.MaxParticipants != nil && *e.MaxParticipants <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

// RegistrationOpen reports whether registration is permitted at the given
// time: the event is approved, before any registration deadline and before
// the event ends.
func (e *Event) RegistrationOpen(now time.Time) bool {
	if e.Status != EventStatusApproved {
		return false
	}
	if e.RegistrationDeadline != nil && !now.Before(*e.RegistrationDeadline) {
		return false
	}
	return now.Before(e.EndTime)
}

// IsUnbounded reports whether the event has no capacity ceiling.
func (e *Event) IsUnbounded() bool {
	return e.MaxParticipants == nil
}

// Slugify derives a URL-safe slug from an event title, with a short random
// suffix so distinct events with the same title get distinct slugs.
// Slug uniqueness is still enforced by the storage layer.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "event"
	}
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "-")
	}
	return slug + "-" + uuid.New().String()[:8]
}
