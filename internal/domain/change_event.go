package domain

import "time"

// ChangeType identifies a lifecycle change worth announcing downstream
type ChangeType string

const (
	ChangeEventSubmitted        ChangeType = "event.submitted"
	ChangeEventApproved         ChangeType = "event.approved"
	ChangeEventRejected         ChangeType = "event.rejected"
	ChangeEventCancelled        ChangeType = "event.cancelled"
	ChangeEventCompleted        ChangeType = "event.completed"
	ChangeRegistrationConfirmed ChangeType = "registration.confirmed"
	ChangeRegistrationCancelled ChangeType = "registration.cancelled"
	ChangeRegistrationCheckedIn ChangeType = "registration.checked_in"
)

// ChangeEvent is the envelope published to the notification topic. Consumers
// key on EventID so all changes for one event land on the same partition in
// order.
type ChangeEvent struct {
	ID           string        `json:"id"`
	Type         ChangeType    `json:"type"`
	EventID      string        `json:"event_id"`
	OccurredAt   time.Time     `json:"occurred_at"`
	Event        *Event        `json:"event,omitempty"`
	Registration *Registration `json:"registration,omitempty"`
}

// NewEventChange builds a change envelope for an event lifecycle transition
func NewEventChange(changeType ChangeType, event *Event, changeID string) *ChangeEvent {
	return &ChangeEvent{
		ID:         changeID,
		Type:       changeType,
		EventID:    event.ID,
		OccurredAt: time.Now(),
		Event:      event,
	}
}

// NewRegistrationChange builds a change envelope for a registration transition
func NewRegistrationChange(changeType ChangeType, reg *Registration, changeID string) *ChangeEvent {
	return &ChangeEvent{
		ID:           changeID,
		Type:         changeType,
		EventID:      reg.EventID,
		OccurredAt:   time.Now(),
		Registration: reg,
	}
}

// Key returns the partition key for the change
func (e *ChangeEvent) Key() string {
	return e.EventID
}
