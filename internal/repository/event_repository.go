package repository

import (
	"context"

	"github.com/campushq/event-service/internal/domain"
)

// EventFilter narrows event listings
type EventFilter struct {
	Status      domain.EventStatus
	Type        domain.EventType
	OrganizerID string
	Limit       int
	Offset      int
}

// EventRepository defines the interface for event data access
type EventRepository interface {
	// Create creates a new event record in the database
	Create(ctx context.Context, event *domain.Event) error

	// GetByID retrieves an event by its ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// GetBySlug retrieves an event by its slug
	GetBySlug(ctx context.Context, slug string) (*domain.Event, error)

	// List retrieves events matching the filter, newest first
	List(ctx context.Context, filter EventFilter) ([]*domain.Event, int, error)

	// Update updates the mutable fields of a draft event
	Update(ctx context.Context, event *domain.Event) error

	// TransitionStatus moves an event from one status to another. The update
	// is conditional on the current status so concurrent transitions cannot
	// race. Returns domain.ErrInvalidStateTransition when the event is no
	// longer in the expected status, domain.ErrEventNotFound when it does
	// not exist.
	TransitionStatus(ctx context.Context, id string, from, to domain.EventStatus, rejectionReason string) error

	// TryReserve atomically claims one participant slot. Returns
	// domain.ErrEventFull when the event is at capacity and
	// domain.ErrEventNotFound when the event does not exist.
	TryReserve(ctx context.Context, id string) error

	// Release atomically returns one participant slot. Never drives the
	// counter below zero.
	Release(ctx context.Context, id string) error

	// Reconcile rebuilds the participant counter from the registrations
	// table and returns the previous and corrected counts.
	Reconcile(ctx context.Context, id string) (previous, actual int, err error)

	// ListReconcilable returns IDs of events whose counter may drift, for
	// the background reconcile sweep.
	ListReconcilable(ctx context.Context, limit int) ([]string, error)

	// Delete removes an event. Returns domain.ErrEventHasRegistrations when
	// any registration rows reference it.
	Delete(ctx context.Context, id string) error
}
