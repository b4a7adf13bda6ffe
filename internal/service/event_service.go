package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/internal/dto"
	"github.com/campushq/event-service/internal/metrics"
	"github.com/campushq/event-service/internal/repository"
	"github.com/campushq/event-service/pkg/logger"
	"github.com/campushq/event-service/pkg/telemetry"
)

// EventService defines the interface for event lifecycle business logic
type EventService interface {
	// CreateEvent creates a draft event owned by the organizer
	CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error)

	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error)

	// GetEventBySlug retrieves an event by its slug
	GetEventBySlug(ctx context.Context, slug string) (*dto.EventResponse, error)

	// ListEvents retrieves events matching the filter
	ListEvents(ctx context.Context, filter repository.EventFilter) (*dto.EventListResponse, error)

	// UpdateEvent updates a draft event owned by the organizer
	UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)

	// SubmitEvent moves a draft to pending review
	SubmitEvent(ctx context.Context, eventID, organizerID string) (*dto.EventResponse, error)

	// ReviewEvent approves or rejects a pending event
	ReviewEvent(ctx context.Context, eventID, reviewerID string, req *dto.ReviewEventRequest) (*dto.EventResponse, error)

	// CancelEvent cancels an event from any non-terminal state
	CancelEvent(ctx context.Context, eventID string) (*dto.EventResponse, error)

	// CompleteEvent closes out an approved event after it has run
	CompleteEvent(ctx context.Context, eventID string) (*dto.EventResponse, error)

	// DeleteEvent removes an event with no registration history
	DeleteEvent(ctx context.Context, eventID string) error

	// ReconcileEvent rebuilds the participant counter for one event
	ReconcileEvent(ctx context.Context, eventID string) (*dto.ReconcileResponse, error)
}

// eventService implements EventService
type eventService struct {
	eventRepo repository.EventRepository
	notifier  Notifier
}

// NewEventService creates a new event service
func NewEventService(eventRepo repository.EventRepository, notifier Notifier) EventService {
	if notifier == nil {
		notifier = NewNoOpNotifier()
	}
	return &eventService{
		eventRepo: eventRepo,
		notifier:  notifier,
	}
}

// notifyChange publishes an event lifecycle change. Notifications are best
// effort; failures are logged, never surfaced to the caller.
func (s *eventService) notifyChange(ctx context.Context, change domain.ChangeType, event *domain.Event) {
	if err := s.notifier.NotifyEventChange(ctx, change, event); err != nil {
		logger.Get().Warn("Failed to publish event change",
			zap.String("change", string(change)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// CreateEvent creates a draft event owned by the organizer
func (s *eventService) CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	if organizerID == "" {
		span.SetStatus(codes.Error, "invalid organizer_id")
		return nil, domain.ErrInvalidOrganizer
	}
	if req == nil {
		span.SetStatus(codes.Error, "invalid title")
		return nil, domain.ErrInvalidTitle
	}

	now := time.Now()
	event := &domain.Event{
		ID:                   uuid.New().String(),
		Slug:                 domain.Slugify(req.Title),
		Title:                req.Title,
		Description:          req.Description,
		Type:                 domain.EventType(req.Type),
		Status:               domain.EventStatusDraft,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxParticipants:      req.MaxParticipants,
		CurrentParticipants:  0,
		OrganizerID:          organizerID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := event.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("organizer_id", organizerID),
		attribute.String("type", string(event.Type)),
	)

	if err := s.eventRepo.Create(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordEventCreated(ctx, string(event.Type))

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// GetEvent retrieves an event by ID
func (s *eventService) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// GetEventBySlug retrieves an event by its slug
func (s *eventService) GetEventBySlug(ctx context.Context, slug string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get_by_slug")
	defer span.End()

	if slug == "" {
		span.SetStatus(codes.Error, "invalid slug")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("slug", slug))

	event, err := s.eventRepo.GetBySlug(ctx, slug)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// ListEvents retrieves events matching the filter
func (s *eventService) ListEvents(ctx context.Context, filter repository.EventFilter) (*dto.EventListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.list")
	defer span.End()

	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	events, total, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return dto.EventListFromDomain(events, total, filter.Limit, filter.Offset), nil
}

// UpdateEvent updates a draft event owned by the organizer
func (s *eventService) UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("organizer_id", organizerID),
	)

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if organizerID != "" && event.OrganizerID != organizerID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrEventNotFound
	}
	if event.Status != domain.EventStatusDraft {
		span.SetStatus(codes.Error, "not draft")
		return nil, domain.NewEventTransitionError(event.Status, domain.EventStatusDraft)
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Type != nil {
		event.Type = domain.EventType(*req.Type)
	}
	if req.StartTime != nil {
		event.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		event.EndTime = *req.EndTime
	}
	if req.RegistrationDeadline != nil {
		event.RegistrationDeadline = req.RegistrationDeadline
	}
	if req.MaxParticipants != nil {
		event.MaxParticipants = req.MaxParticipants
	}

	if err := event.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// SubmitEvent moves a draft to pending review
func (s *eventService) SubmitEvent(ctx context.Context, eventID, organizerID string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.submit")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if organizerID != "" && event.OrganizerID != organizerID {
		span.SetStatus(codes.Error, "not owner")
		return nil, domain.ErrEventNotFound
	}

	err = s.eventRepo.TransitionStatus(ctx, eventID, domain.EventStatusDraft, domain.EventStatusPending, "")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	event.Status = domain.EventStatusPending
	s.notifyChange(ctx, domain.ChangeEventSubmitted, event)

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// ReviewEvent approves or rejects a pending event. Rejection requires a
// reason so the organizer knows what to fix.
func (s *eventService) ReviewEvent(ctx context.Context, eventID, reviewerID string, req *dto.ReviewEventRequest) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.review")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("reviewer_id", reviewerID),
	)

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req == nil {
		span.SetStatus(codes.Error, "missing decision")
		return nil, domain.ErrRejectionReasonNeeded
	}

	target := domain.EventStatusApproved
	reason := ""
	change := domain.ChangeEventApproved
	if !req.Approve {
		if req.Reason == "" {
			span.SetStatus(codes.Error, "missing rejection reason")
			return nil, domain.ErrRejectionReasonNeeded
		}
		target = domain.EventStatusRejected
		reason = req.Reason
		change = domain.ChangeEventRejected
	}

	err := s.eventRepo.TransitionStatus(ctx, eventID, domain.EventStatusPending, target, reason)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordReview(ctx, eventID, req.Approve)
	s.notifyChange(ctx, change, event)

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// CancelEvent cancels an event from any non-terminal state. Existing
// registrations stay in place; downstream consumers notify registrants.
func (s *eventService) CancelEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !event.Status.CanTransitionTo(domain.EventStatusCancelled) {
		span.SetStatus(codes.Error, "terminal status")
		return nil, domain.NewEventTransitionError(event.Status, domain.EventStatusCancelled)
	}

	err = s.eventRepo.TransitionStatus(ctx, eventID, event.Status, domain.EventStatusCancelled, "")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	event.Status = domain.EventStatusCancelled
	metrics.RecordEventCancelled(ctx, eventID)
	s.notifyChange(ctx, domain.ChangeEventCancelled, event)

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// CompleteEvent closes out an approved event after it has run
func (s *eventService) CompleteEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.complete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	err := s.eventRepo.TransitionStatus(ctx, eventID, domain.EventStatusApproved, domain.EventStatusCompleted, "")
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.notifyChange(ctx, domain.ChangeEventCompleted, event)

	span.SetStatus(codes.Ok, "")
	return dto.EventFromDomain(event), nil
}

// DeleteEvent removes an event with no registration history
func (s *eventService) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return domain.ErrInvalidEventID
	}

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ReconcileEvent rebuilds the participant counter for one event
func (s *eventService) ReconcileEvent(ctx context.Context, eventID string) (*dto.ReconcileResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.reconcile")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	previous, actual, err := s.eventRepo.Reconcile(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if previous != actual {
		metrics.RecordDriftCorrection(ctx, eventID, int64(actual-previous))
	}

	span.SetAttributes(
		attribute.Int("previous", previous),
		attribute.Int("actual", actual),
	)
	span.SetStatus(codes.Ok, "")
	return &dto.ReconcileResponse{
		EventID:       eventID,
		PreviousCount: previous,
		ActualCount:   actual,
		Adjusted:      previous != actual,
	}, nil
}
