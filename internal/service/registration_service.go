package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/internal/dto"
	"github.com/campushq/event-service/internal/metrics"
	"github.com/campushq/event-service/internal/repository"
	"github.com/campushq/event-service/pkg/logger"
	"github.com/campushq/event-service/pkg/telemetry"
)

// RegistrationService defines the interface for registration business logic
type RegistrationService interface {
	// Register registers a user for an event and issues a ticket
	Register(ctx context.Context, eventID, userID string, req *dto.RegisterRequest) (*dto.RegisterResponse, error)

	// CancelRegistration cancels the caller's registration for an event
	CancelRegistration(ctx context.Context, eventID, userID string) (*dto.CancelRegistrationResponse, error)

	// CheckIn marks a registration as attended from a staff scan
	CheckIn(ctx context.Context, eventID, staffID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error)

	// GetRegistration retrieves the caller's registration for an event
	GetRegistration(ctx context.Context, eventID, userID string) (*dto.RegistrationResponse, error)

	// ListEventRegistrations retrieves registrations for an event
	ListEventRegistrations(ctx context.Context, eventID string, limit, offset int) (*dto.RegistrationListResponse, error)

	// ListUserRegistrations retrieves a user's registrations across events
	ListUserRegistrations(ctx context.Context, userID string, limit, offset int) ([]*dto.RegistrationResponse, error)
}

// registrationService implements RegistrationService
type registrationService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	issuer           TicketIssuer
	notifier         Notifier
	maxIssueAttempts int
}

// RegistrationServiceConfig contains configuration for the registration service
type RegistrationServiceConfig struct {
	MaxIssueAttempts int
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	issuer TicketIssuer,
	notifier Notifier,
	cfg *RegistrationServiceConfig,
) RegistrationService {
	attempts := 3
	if cfg != nil && cfg.MaxIssueAttempts > 0 {
		attempts = cfg.MaxIssueAttempts
	}
	if notifier == nil {
		notifier = NewNoOpNotifier()
	}
	return &registrationService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		issuer:           issuer,
		notifier:         notifier,
		maxIssueAttempts: attempts,
	}
}

// Register registers a user for an event. Capacity is claimed before the row
// is inserted; any failure after the claim triggers a compensating release so
// the counter never over-counts. Ticket identifier collisions are re-issued a
// bounded number of times.
func (s *registrationService) Register(ctx context.Context, eventID, userID string, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.register")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", userID),
	)

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !event.RegistrationOpen(time.Now()) {
		metrics.RecordRegistrationRejected(ctx, eventID, "not_open")
		span.SetStatus(codes.Error, "not open")
		return nil, domain.ErrEventNotOpen
	}

	// Fast duplicate check. The partial unique index is the authority; this
	// just avoids burning a capacity claim on the common repeat request.
	if _, err := s.registrationRepo.GetActiveByEventAndUser(ctx, eventID, userID); err == nil {
		metrics.RecordRegistrationRejected(ctx, eventID, "duplicate")
		span.SetStatus(codes.Error, "duplicate")
		return nil, domain.ErrDuplicateRegistration
	} else if !errors.Is(err, domain.ErrRegistrationNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.eventRepo.TryReserve(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrEventFull) {
			metrics.RecordRegistrationRejected(ctx, eventID, "full")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	reg, err := s.insertWithFreshTicket(ctx, span, event, userID, req)
	if err != nil {
		// Compensating release. If this also fails the reconcile sweep
		// repairs the counter.
		if releaseErr := s.eventRepo.Release(ctx, eventID); releaseErr != nil {
			span.RecordError(releaseErr)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordRegistration(ctx, eventID)
	s.notifyChange(ctx, domain.ChangeRegistrationConfirmed, reg)

	span.SetAttributes(attribute.String("registration_id", reg.ID))
	span.SetStatus(codes.Ok, "")
	return &dto.RegisterResponse{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		Status:         string(reg.Status),
		TicketNumber:   reg.TicketNumber,
		CheckinToken:   reg.CheckinToken,
		RegisteredAt:   reg.CreatedAt,
	}, nil
}

// insertWithFreshTicket issues identifiers and inserts the registration,
// re-issuing on ticket or token collisions up to the attempt budget.
func (s *registrationService) insertWithFreshTicket(ctx context.Context, span trace.Span, event *domain.Event, userID string, req *dto.RegisterRequest) (*domain.Registration, error) {
	note := ""
	if req != nil {
		note = req.Note
	}

	var lastErr error
	for attempt := 0; attempt < s.maxIssueAttempts; attempt++ {
		ticket, token, err := s.issuer.Issue(event.ID)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		reg := &domain.Registration{
			ID:           uuid.New().String(),
			EventID:      event.ID,
			UserID:       userID,
			Status:       domain.RegistrationStatusConfirmed,
			TicketNumber: ticket,
			CheckinToken: token,
			Note:         note,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		err = s.registrationRepo.Create(ctx, reg)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return nil, err
		}

		lastErr = err
		metrics.RecordTicketReissue(ctx, event.ID)
		span.AddEvent("ticket_reissued", trace.WithAttributes(
			attribute.Int("attempt", attempt+1),
		))
	}
	return nil, lastErr
}

// notifyChange publishes a registration change. Notifications are best
// effort; failures are logged, never surfaced to the caller.
func (s *registrationService) notifyChange(ctx context.Context, change domain.ChangeType, reg *domain.Registration) {
	if err := s.notifier.NotifyRegistrationChange(ctx, change, reg); err != nil {
		logger.Get().Warn("Failed to publish registration change",
			zap.String("change", string(change)),
			zap.String("registration_id", reg.ID),
			zap.String("event_id", reg.EventID),
			zap.Error(err))
	}
}

// CancelRegistration cancels the caller's registration. The status flip
// commits before the capacity release so a crash between the two leaves the
// counter high, never low; reconciliation closes the gap.
func (s *registrationService) CancelRegistration(ctx context.Context, eventID, userID string) (*dto.CancelRegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.cancel")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", userID),
	)

	reg, err := s.registrationRepo.GetActiveByEventAndUser(ctx, eventID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	wasCounted := reg.Status == domain.RegistrationStatusConfirmed

	cancelled, err := s.registrationRepo.Cancel(ctx, reg.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if wasCounted {
		if releaseErr := s.eventRepo.Release(ctx, eventID); releaseErr != nil {
			span.RecordError(releaseErr)
		}
	}

	metrics.RecordCancellation(ctx, eventID)
	s.notifyChange(ctx, domain.ChangeRegistrationCancelled, cancelled)

	span.SetStatus(codes.Ok, "")
	return &dto.CancelRegistrationResponse{
		RegistrationID: cancelled.ID,
		Status:         string(cancelled.Status),
		CancelledAt:    *cancelled.CancelledAt,
	}, nil
}

// CheckIn marks a registration as attended from a staff scan. Exactly one of
// ticket number or check-in token identifies the registration; the lookup is
// scoped to the event so a code from another event reads as not found.
func (s *registrationService) CheckIn(ctx context.Context, eventID, staffID string, req *dto.CheckInRequest) (*dto.CheckInResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.check_in")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if req == nil || (req.TicketNumber == "" && req.CheckinToken == "") ||
		(req.TicketNumber != "" && req.CheckinToken != "") {
		span.SetStatus(codes.Error, "missing identifier")
		return nil, domain.ErrMissingIdentifier
	}

	span.SetAttributes(attribute.String("event_id", eventID))

	var (
		reg *domain.Registration
		err error
	)
	if req.TicketNumber != "" {
		reg, err = s.registrationRepo.CheckInByTicket(ctx, eventID, req.TicketNumber, staffID)
	} else {
		reg, err = s.registrationRepo.CheckInByToken(ctx, eventID, req.CheckinToken, staffID)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordCheckIn(ctx, eventID)
	s.notifyChange(ctx, domain.ChangeRegistrationCheckedIn, reg)

	span.SetAttributes(attribute.String("registration_id", reg.ID))
	span.SetStatus(codes.Ok, "")
	return &dto.CheckInResponse{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		TicketNumber:   reg.TicketNumber,
		Status:         string(reg.Status),
		CheckedInAt:    *reg.CheckedInAt,
		CheckedInBy:    reg.CheckedInBy,
	}, nil
}

// GetRegistration retrieves the caller's registration for an event
func (s *registrationService) GetRegistration(ctx context.Context, eventID, userID string) (*dto.RegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.get")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	reg, err := s.registrationRepo.GetActiveByEventAndUser(ctx, eventID, userID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.RegistrationFromDomain(reg), nil
}

// ListEventRegistrations retrieves registrations for an event
func (s *registrationService) ListEventRegistrations(ctx context.Context, eventID string, limit, offset int) (*dto.RegistrationListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.list_by_event")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}

	regs, total, err := s.registrationRepo.ListByEvent(ctx, eventID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]*dto.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, dto.RegistrationFromDomain(reg))
	}

	span.SetStatus(codes.Ok, "")
	return &dto.RegistrationListResponse{
		Registrations: out,
		Total:         total,
	}, nil
}

// ListUserRegistrations retrieves a user's registrations across events
func (s *registrationService) ListUserRegistrations(ctx context.Context, userID string, limit, offset int) ([]*dto.RegistrationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.list_by_user")
	defer span.End()

	if userID == "" {
		span.SetStatus(codes.Error, "invalid user_id")
		return nil, domain.ErrInvalidUserID
	}

	regs, err := s.registrationRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]*dto.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		out = append(out, dto.RegistrationFromDomain(reg))
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}
