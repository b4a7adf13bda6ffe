package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/pkg/telemetry"
)

// PostgresRegistrationRepository implements RegistrationRepository using PostgreSQL with pgxpool
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

const registrationColumns = `
	id, event_id, user_id, status, ticket_number, checkin_token, note,
	checked_in_at, checked_in_by, cancelled_at, created_at, updated_at
`

// Create inserts a new registration, mapping unique violations to domain errors
func (r *PostgresRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("registration_id", reg.ID),
		attribute.String("event_id", reg.EventID),
		attribute.String("user_id", reg.UserID),
	)

	query := `
		INSERT INTO registrations (
			id, event_id, user_id, status, ticket_number, checkin_token, note,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9
		)
	`

	_, err := r.pool.Exec(ctx, query,
		reg.ID,
		reg.EventID,
		reg.UserID,
		string(reg.Status),
		reg.TicketNumber,
		reg.CheckinToken,
		nullString(reg.Note),
		reg.CreatedAt,
		reg.UpdatedAt,
	)

	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			span.SetStatus(codes.Error, "unique violation")
			return mapped
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create registration: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a registration by its ID
func (r *PostgresRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", id))

	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reg, nil
}

// GetActiveByEventAndUser retrieves the non-cancelled registration for a user on an event
func (r *PostgresRegistrationRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_active_by_event_and_user")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("user_id", userID),
	)

	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND user_id = $2 AND status <> $3
	`
	reg, err := scanRegistration(r.pool.QueryRow(ctx, query, eventID, userID, string(domain.RegistrationStatusCancelled)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRegistrationNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get registration by event and user: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return reg, nil
}

// ListByEvent retrieves registrations for an event, newest first
func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.list_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, eventID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs, err := collectRegistrations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("count", len(regs)))
	span.SetStatus(codes.Ok, "")
	return regs, total, nil
}

// ListByUser retrieves registrations for a user, newest first
func (r *PostgresRegistrationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.list_by_user")
	defer span.End()

	span.SetAttributes(attribute.String("user_id", userID))

	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list registrations by user: %w", err)
	}
	defer rows.Close()

	regs, err := collectRegistrations(rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(regs)))
	span.SetStatus(codes.Ok, "")
	return regs, nil
}

// Cancel moves a registration to cancelled with a conditional update
func (r *PostgresRegistrationRepository) Cancel(ctx context.Context, id string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.cancel")
	defer span.End()

	span.SetAttributes(attribute.String("registration_id", id))

	now := time.Now()
	query := `
		UPDATE registrations SET
			status = $2,
			cancelled_at = $3,
			updated_at = $3
		WHERE id = $1 AND status IN ($4, $5)
		RETURNING ` + registrationColumns

	reg, err := scanRegistration(r.pool.QueryRow(ctx, query,
		id,
		string(domain.RegistrationStatusCancelled),
		now,
		string(domain.RegistrationStatusPending),
		string(domain.RegistrationStatusConfirmed),
	))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return reg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to cancel registration: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		span.SetStatus(codes.Error, "not found")
		return nil, getErr
	}
	switch current.Status {
	case domain.RegistrationStatusCancelled:
		span.SetStatus(codes.Error, "already cancelled")
		return nil, domain.ErrAlreadyCancelled
	case domain.RegistrationStatusAttended:
		span.SetStatus(codes.Error, "already checked in")
		return nil, domain.ErrAlreadyCheckedIn
	default:
		span.SetStatus(codes.Error, "status conflict")
		return nil, domain.NewRegistrationTransitionError(current.Status, domain.RegistrationStatusCancelled)
	}
}

// CheckInByTicket marks a registration as attended, keyed by ticket number
func (r *PostgresRegistrationRepository) CheckInByTicket(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.check_in_by_ticket")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("ticket_number", ticketNumber),
	)

	return r.checkIn(ctx, span, eventID, "ticket_number", ticketNumber, checkedInBy)
}

// CheckInByToken marks a registration as attended, keyed by check-in token
func (r *PostgresRegistrationRepository) CheckInByToken(ctx context.Context, eventID, checkinToken, checkedInBy string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.check_in_by_token")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	return r.checkIn(ctx, span, eventID, "checkin_token", checkinToken, checkedInBy)
}

// checkIn performs the conditional attended transition. The lookup is scoped
// to the event so a ticket scanned at the wrong gate resolves to not found,
// and the status guard turns a double scan into a diagnosable conflict
// instead of a second count.
func (r *PostgresRegistrationRepository) checkIn(ctx context.Context, span trace.Span, eventID, column, value, checkedInBy string) (*domain.Registration, error) {
	now := time.Now()
	query := `
		UPDATE registrations SET
			status = $4,
			checked_in_at = $5,
			checked_in_by = $6,
			updated_at = $5
		WHERE event_id = $1 AND ` + column + ` = $2 AND status = $3 AND checked_in_at IS NULL
		RETURNING ` + registrationColumns

	reg, err := scanRegistration(r.pool.QueryRow(ctx, query,
		eventID,
		value,
		string(domain.RegistrationStatusConfirmed),
		string(domain.RegistrationStatusAttended),
		now,
		nullString(checkedInBy),
	))
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return reg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to check in registration: %w", err)
	}

	lookup := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND ` + column + ` = $2`
	current, getErr := scanRegistration(r.pool.QueryRow(ctx, lookup, eventID, value))
	if getErr != nil {
		if errors.Is(getErr, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrRegistrationNotFound
		}
		span.RecordError(getErr)
		span.SetStatus(codes.Error, getErr.Error())
		return nil, fmt.Errorf("failed to diagnose check-in: %w", getErr)
	}

	switch current.Status {
	case domain.RegistrationStatusAttended:
		span.SetStatus(codes.Error, "already checked in")
		return nil, domain.ErrAlreadyCheckedIn
	case domain.RegistrationStatusCancelled:
		span.SetStatus(codes.Error, "cancelled")
		return nil, domain.ErrRegistrationNotFound
	default:
		span.SetStatus(codes.Error, "not confirmed")
		return nil, domain.ErrNotConfirmed
	}
}

// CountActiveByEvent counts confirmed and attended registrations for an event
func (r *PostgresRegistrationRepository) CountActiveByEvent(ctx context.Context, eventID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.count_active_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM registrations
		WHERE event_id = $1 AND status IN ($2, $3)
	`, eventID, string(domain.RegistrationStatusConfirmed), string(domain.RegistrationStatusAttended)).Scan(&count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to count active registrations: %w", err)
	}

	span.SetAttributes(attribute.Int("count", count))
	span.SetStatus(codes.Ok, "")
	return count, nil
}

func collectRegistrations(rows pgx.Rows) ([]*domain.Registration, error) {
	var regs []*domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registrations: %w", err)
	}
	return regs, nil
}

func scanRegistration(row pgx.Row) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var (
		status      string
		note        *string
		checkedInBy *string
	)

	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&status,
		&reg.TicketNumber,
		&reg.CheckinToken,
		&note,
		&reg.CheckedInAt,
		&checkedInBy,
		&reg.CancelledAt,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	reg.Status = domain.RegistrationStatus(status)
	if note != nil {
		reg.Note = *note
	}
	if checkedInBy != nil {
		reg.CheckedInBy = *checkedInBy
	}
	return reg, nil
}
