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

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/pkg/telemetry"
)

// PostgresEventRepository implements EventRepository using PostgreSQL with pgxpool
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

const eventColumns = `
	id, slug, title, description, type, status, rejection_reason,
	start_time, end_time, registration_deadline,
	max_participants, current_participants, organizer_id,
	created_at, updated_at
`

// Create creates a new event record in the database
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("organizer_id", event.OrganizerID),
	)

	query := `
		INSERT INTO events (
			id, slug, title, description, type, status, rejection_reason,
			start_time, end_time, registration_deadline,
			max_participants, current_participants, organizer_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15
		)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Slug,
		event.Title,
		nullString(event.Description),
		string(event.Type),
		string(event.Status),
		nullString(event.RejectionReason),
		event.StartTime,
		event.EndTime,
		event.RegistrationDeadline,
		event.MaxParticipants,
		event.CurrentParticipants,
		event.OrganizerID,
		event.CreatedAt,
		event.UpdatedAt,
	)

	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			span.SetStatus(codes.Error, "unique violation")
			return mapped
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an event by its ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// GetBySlug retrieves an event by its slug
func (r *PostgresEventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_slug")
	defer span.End()

	span.SetAttributes(attribute.String("slug", slug))

	query := `SELECT ` + eventColumns + ` FROM events WHERE slug = $1`
	event, err := scanEvent(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get event by slug: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// List retrieves events matching the filter, newest first
func (r *PostgresEventRepository) List(ctx context.Context, filter EventFilter) ([]*domain.Event, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.Type != "" {
		where += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, string(filter.Type))
		idx++
	}
	if filter.OrganizerID != "" {
		where += fmt.Sprintf(" AND organizer_id = $%d", idx)
		args = append(args, filter.OrganizerID)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + eventColumns + ` FROM events` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, fmt.Errorf("error iterating events: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, total, nil
}

// Update updates the mutable fields of a draft event. The update is
// conditional on the event still being in draft so a concurrent submit
// cannot be overwritten.
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	query := `
		UPDATE events SET
			title = $2,
			description = $3,
			type = $4,
			start_time = $5,
			end_time = $6,
			registration_deadline = $7,
			max_participants = $8,
			updated_at = $9
		WHERE id = $1 AND status = $10
	`

	result, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Title,
		nullString(event.Description),
		string(event.Type),
		event.StartTime,
		event.EndTime,
		event.RegistrationDeadline,
		event.MaxParticipants,
		time.Now(),
		string(domain.EventStatusDraft),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to update event: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, event.ID)
		if getErr != nil {
			span.SetStatus(codes.Error, "not found")
			return getErr
		}
		span.SetStatus(codes.Error, "not draft")
		return domain.NewEventTransitionError(current.Status, domain.EventStatusDraft)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// TransitionStatus moves an event between lifecycle states with a
// conditional update. Losing a race to another transition is reported as an
// invalid transition from the status actually found.
func (r *PostgresEventRepository) TransitionStatus(ctx context.Context, id string, from, to domain.EventStatus, rejectionReason string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.transition_status")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", id),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	query := `
		UPDATE events SET
			status = $3,
			rejection_reason = $4,
			updated_at = $5
		WHERE id = $1 AND status = $2
	`

	result, err := r.pool.Exec(ctx, query,
		id, string(from), string(to), nullString(rejectionReason), time.Now(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to transition event status: %w", err)
	}

	if result.RowsAffected() == 0 {
		var current string
		err := r.pool.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return domain.ErrEventNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to diagnose event transition: %w", err)
		}
		span.SetStatus(codes.Error, "status conflict")
		return domain.NewEventTransitionError(domain.EventStatus(current), to)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// TryReserve atomically claims one participant slot. The guard runs inside
// the UPDATE itself so two registrars can never both take the last spot, and
// the status condition closes the race with a concurrent cancellation.
func (r *PostgresEventRepository) TryReserve(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.try_reserve")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		UPDATE events SET
			current_participants = current_participants + 1,
			updated_at = $2
		WHERE id = $1
		  AND status = $3
		  AND (max_participants IS NULL OR current_participants < max_participants)
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now(), string(domain.EventStatusApproved))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to reserve spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		var status string
		err := r.pool.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetStatus(codes.Error, "not found")
				return domain.ErrEventNotFound
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to diagnose reserve: %w", err)
		}
		if domain.EventStatus(status) != domain.EventStatusApproved {
			span.SetStatus(codes.Error, "not open")
			return domain.ErrEventNotOpen
		}
		span.SetStatus(codes.Error, "full")
		return domain.ErrEventFull
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Release atomically returns one participant slot. The counter never goes
// below zero; releasing at zero is a no-op and reconciliation repairs any
// drift behind it.
func (r *PostgresEventRepository) Release(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.release")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		UPDATE events SET
			current_participants = current_participants - 1,
			updated_at = $2
		WHERE id = $1 AND current_participants > 0
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to release spot: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to diagnose release: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrEventNotFound
		}
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Reconcile rebuilds the participant counter from the registrations table.
// The row is locked for the duration so a concurrent reserve cannot slip
// between the count and the write.
func (r *PostgresEventRepository) Reconcile(ctx context.Context, id string) (int, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.reconcile")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, fmt.Errorf("failed to begin reconcile tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous int
	err = tx.QueryRow(ctx, `SELECT current_participants FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return 0, 0, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, fmt.Errorf("failed to lock event for reconcile: %w", err)
	}

	var actual int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM registrations
		WHERE event_id = $1 AND status IN ($2, $3)
	`, id, string(domain.RegistrationStatusConfirmed), string(domain.RegistrationStatusAttended)).Scan(&actual)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, fmt.Errorf("failed to count registrations: %w", err)
	}

	if actual != previous {
		_, err = tx.Exec(ctx, `
			UPDATE events SET current_participants = $2, updated_at = $3 WHERE id = $1
		`, id, actual, time.Now())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return 0, 0, fmt.Errorf("failed to write reconciled count: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, 0, fmt.Errorf("failed to commit reconcile: %w", err)
	}

	span.SetAttributes(
		attribute.Int("previous", previous),
		attribute.Int("actual", actual),
	)
	span.SetStatus(codes.Ok, "")
	return previous, actual, nil
}

// ListReconcilable returns IDs of events whose counter may drift
func (r *PostgresEventRepository) ListReconcilable(ctx context.Context, limit int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list_reconcilable")
	defer span.End()

	query := `
		SELECT id FROM events
		WHERE status IN ($1, $2)
		ORDER BY updated_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query,
		string(domain.EventStatusApproved), string(domain.EventStatusCancelled), limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list reconcilable events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("error iterating event ids: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// Delete removes an event that has no registration history
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		DELETE FROM events
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1)
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("failed to diagnose delete: %w", err)
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return domain.ErrEventNotFound
		}
		span.SetStatus(codes.Error, "has registrations")
		return domain.ErrEventHasRegistrations
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	var (
		description     *string
		eventType       string
		status          string
		rejectionReason *string
	)

	err := row.Scan(
		&event.ID,
		&event.Slug,
		&event.Title,
		&description,
		&eventType,
		&status,
		&rejectionReason,
		&event.StartTime,
		&event.EndTime,
		&event.RegistrationDeadline,
		&event.MaxParticipants,
		&event.CurrentParticipants,
		&event.OrganizerID,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Type = domain.EventType(eventType)
	event.Status = domain.EventStatus(status)
	if description != nil {
		event.Description = *description
	}
	if rejectionReason != nil {
		event.RejectionReason = *rejectionReason
	}
	return event, nil
}
