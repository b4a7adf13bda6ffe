package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campushq/event-service/internal/domain"
)

const pgUniqueViolation = "23505"

// mapUniqueViolation classifies a postgres unique violation by the
// constraint that fired. The per-user registration constraint means the
// caller is already registered; ticket and token constraints mean the
// generated identifier collided and the caller should re-issue.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "event_user"):
		return domain.ErrDuplicateRegistration
	case strings.Contains(pgErr.ConstraintName, "ticket_number"),
		strings.Contains(pgErr.ConstraintName, "checkin_token"),
		strings.Contains(pgErr.ConstraintName, "slug"):
		return domain.ErrDuplicateKey
	default:
		return domain.ErrDuplicateKey
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
