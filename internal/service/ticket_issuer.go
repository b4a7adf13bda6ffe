package service

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campushq/event-service/internal/domain"
)

// TicketIssuer generates ticket numbers and check-in tokens for new
// registrations. Generated identifiers are collision-resistant but global
// uniqueness is guaranteed by the storage layer's unique constraints; a
// collision surfaces as domain.ErrDuplicateKey and the caller re-issues.
type TicketIssuer interface {
	// Issue returns a ticket number and a signed check-in token for eventID.
	Issue(eventID string) (ticketNumber, checkinToken string, err error)
}

// CheckinClaims is the payload embedded in a check-in token. The token is
// self-describing when scanned, but the check-in resolver treats it as an
// opaque lookup key and re-validates against stored state.
type CheckinClaims struct {
	EventID      string `json:"event_id"`
	TicketNumber string `json:"ticket_number"`
	Purpose      string `json:"purpose"`
	jwt.RegisteredClaims
}

// jwtTicketIssuer implements TicketIssuer with HS256-signed check-in tokens.
type jwtTicketIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// TicketIssuerConfig contains configuration for the ticket issuer
type TicketIssuerConfig struct {
	Secret string
	Issuer string
}

// NewTicketIssuer creates a new ticket issuer
func NewTicketIssuer(cfg *TicketIssuerConfig) (TicketIssuer, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, fmt.Errorf("ticket issuer secret is required")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "event-service"
	}
	return &jwtTicketIssuer{
		secret: []byte(cfg.Secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

func (t *jwtTicketIssuer) Issue(eventID string) (string, string, error) {
	now := t.now()
	ticket, err := generateTicketNumber(now)
	if err != nil {
		return "", "", err
	}

	claims := CheckinClaims{
		EventID:      eventID,
		TicketNumber: ticket,
		Purpose:      "checkin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   t.issuer,
			ID:       randomSuffix(8),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign check-in token: %w", err)
	}

	return ticket, signed, nil
}

// ticketAlphabet avoids ambiguous characters (0/O, 1/I/L) so numbers can be
// read back over a help desk.
const ticketAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// generateTicketNumber builds a short human-presentable identifier with a
// date prefix and a random suffix, e.g. TKT-260901-K7R2MQ.
func generateTicketNumber(now time.Time) (string, error) {
	suffix := randomSuffix(6)
	if suffix == "" {
		return "", fmt.Errorf("failed to read random bytes for ticket number")
	}
	return fmt.Sprintf("TKT-%s-%s", now.UTC().Format("060102"), suffix), nil
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = ticketAlphabet[int(b)%len(ticketAlphabet)]
	}
	return string(out)
}

// ParseCheckinToken decodes a check-in token without trusting it: callers
// must still resolve the registration by the stored token value. Exposed for
// scanners that want to show which event a code belongs to before calling in.
func ParseCheckinToken(tokenString, secret string) (*CheckinClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CheckinClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid check-in token: %w", err)
	}
	claims, ok := token.Claims.(*CheckinClaims)
	if !ok || claims.Purpose != "checkin" {
		return nil, domain.ErrRegistrationNotFound
	}
	return claims, nil
}
