package service

import (
	"regexp"
	"testing"
	"time"
)

func TestNewTicketIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewTicketIssuer(nil); err == nil {
		t.Error("nil config should be rejected")
	}
	if _, err := NewTicketIssuer(&TicketIssuerConfig{}); err == nil {
		t.Error("empty secret should be rejected")
	}
	if _, err := NewTicketIssuer(&TicketIssuerConfig{Secret: "test-secret"}); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestTicketIssuer_Issue(t *testing.T) {
	issuer, err := NewTicketIssuer(&TicketIssuerConfig{Secret: "test-secret", Issuer: "test"})
	if err != nil {
		t.Fatalf("NewTicketIssuer: %v", err)
	}

	ticket, token, err := issuer.Issue("event-001")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	pattern := regexp.MustCompile(`^TKT-\d{6}-[23456789A-HJKMNP-Z]{6}$`)
	if !pattern.MatchString(ticket) {
		t.Errorf("ticket number %q does not match expected format", ticket)
	}
	if token == "" {
		t.Fatal("check-in token is empty")
	}

	claims, err := ParseCheckinToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseCheckinToken: %v", err)
	}
	if claims.EventID != "event-001" {
		t.Errorf("EventID = %q, want event-001", claims.EventID)
	}
	if claims.TicketNumber != ticket {
		t.Errorf("TicketNumber = %q, want %q", claims.TicketNumber, ticket)
	}
	if claims.Purpose != "checkin" {
		t.Errorf("Purpose = %q, want checkin", claims.Purpose)
	}
	if claims.Issuer != "test" {
		t.Errorf("Issuer = %q, want test", claims.Issuer)
	}
}

func TestTicketIssuer_IdentifiersDiffer(t *testing.T) {
	issuer, err := NewTicketIssuer(&TicketIssuerConfig{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("NewTicketIssuer: %v", err)
	}

	seenTickets := make(map[string]bool)
	seenTokens := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ticket, token, err := issuer.Issue("event-001")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if seenTickets[ticket] {
			t.Fatalf("ticket number repeated after %d issues: %s", i, ticket)
		}
		if seenTokens[token] {
			t.Fatalf("check-in token repeated after %d issues", i)
		}
		seenTickets[ticket] = true
		seenTokens[token] = true
	}
}

func TestTicketIssuer_DatePrefix(t *testing.T) {
	issuer := &jwtTicketIssuer{
		secret: []byte("test-secret"),
		issuer: "test",
		now: func() time.Time {
			return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		},
	}

	ticket, _, err := issuer.Issue("event-001")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if ticket[:11] != "TKT-260314-" {
		t.Errorf("ticket prefix = %q, want TKT-260314-", ticket[:11])
	}
}

func TestParseCheckinToken_WrongSecret(t *testing.T) {
	issuer, _ := NewTicketIssuer(&TicketIssuerConfig{Secret: "test-secret"})
	_, token, err := issuer.Issue("event-001")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := ParseCheckinToken(token, "other-secret"); err == nil {
		t.Error("token signed with a different secret should be rejected")
	}
	if _, err := ParseCheckinToken("not-a-token", "test-secret"); err == nil {
		t.Error("garbage token should be rejected")
	}
}
