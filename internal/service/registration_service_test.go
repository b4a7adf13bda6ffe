package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/internal/dto"
	"github.com/campushq/event-service/internal/repository"
)

// MockEventRepository is a mock implementation of EventRepository
type MockEventRepository struct {
	CreateFunc           func(ctx context.Context, event *domain.Event) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Event, error)
	GetBySlugFunc        func(ctx context.Context, slug string) (*domain.Event, error)
	ListFunc             func(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, int, error)
	UpdateFunc           func(ctx context.Context, event *domain.Event) error
	TransitionStatusFunc func(ctx context.Context, id string, from, to domain.EventStatus, rejectionReason string) error
	TryReserveFunc       func(ctx context.Context, id string) error
	ReleaseFunc          func(ctx context.Context, id string) error
	ReconcileFunc        func(ctx context.Context, id string) (int, int, error)
	ListReconcilableFunc func(ctx context.Context, limit int) ([]string, error)
	DeleteFunc           func(ctx context.Context, id string) error
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return nil
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventRepository) List(ctx context.Context, filter repository.EventFilter) ([]*domain.Event, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*domain.Event{}, 0, nil
}

func (m *MockEventRepository) Update(ctx context.Context, event *domain.Event) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, event)
	}
	return nil
}

func (m *MockEventRepository) TransitionStatus(ctx context.Context, id string, from, to domain.EventStatus, rejectionReason string) error {
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(ctx, id, from, to, rejectionReason)
	}
	return nil
}

func (m *MockEventRepository) TryReserve(ctx context.Context, id string) error {
	if m.TryReserveFunc != nil {
		return m.TryReserveFunc(ctx, id)
	}
	return nil
}

func (m *MockEventRepository) Release(ctx context.Context, id string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, id)
	}
	return nil
}

func (m *MockEventRepository) Reconcile(ctx context.Context, id string) (int, int, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, id)
	}
	return 0, 0, nil
}

func (m *MockEventRepository) ListReconcilable(ctx context.Context, limit int) ([]string, error) {
	if m.ListReconcilableFunc != nil {
		return m.ListReconcilableFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockEventRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockRegistrationRepository is a mock implementation of RegistrationRepository
type MockRegistrationRepository struct {
	CreateFunc                  func(ctx context.Context, reg *domain.Registration) error
	GetByIDFunc                 func(ctx context.Context, id string) (*domain.Registration, error)
	GetActiveByEventAndUserFunc func(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	ListByEventFunc             func(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error)
	ListByUserFunc              func(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error)
	CancelFunc                  func(ctx context.Context, id string) (*domain.Registration, error)
	CheckInByTicketFunc         func(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error)
	CheckInByTokenFunc          func(ctx context.Context, eventID, checkinToken, checkedInBy string) (*domain.Registration, error)
	CountActiveByEventFunc      func(ctx context.Context, eventID string) (int, error)
}

func (m *MockRegistrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, reg)
	}
	return nil
}

func (m *MockRegistrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrRegistrationNotFound
}

func (m *MockRegistrationRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
	if m.GetActiveByEventAndUserFunc != nil {
		return m.GetActiveByEventAndUserFunc(ctx, eventID, userID)
	}
	return nil, domain.ErrRegistrationNotFound
}

func (m *MockRegistrationRepository) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]*domain.Registration, int, error) {
	if m.ListByEventFunc != nil {
		return m.ListByEventFunc(ctx, eventID, limit, offset)
	}
	return []*domain.Registration{}, 0, nil
}

func (m *MockRegistrationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Registration, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return []*domain.Registration{}, nil
}

func (m *MockRegistrationRepository) Cancel(ctx context.Context, id string) (*domain.Registration, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return nil, domain.ErrRegistrationNotFound
}

func (m *MockRegistrationRepository) CheckInByTicket(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error) {
	if m.CheckInByTicketFunc != nil {
		return m.CheckInByTicketFunc(ctx, eventID, ticketNumber, checkedInBy)
	}
	return nil, domain.ErrRegistrationNotFound
}

func (m *MockRegistrationRepository) CheckInByToken(ctx context.Context, eventID, checkinToken, checkedInBy string) (*domain.Registration, error) {
	if m.CheckInByTokenFunc != nil {
		return m.CheckInByTokenFunc(ctx, eventID, checkinToken, checkedInBy)
	}
	return nil, domain.ErrRegistrationNotFound
}

func (m *MockRegistrationRepository) CountActiveByEvent(ctx context.Context, eventID string) (int, error) {
	if m.CountActiveByEventFunc != nil {
		return m.CountActiveByEventFunc(ctx, eventID)
	}
	return 0, nil
}

// MockTicketIssuer is a mock implementation of TicketIssuer
type MockTicketIssuer struct {
	IssueFunc func(eventID string) (string, string, error)
	calls     int
}

func (m *MockTicketIssuer) Issue(eventID string) (string, string, error) {
	m.calls++
	if m.IssueFunc != nil {
		return m.IssueFunc(eventID)
	}
	return "TKT-260901-ABCDEF", "token-abc", nil
}

func approvedEvent() *domain.Event {
	start := time.Now().Add(24 * time.Hour)
	max := 100
	return &domain.Event{
		ID:              "event-001",
		Slug:            "test-event-abc12345",
		Title:           "Test Event",
		Type:            domain.EventTypeWorkshop,
		Status:          domain.EventStatusApproved,
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		MaxParticipants: &max,
		OrganizerID:     "organizer-001",
	}
}

func newTestRegistrationService(
	eventRepo *MockEventRepository,
	regRepo *MockRegistrationRepository,
	issuer TicketIssuer,
) RegistrationService {
	if issuer == nil {
		issuer = &MockTicketIssuer{}
	}
	return NewRegistrationService(eventRepo, regRepo, issuer, NewNoOpNotifier(), nil)
}

// failingNotifier always fails, standing in for an unreachable broker
type failingNotifier struct {
	calls int
}

func (n *failingNotifier) NotifyEventChange(ctx context.Context, changeType domain.ChangeType, event *domain.Event) error {
	n.calls++
	return errors.New("broker unavailable")
}

func (n *failingNotifier) NotifyRegistrationChange(ctx context.Context, changeType domain.ChangeType, reg *domain.Registration) error {
	n.calls++
	return errors.New("broker unavailable")
}

func (n *failingNotifier) Close() error { return nil }

func TestRegistrationService_Register(t *testing.T) {
	tests := []struct {
		name        string
		eventID     string
		userID      string
		setupMocks  func(*MockEventRepository, *MockRegistrationRepository)
		wantErr     error
		wantRelease bool
	}{
		{
			name:    "successful registration",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return approvedEvent(), nil
				}
			},
		},
		{
			name:    "missing event id",
			eventID: "",
			userID:  "user-001",
			wantErr: domain.ErrInvalidEventID,
		},
		{
			name:    "missing user id",
			eventID: "event-001",
			userID:  "",
			wantErr: domain.ErrInvalidUserID,
		},
		{
			name:    "event not found",
			eventID: "event-404",
			userID:  "user-001",
			wantErr: domain.ErrEventNotFound,
		},
		{
			name:    "event not approved",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					e := approvedEvent()
					e.Status = domain.EventStatusPending
					return e, nil
				}
			},
			wantErr: domain.ErrEventNotOpen,
		},
		{
			name:    "registration deadline passed",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					e := approvedEvent()
					deadline := time.Now().Add(-time.Hour)
					e.RegistrationDeadline = &deadline
					return e, nil
				}
			},
			wantErr: domain.ErrEventNotOpen,
		},
		{
			name:    "already registered",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return approvedEvent(), nil
				}
				rr.GetActiveByEventAndUserFunc = func(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
					return &domain.Registration{ID: "reg-001", Status: domain.RegistrationStatusConfirmed}, nil
				}
			},
			wantErr: domain.ErrDuplicateRegistration,
		},
		{
			name:    "event full",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return approvedEvent(), nil
				}
				er.TryReserveFunc = func(ctx context.Context, id string) error {
					return domain.ErrEventFull
				}
			},
			wantErr: domain.ErrEventFull,
		},
		{
			name:    "insert failure releases claim",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return approvedEvent(), nil
				}
				rr.CreateFunc = func(ctx context.Context, reg *domain.Registration) error {
					return errors.New("connection reset")
				}
			},
			wantErr:     nil, // checked by wantRelease, error is opaque
			wantRelease: true,
		},
		{
			name:    "concurrent duplicate releases claim",
			eventID: "event-001",
			userID:  "user-001",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				er.GetByIDFunc = func(ctx context.Context, id string) (*domain.Event, error) {
					return approvedEvent(), nil
				}
				rr.CreateFunc = func(ctx context.Context, reg *domain.Registration) error {
					return domain.ErrDuplicateRegistration
				}
			},
			wantErr:     domain.ErrDuplicateRegistration,
			wantRelease: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eventRepo := &MockEventRepository{}
			regRepo := &MockRegistrationRepository{}
			released := false
			eventRepo.ReleaseFunc = func(ctx context.Context, id string) error {
				released = true
				return nil
			}

			if tt.setupMocks != nil {
				tt.setupMocks(eventRepo, regRepo)
			}

			svc := newTestRegistrationService(eventRepo, regRepo, nil)
			resp, err := svc.Register(context.Background(), tt.eventID, tt.userID, nil)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
				}
			} else if tt.wantRelease {
				if err == nil {
					t.Fatal("Register() error = nil, want failure")
				}
			} else {
				if err != nil {
					t.Fatalf("Register() error = %v", err)
				}
				if resp.TicketNumber == "" || resp.CheckinToken == "" {
					t.Error("response missing ticket identifiers")
				}
				if resp.Status != string(domain.RegistrationStatusConfirmed) {
					t.Errorf("Status = %q, want confirmed", resp.Status)
				}
			}

			if released != tt.wantRelease {
				t.Errorf("release called = %v, want %v", released, tt.wantRelease)
			}
		})
	}
}

func TestRegistrationService_Register_NotifierFailureIsBestEffort(t *testing.T) {
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return approvedEvent(), nil
		},
	}
	released := false
	eventRepo.ReleaseFunc = func(ctx context.Context, id string) error {
		released = true
		return nil
	}
	regRepo := &MockRegistrationRepository{}
	notifier := &failingNotifier{}

	svc := NewRegistrationService(eventRepo, regRepo, &MockTicketIssuer{}, notifier, nil)
	resp, err := svc.Register(context.Background(), "event-001", "user-001", nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.TicketNumber == "" {
		t.Error("response missing ticket number")
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notifier.calls)
	}
	if released {
		t.Error("release should not run when only the notification fails")
	}
}

func TestRegistrationService_Register_TicketCollisionRetries(t *testing.T) {
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return approvedEvent(), nil
		},
	}

	attempts := 0
	regRepo := &MockRegistrationRepository{
		CreateFunc: func(ctx context.Context, reg *domain.Registration) error {
			attempts++
			if attempts < 3 {
				return domain.ErrDuplicateKey
			}
			return nil
		},
	}
	issuer := &MockTicketIssuer{}

	svc := newTestRegistrationService(eventRepo, regRepo, issuer)
	resp, err := svc.Register(context.Background(), "event-001", "user-001", nil)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp == nil {
		t.Fatal("Register() response is nil")
	}
	if attempts != 3 {
		t.Errorf("insert attempts = %d, want 3", attempts)
	}
	if issuer.calls != 3 {
		t.Errorf("issuer calls = %d, want fresh identifiers per attempt", issuer.calls)
	}
}

func TestRegistrationService_Register_CollisionBudgetExhausted(t *testing.T) {
	eventRepo := &MockEventRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*domain.Event, error) {
			return approvedEvent(), nil
		},
	}
	released := false
	eventRepo.ReleaseFunc = func(ctx context.Context, id string) error {
		released = true
		return nil
	}
	regRepo := &MockRegistrationRepository{
		CreateFunc: func(ctx context.Context, reg *domain.Registration) error {
			return domain.ErrDuplicateKey
		},
	}

	svc := newTestRegistrationService(eventRepo, regRepo, nil)
	_, err := svc.Register(context.Background(), "event-001", "user-001", nil)
	if !errors.Is(err, domain.ErrDuplicateKey) {
		t.Fatalf("Register() error = %v, want ErrDuplicateKey after budget", err)
	}
	if !released {
		t.Error("capacity claim should be released after exhausting reissue budget")
	}
}

func TestRegistrationService_CancelRegistration(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		setupMocks  func(*MockEventRepository, *MockRegistrationRepository)
		wantErr     error
		wantRelease bool
	}{
		{
			name: "cancel confirmed releases capacity",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				rr.GetActiveByEventAndUserFunc = func(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
					return &domain.Registration{ID: "reg-001", Status: domain.RegistrationStatusConfirmed}, nil
				}
				rr.CancelFunc = func(ctx context.Context, id string) (*domain.Registration, error) {
					return &domain.Registration{
						ID:          id,
						Status:      domain.RegistrationStatusCancelled,
						CancelledAt: &now,
					}, nil
				}
			},
			wantRelease: true,
		},
		{
			name: "cancel pending does not release",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				rr.GetActiveByEventAndUserFunc = func(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
					return &domain.Registration{ID: "reg-001", Status: domain.RegistrationStatusPending}, nil
				}
				rr.CancelFunc = func(ctx context.Context, id string) (*domain.Registration, error) {
					return &domain.Registration{
						ID:          id,
						Status:      domain.RegistrationStatusCancelled,
						CancelledAt: &now,
					}, nil
				}
			},
			wantRelease: false,
		},
		{
			name:    "no active registration",
			wantErr: domain.ErrRegistrationNotFound,
		},
		{
			name: "already checked in",
			setupMocks: func(er *MockEventRepository, rr *MockRegistrationRepository) {
				rr.GetActiveByEventAndUserFunc = func(ctx context.Context, eventID, userID string) (*domain.Registration, error) {
					return &domain.Registration{ID: "reg-001", Status: domain.RegistrationStatusAttended}, nil
				}
				rr.CancelFunc = func(ctx context.Context, id string) (*domain.Registration, error) {
					return nil, domain.ErrAlreadyCheckedIn
				}
			},
			wantErr: domain.ErrAlreadyCheckedIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eventRepo := &MockEventRepository{}
			regRepo := &MockRegistrationRepository{}
			released := false
			eventRepo.ReleaseFunc = func(ctx context.Context, id string) error {
				released = true
				return nil
			}
			if tt.setupMocks != nil {
				tt.setupMocks(eventRepo, regRepo)
			}

			svc := newTestRegistrationService(eventRepo, regRepo, nil)
			resp, err := svc.CancelRegistration(context.Background(), "event-001", "user-001")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CancelRegistration() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("CancelRegistration() error = %v", err)
				}
				if resp.Status != string(domain.RegistrationStatusCancelled) {
					t.Errorf("Status = %q, want cancelled", resp.Status)
				}
			}
			if released != tt.wantRelease {
				t.Errorf("release called = %v, want %v", released, tt.wantRelease)
			}
		})
	}
}

func TestRegistrationService_CheckIn(t *testing.T) {
	now := time.Now()
	attended := &domain.Registration{
		ID:           "reg-001",
		EventID:      "event-001",
		UserID:       "user-001",
		Status:       domain.RegistrationStatusAttended,
		TicketNumber: "TKT-260901-ABCDEF",
		CheckedInAt:  &now,
		CheckedInBy:  "staff-001",
	}

	tests := []struct {
		name       string
		req        *dto.CheckInRequest
		setupMocks func(*MockRegistrationRepository)
		wantErr    error
	}{
		{
			name: "check in by ticket number",
			req:  &dto.CheckInRequest{TicketNumber: "TKT-260901-ABCDEF"},
			setupMocks: func(rr *MockRegistrationRepository) {
				rr.CheckInByTicketFunc = func(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error) {
					if eventID != "event-001" {
						t.Errorf("lookup not scoped to event: %s", eventID)
					}
					if checkedInBy != "staff-001" {
						t.Errorf("checkedInBy = %q, want staff-001", checkedInBy)
					}
					return attended, nil
				}
			},
		},
		{
			name: "check in by token",
			req:  &dto.CheckInRequest{CheckinToken: "token-abc"},
			setupMocks: func(rr *MockRegistrationRepository) {
				rr.CheckInByTokenFunc = func(ctx context.Context, eventID, checkinToken, checkedInBy string) (*domain.Registration, error) {
					return attended, nil
				}
			},
		},
		{
			name:    "no identifier",
			req:     &dto.CheckInRequest{},
			wantErr: domain.ErrMissingIdentifier,
		},
		{
			name:    "both identifiers",
			req:     &dto.CheckInRequest{TicketNumber: "TKT-260901-ABCDEF", CheckinToken: "token-abc"},
			wantErr: domain.ErrMissingIdentifier,
		},
		{
			name:    "nil request",
			req:     nil,
			wantErr: domain.ErrMissingIdentifier,
		},
		{
			name: "double scan",
			req:  &dto.CheckInRequest{TicketNumber: "TKT-260901-ABCDEF"},
			setupMocks: func(rr *MockRegistrationRepository) {
				rr.CheckInByTicketFunc = func(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error) {
					return nil, domain.ErrAlreadyCheckedIn
				}
			},
			wantErr: domain.ErrAlreadyCheckedIn,
		},
		{
			name: "cancelled ticket reads as not found",
			req:  &dto.CheckInRequest{TicketNumber: "TKT-260901-GONE22"},
			setupMocks: func(rr *MockRegistrationRepository) {
				rr.CheckInByTicketFunc = func(ctx context.Context, eventID, ticketNumber, checkedInBy string) (*domain.Registration, error) {
					return nil, domain.ErrRegistrationNotFound
				}
			},
			wantErr: domain.ErrRegistrationNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regRepo := &MockRegistrationRepository{}
			if tt.setupMocks != nil {
				tt.setupMocks(regRepo)
			}

			svc := newTestRegistrationService(&MockEventRepository{}, regRepo, nil)
			resp, err := svc.CheckIn(context.Background(), "event-001", "staff-001", tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CheckIn() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckIn() error = %v", err)
			}
			if resp.Status != string(domain.RegistrationStatusAttended) {
				t.Errorf("Status = %q, want attended", resp.Status)
			}
			if resp.CheckedInBy != "staff-001" {
				t.Errorf("CheckedInBy = %q, want staff-001", resp.CheckedInBy)
			}
		})
	}
}
