package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/internal/dto"
	"github.com/campushq/event-service/internal/repository"
	"github.com/campushq/event-service/pkg/retry"
)

type stubEventRepo struct {
	repository.EventRepository

	mu       sync.Mutex
	listIDs  []string
	listErr  error
	listHits int
}

func (s *stubEventRepo) ListReconcilable(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listHits++
	return s.listIDs, s.listErr
}

type stubEventService struct {
	EventServiceStub

	mu          sync.Mutex
	reconciled  []string
	adjustedIDs map[string]bool
	err         error
}

func (s *stubEventService) ReconcileEvent(ctx context.Context, eventID string) (*dto.ReconcileResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.reconciled = append(s.reconciled, eventID)
	resp := &dto.ReconcileResponse{EventID: eventID, PreviousCount: 10, ActualCount: 10}
	if s.adjustedIDs[eventID] {
		resp.PreviousCount = 12
		resp.Adjusted = true
	}
	return resp, nil
}

func (s *stubEventService) reconciledIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.reconciled))
	copy(out, s.reconciled)
	return out
}

// EventServiceStub panics on any call not overridden by the embedding stub,
// so tests fail loudly if the worker starts using more of the service.
type EventServiceStub struct{}

func (EventServiceStub) CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) GetEventBySlug(ctx context.Context, slug string) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) ListEvents(ctx context.Context, filter repository.EventFilter) (*dto.EventListResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) SubmitEvent(ctx context.Context, eventID, organizerID string) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) ReviewEvent(ctx context.Context, eventID, reviewerID string, req *dto.ReviewEventRequest) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) CancelEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) CompleteEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	panic("unexpected call")
}
func (EventServiceStub) DeleteEvent(ctx context.Context, eventID string) error {
	panic("unexpected call")
}
func (EventServiceStub) ReconcileEvent(ctx context.Context, eventID string) (*dto.ReconcileResponse, error) {
	panic("unexpected call")
}

func TestReconcileWorker_SweepsOnStart(t *testing.T) {
	repo := &stubEventRepo{listIDs: []string{"event-001", "event-002"}}
	svc := &stubEventService{adjustedIDs: map[string]bool{"event-002": true}}

	w := NewReconcileWorker(repo, svc, &ReconcileWorkerConfig{
		ScanInterval: time.Hour, // only the startup sweep runs
		BatchSize:    10,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(svc.reconciledIDs()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("startup sweep incomplete, reconciled %v", svc.reconciledIDs())
		case <-time.After(10 * time.Millisecond):
		}
	}
	w.Stop()

	got := svc.reconciledIDs()
	if len(got) != 2 || got[0] != "event-001" || got[1] != "event-002" {
		t.Errorf("reconciled = %v, want [event-001 event-002]", got)
	}

	scanned, adjusted, _ := w.Stats()
	if scanned != 2 {
		t.Errorf("scanned = %d, want 2", scanned)
	}
	if adjusted != 1 {
		t.Errorf("adjusted = %d, want 1", adjusted)
	}
}

func TestReconcileWorker_RetriesTransientFailures(t *testing.T) {
	repo := &stubEventRepo{listIDs: []string{"event-001"}}
	svc := &stubEventService{err: domain.ErrEventNotFound}

	w := NewReconcileWorker(repo, svc, &ReconcileWorkerConfig{
		ScanInterval: time.Hour,
		BatchSize:    10,
	})
	// Tight retry budget keeps the test fast
	w.retrier = retry.New(&retry.Config{
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	scanned, adjusted, _ := w.Stats()
	if scanned != 1 {
		t.Errorf("scanned = %d, want 1", scanned)
	}
	if adjusted != 0 {
		t.Errorf("adjusted = %d, want 0 on failure", adjusted)
	}
}

func TestReconcileWorker_DoubleStart(t *testing.T) {
	repo := &stubEventRepo{}
	svc := &stubEventService{}

	w := NewReconcileWorker(repo, svc, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}
	w.Stop()

	// Stop is idempotent
	w.Stop()
}
