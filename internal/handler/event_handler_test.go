package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/internal/dto"
	"github.com/campushq/event-service/internal/repository"
)

// MockEventService is a mock implementation of EventService
type MockEventService struct {
	CreateEventFunc    func(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error)
	GetEventFunc       func(ctx context.Context, eventID string) (*dto.EventResponse, error)
	GetEventBySlugFunc func(ctx context.Context, slug string) (*dto.EventResponse, error)
	ListEventsFunc     func(ctx context.Context, filter repository.EventFilter) (*dto.EventListResponse, error)
	UpdateEventFunc    func(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error)
	SubmitEventFunc    func(ctx context.Context, eventID, organizerID string) (*dto.EventResponse, error)
	ReviewEventFunc    func(ctx context.Context, eventID, reviewerID string, req *dto.ReviewEventRequest) (*dto.EventResponse, error)
	CancelEventFunc    func(ctx context.Context, eventID string) (*dto.EventResponse, error)
	CompleteEventFunc  func(ctx context.Context, eventID string) (*dto.EventResponse, error)
	DeleteEventFunc    func(ctx context.Context, eventID string) error
	ReconcileEventFunc func(ctx context.Context, eventID string) (*dto.ReconcileResponse, error)
}

func (m *MockEventService) CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
	if m.CreateEventFunc != nil {
		return m.CreateEventFunc(ctx, organizerID, req)
	}
	return nil, domain.ErrInvalidTitle
}

func (m *MockEventService) GetEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	if m.GetEventFunc != nil {
		return m.GetEventFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) GetEventBySlug(ctx context.Context, slug string) (*dto.EventResponse, error) {
	if m.GetEventBySlugFunc != nil {
		return m.GetEventBySlugFunc(ctx, slug)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) ListEvents(ctx context.Context, filter repository.EventFilter) (*dto.EventListResponse, error) {
	if m.ListEventsFunc != nil {
		return m.ListEventsFunc(ctx, filter)
	}
	return &dto.EventListResponse{}, nil
}

func (m *MockEventService) UpdateEvent(ctx context.Context, eventID, organizerID string, req *dto.UpdateEventRequest) (*dto.EventResponse, error) {
	if m.UpdateEventFunc != nil {
		return m.UpdateEventFunc(ctx, eventID, organizerID, req)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) SubmitEvent(ctx context.Context, eventID, organizerID string) (*dto.EventResponse, error) {
	if m.SubmitEventFunc != nil {
		return m.SubmitEventFunc(ctx, eventID, organizerID)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) ReviewEvent(ctx context.Context, eventID, reviewerID string, req *dto.ReviewEventRequest) (*dto.EventResponse, error) {
	if m.ReviewEventFunc != nil {
		return m.ReviewEventFunc(ctx, eventID, reviewerID, req)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) CancelEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	if m.CancelEventFunc != nil {
		return m.CancelEventFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) CompleteEvent(ctx context.Context, eventID string) (*dto.EventResponse, error) {
	if m.CompleteEventFunc != nil {
		return m.CompleteEventFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func (m *MockEventService) DeleteEvent(ctx context.Context, eventID string) error {
	if m.DeleteEventFunc != nil {
		return m.DeleteEventFunc(ctx, eventID)
	}
	return domain.ErrEventNotFound
}

func (m *MockEventService) ReconcileEvent(ctx context.Context, eventID string) (*dto.ReconcileResponse, error) {
	if m.ReconcileEventFunc != nil {
		return m.ReconcileEventFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func setupEventRouter(svc *MockEventService, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if userID != "" {
		router.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}

	h := NewEventHandler(svc)
	router.POST("/api/v1/events", h.CreateEvent)
	router.GET("/api/v1/events/:id", h.GetEvent)
	router.POST("/api/v1/events/:id/submit", h.SubmitEvent)
	router.POST("/api/v1/events/:id/review", h.ReviewEvent)
	router.POST("/api/v1/events/:id/cancel", h.CancelEvent)
	router.POST("/api/v1/events/:id/reconcile", h.ReconcileEvent)
	router.DELETE("/api/v1/events/:id", h.DeleteEvent)
	return router
}

func sampleEventResponse(status string) *dto.EventResponse {
	start := time.Now().Add(24 * time.Hour)
	return &dto.EventResponse{
		ID:        "event-001",
		Slug:      "spring-career-fair-abc12345",
		Title:     "Spring Career Fair",
		Type:      "conference",
		Status:    status,
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
	}
}

func TestEventHandler_CreateEvent(t *testing.T) {
	svc := &MockEventService{
		CreateEventFunc: func(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*dto.EventResponse, error) {
			assert.Equal(t, "organizer-001", organizerID)
			return sampleEventResponse("draft"), nil
		},
	}
	router := setupEventRouter(svc, "organizer-001")

	start := time.Now().Add(24 * time.Hour)
	body, _ := json.Marshal(dto.CreateEventRequest{
		Title:     "Spring Career Fair",
		Type:      "conference",
		StartTime: start,
		EndTime:   start.Add(3 * time.Hour),
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "draft", resp.Status)
}

func TestEventHandler_CreateEvent_Unauthorized(t *testing.T) {
	router := setupEventRouter(&MockEventService{}, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventHandler_CreateEvent_MissingFields(t *testing.T) {
	router := setupEventRouter(&MockEventService{}, "organizer-001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader([]byte(`{"title":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w.Body))
}

func TestEventHandler_ReviewEvent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name: "approve",
			body: `{"approve": true}`,
		},
		{
			name:       "reject without reason",
			body:       `{"approve": false}`,
			serviceErr: domain.ErrRejectionReasonNeeded,
			wantStatus: http.StatusBadRequest,
			wantCode:   "REJECTION_REASON_REQUIRED",
		},
		{
			name:       "not pending",
			body:       `{"approve": true}`,
			serviceErr: domain.NewEventTransitionError(domain.EventStatusApproved, domain.EventStatusApproved),
			wantStatus: http.StatusConflict,
			wantCode:   "INVALID_STATE_TRANSITION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockEventService{
				ReviewEventFunc: func(ctx context.Context, eventID, reviewerID string, req *dto.ReviewEventRequest) (*dto.EventResponse, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					status := "approved"
					if !req.Approve {
						status = "rejected"
					}
					return sampleEventResponse(status), nil
				},
			}
			router := setupEventRouter(svc, "admin-001")

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/events/event-001/review", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if tt.serviceErr != nil {
				assert.Equal(t, tt.wantStatus, w.Code)
				assert.Equal(t, tt.wantCode, errorCode(t, w.Body))
				return
			}
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestEventHandler_CancelEvent_Terminal(t *testing.T) {
	svc := &MockEventService{
		CancelEventFunc: func(ctx context.Context, eventID string) (*dto.EventResponse, error) {
			return nil, domain.NewEventTransitionError(domain.EventStatusCompleted, domain.EventStatusCancelled)
		},
	}
	router := setupEventRouter(svc, "organizer-001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/event-001/cancel", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", errorCode(t, w.Body))
}

func TestEventHandler_DeleteEvent(t *testing.T) {
	svc := &MockEventService{
		DeleteEventFunc: func(ctx context.Context, eventID string) error {
			return nil
		},
	}
	router := setupEventRouter(svc, "organizer-001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/event-001", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestEventHandler_DeleteEvent_HasRegistrations(t *testing.T) {
	svc := &MockEventService{
		DeleteEventFunc: func(ctx context.Context, eventID string) error {
			return domain.ErrEventHasRegistrations
		},
	}
	router := setupEventRouter(svc, "organizer-001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/events/event-001", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "EVENT_HAS_REGISTRATIONS", errorCode(t, w.Body))
}

func TestEventHandler_ReconcileEvent(t *testing.T) {
	svc := &MockEventService{
		ReconcileEventFunc: func(ctx context.Context, eventID string) (*dto.ReconcileResponse, error) {
			return &dto.ReconcileResponse{
				EventID:       eventID,
				PreviousCount: 45,
				ActualCount:   42,
				Adjusted:      true,
			}, nil
		},
	}
	router := setupEventRouter(svc, "admin-001")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/event-001/reconcile", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ReconcileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Adjusted)
	assert.Equal(t, 45, resp.PreviousCount)
	assert.Equal(t, 42, resp.ActualCount)
}
