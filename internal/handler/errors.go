package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/event-service/internal/domain"
	"github.com/campushq/event-service/internal/dto"
)

// handleError maps domain errors to stable HTTP codes. Every sentinel gets
// its own code so clients can branch without string matching.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "EVENT_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrRegistrationNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "REGISTRATION_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrEventNotOpen):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "EVENT_NOT_OPEN",
			Message: "The event is not open for registration",
		})
	case errors.Is(err, domain.ErrEventFull):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "EVENT_FULL",
			Message: "The event has reached its participant limit",
		})
	case errors.Is(err, domain.ErrDuplicateRegistration):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "ALREADY_REGISTERED",
			Message: "You already have an active registration for this event",
		})
	case errors.Is(err, domain.ErrAlreadyCancelled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CANCELLED",
		})
	case errors.Is(err, domain.ErrNotConfirmed):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "NOT_CONFIRMED",
		})
	case errors.Is(err, domain.ErrAlreadyCheckedIn):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "ALREADY_CHECKED_IN",
		})
	case errors.Is(err, domain.ErrEventHasRegistrations):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "EVENT_HAS_REGISTRATIONS",
			Message: "Events with registration history cannot be deleted",
		})
	case errors.Is(err, domain.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_STATE_TRANSITION",
		})
	case errors.Is(err, domain.ErrMissingIdentifier):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "MISSING_IDENTIFIER",
			Message: "Provide exactly one of ticket_number or checkin_token",
		})
	case errors.Is(err, domain.ErrRejectionReasonNeeded):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "REJECTION_REASON_REQUIRED",
		})
	case errors.Is(err, domain.ErrDuplicateKey):
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   err.Error(),
			Code:    "TICKET_COLLISION",
			Message: "Could not issue a unique ticket, please retry",
		})
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REQUEST",
		})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	}
}
