package handlers

import (
	"errors"
	"io"
	"net/http"

	"servly/middleware"
	"servly/models"
	"servly/services/booking"
	"servly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the lifecycle command endpoints.
type BookingHandler struct {
	Engine booking.BookingEngine
	Logger *zap.Logger
}

// NewBookingHandler creates a BookingHandler.
func NewBookingHandler(engine booking.BookingEngine, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Engine: engine, Logger: logger}
}

// transitionInput is the shared body for lifecycle commands. The
// version token is optional; omitting it lets the engine transition
// from the current stored version.
type transitionInput struct {
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

func (in *transitionInput) version() int64 {
	if in.ExpectedVersion == nil {
		return -1
	}
	return *in.ExpectedVersion
}

func bindTransitionInput(c *gin.Context) (transitionInput, bool) {
	var in transitionInput
	if c.Request.Body == nil {
		return in, true
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		// An absent body means "current version"; anything else
		// malformed is rejected.
		if errors.Is(err, io.EOF) {
			return in, true
		}
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return in, false
	}
	return in, true
}

func mustActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "missing actor", "authentication required")
	}
	return actor, ok
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req booking.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	created, err := h.Engine.CreateBooking(c.Request.Context(), req, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": created})
}

// ClaimBooking handles POST /api/bookings/:id/claim. A losing
// claimant receives the refreshed pool alongside the conflict so the
// client can offer another booking immediately.
func (h *BookingHandler) ClaimBooking(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	in, ok := bindTransitionInput(c)
	if !ok {
		return
	}

	claimed, err := h.Engine.ClaimBooking(c.Request.Context(), c.Param("id"), actor, in.version())
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyClaimed) {
			pool, poolErr := h.Engine.ListPoolable(c.Query("category"))
			if poolErr != nil {
				h.Logger.Warn("failed to refresh pool after lost claim", zap.Error(poolErr))
			}
			c.JSON(http.StatusConflict, gin.H{
				"message": "booking is no longer available",
				"pool":    pool,
			})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": claimed})
}

// AcceptBooking handles POST /api/bookings/:id/accept.
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	h.runTransition(c, func(in transitionInput, actor models.Actor) (*models.Booking, error) {
		return h.Engine.AcceptBooking(c.Request.Context(), c.Param("id"), actor, in.version())
	})
}

// RejectBooking handles POST /api/bookings/:id/reject.
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	h.runTransition(c, func(in transitionInput, actor models.Actor) (*models.Booking, error) {
		return h.Engine.RejectBooking(c.Request.Context(), c.Param("id"), actor, in.Reason, in.version())
	})
}

// StartService handles POST /api/bookings/:id/start.
func (h *BookingHandler) StartService(c *gin.Context) {
	h.runTransition(c, func(in transitionInput, actor models.Actor) (*models.Booking, error) {
		return h.Engine.StartService(c.Request.Context(), c.Param("id"), actor, in.version())
	})
}

// CompleteService handles POST /api/bookings/:id/complete.
func (h *BookingHandler) CompleteService(c *gin.Context) {
	h.runTransition(c, func(in transitionInput, actor models.Actor) (*models.Booking, error) {
		return h.Engine.CompleteService(c.Request.Context(), c.Param("id"), actor, in.version())
	})
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	h.runTransition(c, func(in transitionInput, actor models.Actor) (*models.Booking, error) {
		return h.Engine.CancelBooking(c.Request.Context(), c.Param("id"), actor, in.Reason, in.version())
	})
}

func (h *BookingHandler) runTransition(c *gin.Context, apply func(transitionInput, models.Actor) (*models.Booking, error)) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	in, ok := bindTransitionInput(c)
	if !ok {
		return
	}

	updated, err := apply(in, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": updated})
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
// All of these are recoverable at the caller's discretion; none kill
// the process.
func (h *BookingHandler) respondError(c *gin.Context, err error) {
	var invalid booking.InvalidTransitionError
	var unauthorized booking.UnauthorizedError

	switch {
	case errors.As(err, &invalid):
		utils.JSONError(c, http.StatusConflict, "invalid transition", invalid.Error())
	case errors.As(err, &unauthorized):
		utils.JSONError(c, http.StatusForbidden, "forbidden", unauthorized.Error())
	case errors.Is(err, booking.ErrAlreadyClaimed):
		utils.JSONError(c, http.StatusConflict, "booking is no longer available", err.Error())
	case errors.Is(err, booking.ErrVersionConflict):
		utils.JSONError(c, http.StatusConflict, "booking changed, please retry", err.Error())
	case errors.Is(err, booking.ErrSettlementAlreadyApplied):
		utils.JSONError(c, http.StatusConflict, "settlement already applied", err.Error())
	case errors.Is(err, booking.ErrProviderNotEligible):
		utils.JSONError(c, http.StatusForbidden, "provider not eligible", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		utils.JSONError(c, http.StatusNotFound, "booking not found", err.Error())
	default:
		h.Logger.Error("booking command failed", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "please try again later")
	}
}
