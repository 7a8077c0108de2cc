package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/middleware"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/smarttransit/booking-core/internal/services"
	"github.com/smarttransit/booking-core/internal/utils"
)

// DraftHandler handles the multi-step booking flow: seats, passengers, commit
type DraftHandler struct {
	drafts   *services.DraftService
	bookings *services.BookingService
	logger   *logrus.Logger
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(drafts *services.DraftService, bookings *services.BookingService, logger *logrus.Logger) *DraftHandler {
	return &DraftHandler{drafts: drafts, bookings: bookings, logger: logger}
}

// StartDraft selects seats on a trip
// @Summary Start a booking draft
// @Tags Booking Draft
// @Accept json
// @Produce json
// @Param request body models.StartDraftRequest true "Seat selection"
// @Success 201 {object} models.Draft
// @Failure 400 {object} map[string]interface{} "Invalid selection"
// @Failure 409 {object} map[string]interface{} "Seats taken or trip unavailable"
// @Security BearerAuth
// @Router /api/v1/booking/draft [post]
func (h *DraftHandler) StartDraft(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.StartDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	draft, err := h.drafts.StartDraft(c.Request.Context(), userCtx.MemberID.String(), req.TripID, req.Seats)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, draft)
}

// GetDraft returns the member's current draft
func (h *DraftHandler) GetDraft(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	draft, err := h.drafts.GetDraft(c.Request.Context(), userCtx.MemberID.String())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// ClearDraft abandons the member's draft
func (h *DraftHandler) ClearDraft(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	if err := h.drafts.ClearDraft(c.Request.Context(), userCtx.MemberID.String()); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Draft cleared"})
}

// SetPassengers attaches passenger details and add-ons to the draft
// @Summary Set draft passengers
// @Tags Booking Draft
// @Accept json
// @Produce json
// @Param request body models.SetPassengersRequest true "Passengers and add-ons"
// @Success 200 {object} models.Draft
// @Failure 400 {object} map[string]interface{} "Passenger count mismatch or invalid passenger"
// @Failure 404 {object} map[string]interface{} "No draft"
// @Security BearerAuth
// @Router /api/v1/booking/draft/passengers [put]
func (h *DraftHandler) SetPassengers(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.SetPassengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	draft, err := h.drafts.SetPassengerDetails(c.Request.Context(), userCtx.MemberID.String(), req.Passengers, req.AddOns)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

// CommitDraft turns the draft into a PendingPayment booking
// @Summary Commit the booking draft
// @Tags Booking Draft
// @Produce json
// @Success 201 {object} models.Booking
// @Failure 400 {object} map[string]interface{} "Draft incomplete"
// @Failure 409 {object} map[string]interface{} "Seat conflict"
// @Security BearerAuth
// @Router /api/v1/booking/draft/commit [post]
func (h *DraftHandler) CommitDraft(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	booking, err := h.bookings.CommitDraft(c.Request.Context(), userCtx.Member(), utils.RequestDeviceInfo(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}
