package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/middleware"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/smarttransit/booking-core/internal/services"
)

// BookingHandler handles member-facing booking operations
type BookingHandler struct {
	bookings  *services.BookingService
	lifecycle *services.LifecycleService
	payments  *services.PaymentService
	tickets   *services.TicketService
	logger    *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler. payments may be nil when Stripe is not configured.
func NewBookingHandler(
	bookings *services.BookingService,
	lifecycle *services.LifecycleService,
	payments *services.PaymentService,
	tickets *services.TicketService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookings:  bookings,
		lifecycle: lifecycle,
		payments:  payments,
		tickets:   tickets,
		logger:    logger,
	}
}

// ListBookings returns the member's bookings, newest first
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bookings, err := h.bookings.ListMemberBookings(c.Request.Context(), userCtx.MemberID.String(), limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
		"limit":    limit,
		"offset":   offset,
	})
}

// GetBooking returns one of the member's bookings
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	booking, err := h.bookings.GetBookingForMember(c.Request.Context(), userCtx.MemberID.String(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetBookingByReference looks a booking up by its reference code
func (h *BookingHandler) GetBookingByReference(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	booking, err := h.bookings.GetBookingByReference(c.Request.Context(), userCtx.MemberID.String(), c.Param("reference"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels one of the member's bookings and frees its seats
// @Summary Cancel my booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.TransitionRequest false "Optional note"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Booking cannot be cancelled"
// @Security BearerAuth
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	req, ok := bindTransition(c)
	if !ok {
		return
	}

	booking, err := h.lifecycle.CancelForMember(c.Request.Context(), userCtx.MemberID.String(), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// RequestRefund asks for a refund of a paid booking
func (h *BookingHandler) RequestRefund(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	req, ok := bindTransition(c)
	if !ok {
		return
	}

	booking, err := h.lifecycle.RequestRefund(c.Request.Context(), userCtx.MemberID.String(), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CreatePaymentIntent starts a card payment for a PendingPayment booking
func (h *BookingHandler) CreatePaymentIntent(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	if h.payments == nil {
		paymentsDisabled(c)
		return
	}

	resp, err := h.payments.CreatePaymentIntent(c.Request.Context(), userCtx.MemberID.String(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ConfirmPayment verifies a payment intent and marks the booking paid
func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	if h.payments == nil {
		paymentsDisabled(c)
		return
	}

	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	booking, err := h.payments.ConfirmPayment(c.Request.Context(), userCtx.MemberID.String(), c.Param("id"), req.PaymentIntentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// DownloadTicket streams the PDF e-ticket
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	data, filename, err := h.tickets.GenerateETicket(c.Request.Context(), userCtx.MemberID.String(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// bindTransition reads an optional JSON body with a note
func bindTransition(c *gin.Context) (models.TransitionRequest, bool) {
	var req models.TransitionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return req, false
	}
	return req, true
}

func paymentsDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "payments_unavailable",
		"message": "Card payments are not configured",
		"code":    "PAYMENTS_DISABLED",
	})
}
