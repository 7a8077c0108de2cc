package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/smarttransit/booking-core/internal/services"
)

// AdminHandler handles staff-only lifecycle actions and job control
type AdminHandler struct {
	lifecycle *services.LifecycleService
	cron      *services.CronService
	logger    *logrus.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(lifecycle *services.LifecycleService, cron *services.CronService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, cron: cron, logger: logger}
}

// MarkPaid records an offline payment
// @Summary Mark booking paid
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.MarkPaidRequest false "Payment reference"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Booking is not awaiting payment"
// @Security BearerAuth
// @Router /api/v1/admin/bookings/{id}/mark-paid [post]
func (h *AdminHandler) MarkPaid(c *gin.Context) {
	var req models.MarkPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
	}

	booking, err := h.lifecycle.MarkPaid(c.Request.Context(), c.Param("id"), req.PaymentReference)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// Confirm confirms a booking
func (h *AdminHandler) Confirm(c *gin.Context) {
	h.transition(c, h.lifecycle.Confirm)
}

// Cancel cancels any member's booking
func (h *AdminHandler) Cancel(c *gin.Context) {
	h.transition(c, h.lifecycle.Cancel)
}

// ApproveRefund approves a pending refund and frees the seats
func (h *AdminHandler) ApproveRefund(c *gin.Context) {
	h.transition(c, h.lifecycle.ApproveRefund)
}

// RejectRefund rejects a pending refund
func (h *AdminHandler) RejectRefund(c *gin.Context) {
	h.transition(c, h.lifecycle.RejectRefund)
}

type transitionFunc func(ctx context.Context, bookingID, note string) (*models.Booking, error)

func (h *AdminHandler) transition(c *gin.Context, apply transitionFunc) {
	req, ok := bindTransition(c)
	if !ok {
		return
	}

	booking, err := apply(c.Request.Context(), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CompleteTrip closes a trip and settles its bookings
func (h *AdminHandler) CompleteTrip(c *gin.Context) {
	summary, err := h.lifecycle.CompleteTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetJobStatus reports scheduled jobs
func (h *AdminHandler) GetJobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}

// RunExpirePending runs the pending payment sweep immediately
func (h *AdminHandler) RunExpirePending(c *gin.Context) {
	count, err := h.cron.RunExpirePendingNow()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Pending payment sweep completed",
		"expired": count,
	})
}
