package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/services"
)

// AvailabilityHandler serves trip seat maps
type AvailabilityHandler struct {
	availability *services.AvailabilityService
	logger       *logrus.Logger
}

// NewAvailabilityHandler creates a new AvailabilityHandler
func NewAvailabilityHandler(availability *services.AvailabilityService, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, logger: logger}
}

// GetTripSeats returns every seat of the trip with its availability
// @Summary Get trip seat availability
// @Tags Seats
// @Produce json
// @Param id path string true "Trip ID"
// @Success 200 {object} models.SeatAvailability
// @Failure 404 {object} map[string]interface{} "Trip not found"
// @Router /api/v1/trips/{id}/seats [get]
func (h *AvailabilityHandler) GetTripSeats(c *gin.Context) {
	result, err := h.availability.GetSeatAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trip_id":         result.TripID,
		"capacity":        result.Capacity,
		"available_seats": result.AvailableSeats,
		"seats":           result.Seats,
		"availability":    result.AsMap(),
	})
}
