package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/middleware"
	"github.com/smarttransit/booking-core/pkg/jwt"
)

// Routes bundles what RegisterRoutes wires together
type Routes struct {
	JWT          *jwt.Service
	RateLimiter  *middleware.RateLimiter
	Availability *AvailabilityHandler
	Drafts       *DraftHandler
	Bookings     *BookingHandler
	Admin        *AdminHandler
	Logger       *logrus.Logger
}

// RegisterRoutes mounts the booking API under /api/v1
func RegisterRoutes(router *gin.Engine, r Routes) {
	v1 := router.Group("/api/v1")

	limited := []gin.HandlerFunc{}
	if r.RateLimiter != nil {
		limited = append(limited, r.RateLimiter.Middleware())
	}

	// Public
	trips := v1.Group("/trips", limited...)
	{
		trips.GET("/:id/seats", r.Availability.GetTripSeats)
	}

	auth := middleware.AuthMiddleware(r.JWT, r.Logger)

	// Member booking flow
	draft := v1.Group("/booking/draft", append([]gin.HandlerFunc{auth}, limited...)...)
	{
		draft.POST("", r.Drafts.StartDraft)
		draft.GET("", r.Drafts.GetDraft)
		draft.DELETE("", r.Drafts.ClearDraft)
		draft.PUT("/passengers", r.Drafts.SetPassengers)
		draft.POST("/commit", r.Drafts.CommitDraft)
	}

	bookings := v1.Group("/bookings", append([]gin.HandlerFunc{auth}, limited...)...)
	{
		bookings.GET("", r.Bookings.ListBookings)
		bookings.GET("/reference/:reference", r.Bookings.GetBookingByReference)
		bookings.GET("/:id", r.Bookings.GetBooking)
		bookings.POST("/:id/cancel", r.Bookings.CancelBooking)
		bookings.POST("/:id/refund-request", r.Bookings.RequestRefund)
		bookings.POST("/:id/payment-intent", r.Bookings.CreatePaymentIntent)
		bookings.POST("/:id/payment-confirm", r.Bookings.ConfirmPayment)
		bookings.GET("/:id/ticket", r.Bookings.DownloadTicket)
	}

	// Staff only
	admin := v1.Group("/admin", auth, middleware.RequireRole(jwt.RoleAdmin))
	{
		admin.POST("/bookings/:id/mark-paid", r.Admin.MarkPaid)
		admin.POST("/bookings/:id/confirm", r.Admin.Confirm)
		admin.POST("/bookings/:id/cancel", r.Admin.Cancel)
		admin.POST("/bookings/:id/refund/approve", r.Admin.ApproveRefund)
		admin.POST("/bookings/:id/refund/reject", r.Admin.RejectRefund)
		admin.POST("/trips/:id/complete", r.Admin.CompleteTrip)
		admin.GET("/jobs", r.Admin.GetJobStatus)
		admin.POST("/jobs/expire-pending", r.Admin.RunExpirePending)
	}
}
