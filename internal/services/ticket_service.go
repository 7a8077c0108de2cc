package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
)

// TicketService renders PDF e-tickets for paid bookings
type TicketService struct {
	store    database.BookingStore
	bookings *BookingService
}

// NewTicketService creates a new TicketService
func NewTicketService(store database.BookingStore, bookings *BookingService) *TicketService {
	return &TicketService{store: store, bookings: bookings}
}

// ticketableStatuses are the statuses an e-ticket can be issued for
var ticketableStatuses = []models.BookingStatus{
	models.BookingStatusPaid,
	models.BookingStatusConfirmed,
	models.BookingStatusCompleted,
}

// GenerateETicket renders one page per passenger and returns the PDF and a file name
func (s *TicketService) GenerateETicket(ctx context.Context, memberID, bookingID string) ([]byte, string, error) {
	booking, err := s.bookings.GetBookingForMember(ctx, memberID, bookingID)
	if err != nil {
		return nil, "", err
	}
	if !statusIn(booking.Status, ticketableStatuses) {
		return nil, "", &models.ConflictError{
			Resource: "booking",
			Code:     models.CodeInvalidTransition,
			Msg:      fmt.Sprintf("no e-ticket for a booking in status %s", booking.Status),
		}
	}

	trip, err := s.store.GetTrip(ctx, booking.TripID)
	if err != nil {
		return nil, "", models.NewPersistenceError("read trip", err)
	}
	if trip == nil {
		return nil, "", models.NewTripNotFoundError(booking.TripID)
	}

	data, err := buildETicketPDF(booking, trip)
	if err != nil {
		return nil, "", models.NewPersistenceError("render e-ticket", err)
	}
	return data, fmt.Sprintf("eticket-%s.pdf", booking.Reference), nil
}

func buildETicketPDF(b *models.Booking, trip *models.Trip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.Reference, false)

	for _, p := range b.Passengers {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 18)
		pdf.Cell(0, 10, "E-TICKET")
		pdf.Ln(12)

		pdf.SetFont("Helvetica", "", 12)
		lines := []string{
			"Reference   : " + b.Reference,
			"Passenger   : " + p.Name,
			"Ticket type : " + string(p.TicketType),
			"Seat        : " + p.SeatLabel,
			"Route       : " + safe(trip.RouteName, "-"),
			"Departure   : " + trip.DepartureAt.Format("2006-01-02 15:04"),
			"Status      : " + string(b.Status),
		}
		for _, line := range lines {
			pdf.Cell(0, 7, line)
			pdf.Ln(7)
		}

		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "This e-ticket is valid for one passenger and one seat. Present it at boarding.", "", "", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total paid: %s %.2f", b.Currency, b.TotalPrice))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func safe(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
