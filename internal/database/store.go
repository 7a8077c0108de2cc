package database

import (
	"context"
	"errors"
	"time"

	"github.com/smarttransit/booking-core/internal/models"
)

const connectTimeout = 10 * time.Second

// ErrTripNotFound is returned by WithTripLock when the trip row does not exist
var ErrTripNotFound = errors.New("trip not found")

// ErrStaleBooking is returned when a booking's status no longer matches the expected one
var ErrStaleBooking = errors.New("booking status changed concurrently")

// BookingStore persists trips, bookings and passengers.
//
// Lookups return (nil, nil) when the record does not exist. Every write that
// touches seat occupancy goes through WithTripLock, which serializes callers
// per trip and commits or rolls back as one unit.
type BookingStore interface {
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)
	OccupiedSeats(ctx context.Context, tripID string) ([]string, error)

	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error)
	ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*models.Booking, error)
	ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)

	WithTripLock(ctx context.Context, tripID string, fn func(tx TripTx) error) error

	Ping(ctx context.Context) error
}

// TripTx is the view of one locked trip inside a transaction
type TripTx interface {
	// Trip returns the locked trip; seat counter changes are reflected in it
	Trip() *models.Trip

	OccupiedSeats(ctx context.Context) ([]string, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	InsertBooking(ctx context.Context, booking *models.Booking) error

	LockBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	BookingIDsByStatus(ctx context.Context, statuses []models.BookingStatus) ([]string, error)
	UpdateBookingStatus(ctx context.Context, bookingID string, change models.StatusChange) error

	ReserveSeats(ctx context.Context, seats int) error
	ReleaseSeats(ctx context.Context, seats int) error
	SetTripStatus(ctx context.Context, status models.TripStatus) error
}

func statusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
