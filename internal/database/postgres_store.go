package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-core/internal/models"
)

// PostgresStore implements BookingStore on PostgreSQL row locks
type PostgresStore struct {
	db       *sqlx.DB
	trips    *TripRepository
	bookings *BookingRepository
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:       db,
		trips:    NewTripRepository(db),
		bookings: NewBookingRepository(db),
	}
}

func (s *PostgresStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	return s.trips.GetByID(ctx, tripID)
}

func (s *PostgresStore) OccupiedSeats(ctx context.Context, tripID string) ([]string, error) {
	return s.bookings.OccupiedSeats(ctx, tripID)
}

func (s *PostgresStore) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *PostgresStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return s.bookings.GetByReference(ctx, reference)
}

func (s *PostgresStore) ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*models.Booking, error) {
	return s.bookings.ListByMember(ctx, memberID, limit, offset)
}

func (s *PostgresStore) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	return s.bookings.ListPendingPaymentBefore(ctx, cutoff, limit)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTripLock opens a transaction, locks the trip row with SELECT ... FOR UPDATE
// and runs fn. The transaction commits only when fn returns nil.
func (s *PostgresStore) WithTripLock(ctx context.Context, tripID string, fn func(tx TripTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trip, err := s.trips.lockForUpdate(ctx, tx, tripID)
	if err != nil {
		return err
	}
	if trip == nil {
		return ErrTripNotFound
	}

	if err := fn(&pgTripTx{tx: tx, trip: trip, store: s}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pgTripTx is a TripTx bound to one open sqlx transaction
type pgTripTx struct {
	tx    *sqlx.Tx
	trip  *models.Trip
	store *PostgresStore
}

func (t *pgTripTx) Trip() *models.Trip { return t.trip }

func (t *pgTripTx) OccupiedSeats(ctx context.Context) ([]string, error) {
	return t.store.bookings.occupiedSeats(ctx, t.tx, t.trip.ID)
}

func (t *pgTripTx) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	return t.store.bookings.referenceExists(ctx, t.tx, reference)
}

func (t *pgTripTx) InsertBooking(ctx context.Context, booking *models.Booking) error {
	return t.store.bookings.insert(ctx, t.tx, booking)
}

func (t *pgTripTx) LockBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := t.store.bookings.lockForUpdate(ctx, t.tx, bookingID)
	if err != nil || booking == nil {
		return nil, err
	}
	if booking.TripID != t.trip.ID {
		return nil, nil
	}
	return booking, nil
}

func (t *pgTripTx) BookingIDsByStatus(ctx context.Context, statuses []models.BookingStatus) ([]string, error) {
	return t.store.bookings.idsByStatus(ctx, t.tx, t.trip.ID, statuses)
}

func (t *pgTripTx) UpdateBookingStatus(ctx context.Context, bookingID string, change models.StatusChange) error {
	return t.store.bookings.updateStatus(ctx, t.tx, bookingID, change)
}

func (t *pgTripTx) ReserveSeats(ctx context.Context, seats int) error {
	if err := t.store.trips.reserveSeats(ctx, t.tx, t.trip.ID, seats); err != nil {
		return err
	}
	return t.trip.ReserveSeats(seats)
}

func (t *pgTripTx) ReleaseSeats(ctx context.Context, seats int) error {
	if err := t.store.trips.releaseSeats(ctx, t.tx, t.trip.ID, seats); err != nil {
		return err
	}
	return t.trip.ReleaseSeats(seats)
}

func (t *pgTripTx) SetTripStatus(ctx context.Context, status models.TripStatus) error {
	if err := t.store.trips.updateStatus(ctx, t.tx, t.trip.ID, status); err != nil {
		return err
	}
	t.trip.Status = status
	return nil
}
