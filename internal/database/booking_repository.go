package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-core/internal/models"
)

const bookingColumns = `
	id, reference, member_id, trip_id, number_of_seats, total_price, currency,
	insurance, refund_guarantee, boarding_pass, status, is_paid, status_note,
	payment_reference, device_info, created_at, updated_at, paid_at, cancelled_at`

const passengerColumns = `
	id, booking_id, trip_id, name, age, gender, seat_label, ticket_type, created_at`

// BookingRepository handles booking and passenger database operations
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ============================================================================
// READS
// ============================================================================

// GetByID retrieves a booking with its passengers
func (r *BookingRepository) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, bookingID)
}

// GetByReference retrieves a booking by its reference code
func (r *BookingRepository) GetByReference(ctx context.Context, reference string) (*models.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = $1`, reference)
}

func (r *BookingRepository) getOne(ctx context.Context, query string, arg string) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if err := r.db.SelectContext(ctx, &booking.Passengers,
		`SELECT `+passengerColumns+` FROM passengers WHERE booking_id = $1 ORDER BY seat_label`,
		booking.ID); err != nil {
		return nil, fmt.Errorf("failed to get passengers: %w", err)
	}

	return &booking, nil
}

// ListByMember returns a member's bookings, newest first, with passengers
func (r *BookingRepository) ListByMember(ctx context.Context, memberID string, limit, offset int) ([]*models.Booking, error) {
	bookings := []*models.Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		memberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	if len(bookings) == 0 {
		return bookings, nil
	}

	ids := make([]string, len(bookings))
	byID := make(map[string]*models.Booking, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	query, args, err := sqlx.In(`SELECT `+passengerColumns+` FROM passengers WHERE booking_id IN (?) ORDER BY seat_label`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build passenger query: %w", err)
	}
	var passengers []models.Passenger
	if err := r.db.SelectContext(ctx, &passengers, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list passengers: %w", err)
	}
	for _, p := range passengers {
		if b, ok := byID[p.BookingID]; ok {
			b.Passengers = append(b.Passengers, p)
		}
	}

	return bookings, nil
}

// OccupiedSeats returns the seat labels held by occupying bookings on a trip
func (r *BookingRepository) OccupiedSeats(ctx context.Context, tripID string) ([]string, error) {
	return r.occupiedSeats(ctx, r.db, tripID)
}

func (r *BookingRepository) occupiedSeats(ctx context.Context, q sqlx.QueryerContext, tripID string) ([]string, error) {
	query, args, err := sqlx.In(`
		SELECT p.seat_label
		FROM passengers p
		JOIN bookings b ON b.id = p.booking_id
		WHERE b.trip_id = ? AND b.status IN (?)`,
		tripID, statusStrings(models.OccupyingStatuses))
	if err != nil {
		return nil, fmt.Errorf("failed to build occupancy query: %w", err)
	}

	labels := []string{}
	if err := sqlx.SelectContext(ctx, q, &labels, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get occupied seats: %w", err)
	}
	return labels, nil
}

// ListPendingPaymentBefore returns ids of unpaid bookings created before cutoff, oldest first
func (r *BookingRepository) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	ids := []string{}
	err := r.db.SelectContext(ctx, &ids, `
		SELECT id FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`,
		models.BookingStatusPendingPayment, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pending bookings: %w", err)
	}
	return ids, nil
}

// ============================================================================
// TRANSACTION-SCOPED WRITES
// ============================================================================

func (r *BookingRepository) referenceExists(ctx context.Context, tx *sqlx.Tx, reference string) (bool, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings WHERE reference = $1`, reference); err != nil {
		return false, fmt.Errorf("failed to check reference uniqueness: %w", err)
	}
	return count > 0, nil
}

func (r *BookingRepository) insert(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO bookings (
			id, reference, member_id, trip_id, number_of_seats, total_price, currency,
			insurance, refund_guarantee, boarding_pass, status, is_paid, device_info,
			created_at, updated_at
		) VALUES (
			:id, :reference, :member_id, :trip_id, :number_of_seats, :total_price, :currency,
			:insurance, :refund_guarantee, :boarding_pass, :status, :is_paid, :device_info,
			:created_at, :updated_at
		)`, booking)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if len(booking.Passengers) == 0 {
		return nil
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO passengers (
			id, booking_id, trip_id, name, age, gender, seat_label, ticket_type, created_at
		) VALUES (
			:id, :booking_id, :trip_id, :name, :age, :gender, :seat_label, :ticket_type, :created_at
		)`, booking.Passengers)
	if err != nil {
		return fmt.Errorf("failed to insert passengers: %w", err)
	}

	return nil
}

func (r *BookingRepository) lockForUpdate(ctx context.Context, tx *sqlx.Tx, bookingID string) (*models.Booking, error) {
	var booking models.Booking
	err := tx.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) idsByStatus(ctx context.Context, tx *sqlx.Tx, tripID string, statuses []models.BookingStatus) ([]string, error) {
	query, args, err := sqlx.In(`
		SELECT id FROM bookings
		WHERE trip_id = ? AND status IN (?)
		ORDER BY created_at
		FOR UPDATE`,
		tripID, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to build booking query: %w", err)
	}

	ids := []string{}
	if err := tx.SelectContext(ctx, &ids, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list trip bookings: %w", err)
	}
	return ids, nil
}

func (r *BookingRepository) updateStatus(ctx context.Context, tx *sqlx.Tx, bookingID string, change models.StatusChange) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = $1,
		    is_paid = $2,
		    status_note = COALESCE($3, status_note),
		    payment_reference = COALESCE($4, payment_reference),
		    paid_at = COALESCE(paid_at, $5),
		    cancelled_at = COALESCE($6, cancelled_at),
		    updated_at = $7
		WHERE id = $8 AND status = $9`,
		change.To, change.IsPaid, change.Note, change.PaymentReference,
		change.PaidAt, change.CancelledAt, change.At, bookingID, change.From)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if rows == 0 {
		return ErrStaleBooking
	}
	return nil
}
