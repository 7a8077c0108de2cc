package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-core/internal/models"
)

const tripSelectQuery = `
	SELECT t.id, t.vehicle_id, t.route_name, t.departure_at, t.arrival_at,
	       t.price_per_seat, t.available_seats, t.status,
	       v.capacity, v.is_active AS vehicle_active,
	       t.created_at, t.updated_at
	FROM trips t
	JOIN vehicles v ON v.id = t.vehicle_id
	WHERE t.id = $1`

// TripRepository handles trip reads and the trip-side writes of booking transactions
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// GetByID retrieves a trip joined with its vehicle capacity
func (r *TripRepository) GetByID(ctx context.Context, tripID string) (*models.Trip, error) {
	var trip models.Trip
	err := r.db.GetContext(ctx, &trip, tripSelectQuery, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// lockForUpdate reads the trip row and holds its lock until the transaction ends
func (r *TripRepository) lockForUpdate(ctx context.Context, tx *sqlx.Tx, tripID string) (*models.Trip, error) {
	var trip models.Trip
	err := tx.GetContext(ctx, &trip, tripSelectQuery+` FOR UPDATE OF t`, tripID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock trip: %w", err)
	}
	return &trip, nil
}

// reserveSeats decrements available_seats, refusing to go below zero
func (r *TripRepository) reserveSeats(ctx context.Context, tx *sqlx.Tx, tripID string, seats int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE trips
		SET available_seats = available_seats - $1,
		    updated_at = NOW()
		WHERE id = $2 AND available_seats >= $1`,
		seats, tripID)
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve seats: %w", err)
	}
	if rows == 0 {
		return models.ErrSeatCounterUnderflow
	}
	return nil
}

// releaseSeats increments available_seats, refusing to exceed vehicle capacity
func (r *TripRepository) releaseSeats(ctx context.Context, tx *sqlx.Tx, tripID string, seats int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE trips t
		SET available_seats = t.available_seats + $1,
		    updated_at = NOW()
		FROM vehicles v
		WHERE t.id = $2 AND v.id = t.vehicle_id
		  AND t.available_seats + $1 <= v.capacity`,
		seats, tripID)
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to release seats: %w", err)
	}
	if rows == 0 {
		return models.ErrSeatCounterOverflow
	}
	return nil
}

// updateStatus sets the trip status
func (r *TripRepository) updateStatus(ctx context.Context, tx *sqlx.Tx, tripID string, status models.TripStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE trips SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, tripID)
	if err != nil {
		return fmt.Errorf("failed to update trip status: %w", err)
	}
	return nil
}
