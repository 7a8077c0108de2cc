package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tripRowColumns = []string{
	"id", "vehicle_id", "route_name", "departure_at", "arrival_at",
	"price_per_seat", "available_seats", "status", "capacity", "vehicle_active",
	"created_at", "updated_at",
}

var bookingRowColumns = []string{
	"id", "reference", "member_id", "trip_id", "number_of_seats", "total_price", "currency",
	"insurance", "refund_guarantee", "boarding_pass", "status", "is_paid", "status_note",
	"payment_reference", "device_info", "created_at", "updated_at", "paid_at", "cancelled_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func tripRow(available int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(tripRowColumns).AddRow(
		"trip-1", "veh-1", "KL - Penang", now.Add(24*time.Hour), nil,
		50.0, available, "scheduled", 30, true,
		now, now,
	)
}

func TestPostgresStore_GetTrip(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`FROM trips t`).
			WithArgs("trip-1").
			WillReturnRows(tripRow(12))

		trip, err := store.GetTrip(ctx, "trip-1")
		require.NoError(t, err)
		require.NotNil(t, trip)
		assert.Equal(t, 12, trip.AvailableSeats)
		assert.Equal(t, 30, trip.Capacity)
		assert.Equal(t, models.TripStatusScheduled, trip.Status)
		assert.Nil(t, trip.ArrivalAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`FROM trips t`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(tripRowColumns))

		trip, err := store.GetTrip(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, trip)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`FROM trips t`).
			WithArgs("trip-1").
			WillReturnError(fmt.Errorf("connection reset"))

		trip, err := store.GetTrip(ctx, "trip-1")
		assert.Error(t, err)
		assert.Nil(t, trip)
		assert.Contains(t, err.Error(), "failed to get trip")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_OccupiedSeats(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT p.seat_label`).
		WithArgs("trip-1", "pending_payment", "paid", "confirmed", "refund_pending").
		WillReturnRows(sqlmock.NewRows([]string{"seat_label"}).AddRow("1A").AddRow("4C"))

	labels, err := store.OccupiedSeats(context.Background(), "trip-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1A", "4C"}, labels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBooking(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingRowColumns).AddRow(
			"b1", "ABCD2345", "member-1", "trip-1", 2, 106.0, "MYR",
			true, false, false, "pending_payment", false, nil,
			nil, []byte(`{"ip":"10.0.0.1"}`), now, now, nil, nil,
		))
	mock.ExpectQuery(`FROM passengers WHERE booking_id = \$1`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_id", "trip_id", "name", "age", "gender", "seat_label", "ticket_type", "created_at",
		}).
			AddRow("p1", "b1", "trip-1", "Aisyah", 30, nil, "5A", "adult", now).
			AddRow("p2", "b1", "trip-1", "Hafiz", 8, "male", "5B", "child", now))

	booking, err := store.GetBooking(context.Background(), "b1")
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.BookingStatusPendingPayment, booking.Status)
	assert.True(t, booking.Insurance)
	assert.Equal(t, "10.0.0.1", booking.DeviceInfo["ip"])
	assert.Equal(t, []string{"5A", "5B"}, booking.SeatLabels())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTripLock(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF t`).WithArgs("trip-1").WillReturnRows(tripRow(10))
		mock.ExpectExec(`UPDATE trips`).WithArgs(2, "trip-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var remaining int
		err := store.WithTripLock(ctx, "trip-1", func(tx TripTx) error {
			if err := tx.ReserveSeats(ctx, 2); err != nil {
				return err
			}
			remaining = tx.Trip().AvailableSeats
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 8, remaining)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Sold Out Rolls Back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF t`).WithArgs("trip-1").WillReturnRows(tripRow(1))
		mock.ExpectExec(`UPDATE trips`).WithArgs(2, "trip-1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.WithTripLock(ctx, "trip-1", func(tx TripTx) error {
			return tx.ReserveSeats(ctx, 2)
		})
		assert.True(t, errors.Is(err, models.ErrSeatCounterUnderflow))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Trip", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF t`).WithArgs("missing").WillReturnRows(sqlmock.NewRows(tripRowColumns))
		mock.ExpectRollback()

		err := store.WithTripLock(ctx, "missing", func(tx TripTx) error { return nil })
		assert.Equal(t, ErrTripNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Release Over Capacity", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF t`).WithArgs("trip-1").WillReturnRows(tripRow(30))
		mock.ExpectExec(`UPDATE trips t`).WithArgs(1, "trip-1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.WithTripLock(ctx, "trip-1", func(tx TripTx) error {
			return tx.ReleaseSeats(ctx, 1)
		})
		assert.True(t, errors.Is(err, models.ErrSeatCounterOverflow))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_UpdateBookingStatus(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	t.Run("Stale", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF t`).WithArgs("trip-1").WillReturnRows(tripRow(10))
		mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := store.WithTripLock(ctx, "trip-1", func(tx TripTx) error {
			return tx.UpdateBookingStatus(ctx, "b1", models.StatusChange{
				From: models.BookingStatusPendingPayment,
				To:   models.BookingStatusPaid,
				At:   now,
			})
		})
		assert.Equal(t, ErrStaleBooking, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Insert And Reference Check", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE OF t`).WithArgs("trip-1").WillReturnRows(tripRow(10))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bookings WHERE reference`).
			WithArgs("ABCD2345").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO passengers`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithTripLock(ctx, "trip-1", func(tx TripTx) error {
			exists, err := tx.ReferenceExists(ctx, "ABCD2345")
			if err != nil || exists {
				return fmt.Errorf("unexpected reference state: %v %v", exists, err)
			}
			return tx.InsertBooking(ctx, &models.Booking{
				ID:        "b1",
				Reference: "ABCD2345",
				TripID:    "trip-1",
				Status:    models.BookingStatusPendingPayment,
				CreatedAt: now,
				UpdatedAt: now,
				Passengers: []models.Passenger{
					{ID: "p1", BookingID: "b1", TripID: "trip-1", Name: "Aisyah", SeatLabel: "5A", TicketType: models.TicketTypeAdult, CreatedAt: now},
				},
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_ListPendingPaymentBefore(t *testing.T) {
	store, mock := newMockStore(t)
	cutoff := time.Now().Add(-30 * time.Minute)

	mock.ExpectQuery(`SELECT id FROM bookings`).
		WithArgs("pending_payment", cutoff, 500).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b1").AddRow("b2"))

	ids, err := store.ListPendingPaymentBefore(context.Background(), cutoff, 500)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
