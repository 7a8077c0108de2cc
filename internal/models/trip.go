package models

import (
	"errors"
	"time"
)

// TripStatus represents the status of a scheduled trip
type TripStatus string

const (
	TripStatusScheduled TripStatus = "scheduled"
	TripStatusDeparted  TripStatus = "departed"
	TripStatusCancelled TripStatus = "cancelled"
	TripStatusCompleted TripStatus = "completed"
)

// Vehicle is owned by fleet management and read-only here
type Vehicle struct {
	ID                 string    `json:"id" db:"id"`
	RegistrationNumber string    `json:"registration_number" db:"registration_number"`
	Capacity           int       `json:"capacity" db:"capacity"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Trip represents a scheduled departure bound to one vehicle.
// Capacity and VehicleActive are joined from the vehicle row.
type Trip struct {
	ID             string     `json:"id" db:"id"`
	VehicleID      string     `json:"vehicle_id" db:"vehicle_id"`
	RouteName      string     `json:"route_name" db:"route_name"`
	DepartureAt    time.Time  `json:"departure_at" db:"departure_at"`
	ArrivalAt      *time.Time `json:"arrival_at,omitempty" db:"arrival_at"`
	PricePerSeat   float64    `json:"price_per_seat" db:"price_per_seat"`
	AvailableSeats int        `json:"available_seats" db:"available_seats"`
	Status         TripStatus `json:"status" db:"status"`
	Capacity       int        `json:"capacity" db:"capacity"`
	VehicleActive  bool       `json:"vehicle_active" db:"vehicle_active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

var (
	// ErrSeatCounterUnderflow is returned when a reservation would push available seats below zero
	ErrSeatCounterUnderflow = errors.New("available seats cannot drop below zero")

	// ErrSeatCounterOverflow is returned when a release would push available seats above capacity
	ErrSeatCounterOverflow = errors.New("available seats cannot exceed vehicle capacity")
)

// IsBookable checks if the trip accepts new bookings at the given time
func (t *Trip) IsBookable(now time.Time) bool {
	if t.Status != TripStatusScheduled {
		return false
	}
	if !t.VehicleActive {
		return false
	}
	return t.DepartureAt.After(now)
}

// ReserveSeats decrements the available seat counter
func (t *Trip) ReserveSeats(seats int) error {
	if seats < 0 || t.AvailableSeats-seats < 0 {
		return ErrSeatCounterUnderflow
	}
	t.AvailableSeats -= seats
	return nil
}

// ReleaseSeats increments the available seat counter
func (t *Trip) ReleaseSeats(seats int) error {
	if seats < 0 || t.AvailableSeats+seats > t.Capacity {
		return ErrSeatCounterOverflow
	}
	t.AvailableSeats += seats
	return nil
}

// OccupancyPercentage returns the percentage of sold seats
func (t *Trip) OccupancyPercentage() float64 {
	if t.Capacity == 0 {
		return 0
	}
	return float64(t.Capacity-t.AvailableSeats) / float64(t.Capacity) * 100
}
