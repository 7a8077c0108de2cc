package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
)

// AvailabilityService resolves which seats of a trip are free.
// Every call reads committed state; nothing is cached.
type AvailabilityService struct {
	store  database.BookingStore
	layout *SeatLayoutService
	holds  database.SeatHoldStore
	logger *logrus.Logger
}

// NewAvailabilityService creates a new AvailabilityService. holds may be nil.
func NewAvailabilityService(store database.BookingStore, layout *SeatLayoutService, holds database.SeatHoldStore, logger *logrus.Logger) *AvailabilityService {
	return &AvailabilityService{store: store, layout: layout, holds: holds, logger: logger}
}

// OccupiedSeats returns the labels held by bookings in an occupying status
func (s *AvailabilityService) OccupiedSeats(ctx context.Context, tripID string) ([]string, error) {
	occupied, err := s.store.OccupiedSeats(ctx, tripID)
	if err != nil {
		return nil, models.NewPersistenceError("read occupied seats", err)
	}
	return occupied, nil
}

// GetSeatAvailability returns the trip's full seat map with availability
func (s *AvailabilityService) GetSeatAvailability(ctx context.Context, tripID string) (*models.SeatAvailability, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, models.NewPersistenceError("read trip", err)
	}
	if trip == nil {
		return nil, models.NewTripNotFoundError(tripID)
	}

	seats, err := s.layout.Generate(trip.Capacity)
	if err != nil {
		return nil, err
	}

	occupied, err := s.OccupiedSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	var held map[string]string
	if s.holds != nil {
		labels := make([]string, len(seats))
		for i, seat := range seats {
			labels[i] = seat.Label
		}
		held, err = s.holds.Holders(ctx, tripID, labels)
		if err != nil {
			// holds are advisory; a Redis outage must not hide the seat map
			s.logger.WithError(err).WithField("trip_id", tripID).Warn("Failed to read seat holds")
			held = nil
		}
	}

	return resolveAvailability(trip, seats, occupied, held), nil
}

// resolveAvailability combines a layout with occupied labels and advisory holds
func resolveAvailability(trip *models.Trip, seats []models.Seat, occupied []string, held map[string]string) *models.SeatAvailability {
	taken := make(map[string]bool, len(occupied))
	for _, label := range occupied {
		taken[label] = true
	}

	free := 0
	states := make([]models.SeatState, len(seats))
	for i, seat := range seats {
		_, isHeld := held[seat.Label]
		states[i] = models.SeatState{
			Seat:      seat,
			Available: !taken[seat.Label],
			Held:      isHeld && !taken[seat.Label],
		}
		if states[i].Available {
			free++
		}
	}

	// capped layouts expose fewer labels than the vehicle capacity
	return &models.SeatAvailability{
		TripID:         trip.ID,
		Capacity:       trip.Capacity,
		AvailableSeats: min(trip.AvailableSeats, free),
		Seats:          states,
	}
}
