package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
)

// DraftConfig holds draft and advisory hold lifetimes
type DraftConfig struct {
	TTL          time.Duration
	HoldsEnabled bool
	HoldTTL      time.Duration
}

// DefaultDraftConfig returns sensible defaults. Holds are opt-in: without
// them any number of members may select the same seat and the commit decides.
func DefaultDraftConfig() DraftConfig {
	return DraftConfig{
		TTL:          30 * time.Minute,
		HoldsEnabled: false,
		HoldTTL:      5 * time.Minute,
	}
}

// DraftService manages the per-member booking draft: seat selection,
// passenger details and abandonment. Drafts never reserve inventory.
type DraftService struct {
	drafts database.DraftStore
	store  database.BookingStore
	layout *SeatLayoutService
	holds  database.SeatHoldStore
	config DraftConfig
	logger *logrus.Logger
	now    func() time.Time
}

// NewDraftService creates a new DraftService. holds may be nil.
func NewDraftService(
	drafts database.DraftStore,
	store database.BookingStore,
	layout *SeatLayoutService,
	holds database.SeatHoldStore,
	config DraftConfig,
	logger *logrus.Logger,
) *DraftService {
	return &DraftService{
		drafts: drafts,
		store:  store,
		layout: layout,
		holds:  holds,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// StartDraft records a seat selection for a trip, replacing any previous draft
func (s *DraftService) StartDraft(ctx context.Context, memberID, tripID string, seats []string) (*models.Draft, error) {
	// 1. Validate the selection itself
	selected, err := normalizeSeatSelection(seats)
	if err != nil {
		return nil, err
	}

	// 2. The trip must exist and accept bookings
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, models.NewPersistenceError("read trip", err)
	}
	if trip == nil {
		return nil, models.NewTripNotFoundError(tripID)
	}
	if !trip.IsBookable(s.now()) {
		return nil, models.NewTripUnavailableError(tripID, string(trip.Status))
	}

	// 3. Every label must exist in the vehicle layout
	index, err := s.layout.labelIndex(trip.Capacity)
	if err != nil {
		return nil, err
	}
	for _, label := range selected {
		if _, ok := index[label]; !ok {
			return nil, models.NewValidationError("seats", models.CodeInvalidSeat,
				fmt.Sprintf("seat %s does not exist on this vehicle", label))
		}
	}

	// 4. Reject seats that are already sold; the commit re-checks anyway
	occupied, err := s.store.OccupiedSeats(ctx, tripID)
	if err != nil {
		return nil, models.NewPersistenceError("read occupied seats", err)
	}
	if conflicts := intersectSeats(selected, occupied); len(conflicts) > 0 {
		return nil, models.NewSeatConflictError(conflicts)
	}

	// 5. Move advisory holds to the new selection. The previous draft keeps
	// its holds until the new ones are in place.
	previous, err := s.drafts.Get(ctx, memberID)
	if err != nil {
		return nil, models.NewPersistenceError("read draft", err)
	}
	if err := s.acquireHolds(ctx, memberID, tripID, selected); err != nil {
		return nil, err
	}

	now := s.now()
	draft := &models.Draft{
		MemberID:  memberID,
		TripID:    tripID,
		Seats:     selected,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}
	if err := s.drafts.Save(ctx, draft, s.config.TTL); err != nil {
		// the stored draft is still the previous one; keep its holds
		s.releaseHolds(ctx, withoutSeats(draft, previous))
		return nil, models.NewPersistenceError("save draft", err)
	}
	if previous != nil {
		s.releaseHolds(ctx, withoutSeats(previous, draft))
	}

	s.logger.WithFields(logrus.Fields{
		"member_id": memberID,
		"trip_id":   tripID,
		"seats":     selected,
	}).Info("Booking draft started")

	return draft, nil
}

// SetPassengerDetails attaches one passenger per selected seat and the chosen add-ons
func (s *DraftService) SetPassengerDetails(ctx context.Context, memberID string, passengers []models.PassengerInput, addOns models.AddOns) (*models.Draft, error) {
	draft, err := s.GetDraft(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if len(passengers) != len(draft.Seats) {
		return nil, models.NewPassengerCountMismatchError(len(draft.Seats), len(passengers))
	}

	assigned, err := assignSeats(draft.Seats, passengers)
	if err != nil {
		return nil, err
	}

	now := s.now()
	draft.Passengers = assigned
	draft.AddOns = addOns
	draft.UpdatedAt = now
	draft.ExpiresAt = now.Add(s.config.TTL)

	if err := s.drafts.Save(ctx, draft, s.config.TTL); err != nil {
		return nil, models.NewPersistenceError("save draft", err)
	}

	s.logger.WithFields(logrus.Fields{
		"member_id":  memberID,
		"trip_id":    draft.TripID,
		"passengers": len(assigned),
	}).Info("Passenger details set on draft")

	return draft, nil
}

// GetDraft returns the member's current draft
func (s *DraftService) GetDraft(ctx context.Context, memberID string) (*models.Draft, error) {
	draft, err := s.drafts.Get(ctx, memberID)
	if err != nil {
		return nil, models.NewPersistenceError("read draft", err)
	}
	if draft == nil {
		return nil, models.NewDraftNotFoundError()
	}
	return draft, nil
}

// ClearDraft abandons the member's draft. Clearing a missing draft is not an error.
func (s *DraftService) ClearDraft(ctx context.Context, memberID string) error {
	draft, err := s.drafts.Get(ctx, memberID)
	if err != nil {
		return models.NewPersistenceError("read draft", err)
	}
	if draft == nil {
		return nil
	}

	s.releaseHolds(ctx, draft)
	if err := s.drafts.Delete(ctx, memberID); err != nil {
		return models.NewPersistenceError("delete draft", err)
	}
	return nil
}

func (s *DraftService) acquireHolds(ctx context.Context, memberID, tripID string, seats []string) error {
	if !s.config.HoldsEnabled || s.holds == nil {
		return nil
	}

	conflicts, err := s.holds.Acquire(ctx, tripID, memberID, seats, s.config.HoldTTL)
	if err != nil {
		s.logger.WithError(err).WithField("trip_id", tripID).Warn("Seat hold unavailable, continuing without hold")
		return nil
	}
	if len(conflicts) > 0 {
		return models.NewSeatHeldError(conflicts)
	}
	return nil
}

func (s *DraftService) releaseHolds(ctx context.Context, draft *models.Draft) {
	if !s.config.HoldsEnabled || s.holds == nil || len(draft.Seats) == 0 {
		return
	}
	if err := s.holds.Release(ctx, draft.TripID, draft.MemberID, draft.Seats); err != nil {
		s.logger.WithError(err).WithField("trip_id", draft.TripID).Warn("Failed to release seat holds")
	}
}

// withoutSeats returns d restricted to the seats other does not cover on the same trip
func withoutSeats(d, other *models.Draft) *models.Draft {
	if other == nil || other.TripID != d.TripID {
		return d
	}
	covered := make(map[string]bool, len(other.Seats))
	for _, label := range other.Seats {
		covered[label] = true
	}
	rest := &models.Draft{MemberID: d.MemberID, TripID: d.TripID}
	for _, label := range d.Seats {
		if !covered[label] {
			rest.Seats = append(rest.Seats, label)
		}
	}
	return rest
}

// normalizeSeatSelection trims and upper-cases labels, rejecting empty and duplicate entries
func normalizeSeatSelection(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, models.NewNoSeatsSelectedError()
	}

	seen := make(map[string]bool, len(seats))
	out := make([]string, 0, len(seats))
	for _, raw := range seats {
		label := models.NormalizeSeatLabel(raw)
		if label == "" {
			return nil, models.NewValidationError("seats", models.CodeInvalidSeat, "seat label cannot be empty")
		}
		if seen[label] {
			return nil, models.NewValidationError("seats", models.CodeInvalidSeat,
				fmt.Sprintf("seat %s selected more than once", label))
		}
		seen[label] = true
		out = append(out, label)
	}
	return out, nil
}

// assignSeats validates passengers and gives each one a seat. Either every
// passenger names a seat from the draft or none does, in which case seats
// are handed out in selection order.
func assignSeats(seats []string, passengers []models.PassengerInput) ([]models.PassengerInput, error) {
	inDraft := make(map[string]bool, len(seats))
	for _, label := range seats {
		inDraft[label] = true
	}

	out := make([]models.PassengerInput, len(passengers))
	named := 0
	for i, p := range passengers {
		p.Normalize()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.SeatLabel != "" {
			named++
		}
		out[i] = p
	}

	switch named {
	case 0:
		for i := range out {
			out[i].SeatLabel = seats[i]
		}
	case len(out):
		used := make(map[string]bool, len(out))
		for _, p := range out {
			if !inDraft[p.SeatLabel] {
				return nil, models.NewValidationError("seat_label", models.CodeInvalidSeat,
					fmt.Sprintf("seat %s is not part of the selection", p.SeatLabel))
			}
			if used[p.SeatLabel] {
				return nil, models.NewValidationError("seat_label", models.CodeInvalidSeat,
					fmt.Sprintf("seat %s assigned to more than one passenger", p.SeatLabel))
			}
			used[p.SeatLabel] = true
		}
	default:
		return nil, models.NewValidationError("seat_label", models.CodeInvalidSeat,
			"seat_label must be given for every passenger or for none")
	}

	return out, nil
}

// intersectSeats returns the selected labels present in taken, in selection order
func intersectSeats(selected, taken []string) []string {
	takenSet := make(map[string]bool, len(taken))
	for _, label := range taken {
		takenSet[label] = true
	}
	var conflicts []string
	for _, label := range selected {
		if takenSet[label] {
			conflicts = append(conflicts, label)
		}
	}
	return conflicts
}
