package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
)

// DefaultReferenceAttempts bounds reference generation retries per commit
const DefaultReferenceAttempts = 10

// BookingService turns drafts into persisted bookings and serves booking reads.
// The commit is the only operation that claims seats.
type BookingService struct {
	store       database.BookingStore
	drafts      *DraftService
	layout      *SeatLayoutService
	pricing     *PricingService
	references  ReferenceGenerator
	notifier    Notifier
	maxAttempts int
	logger      *logrus.Logger
	now         func() time.Time
}

// NewBookingService creates a new BookingService. notifier may be nil.
func NewBookingService(
	store database.BookingStore,
	drafts *DraftService,
	layout *SeatLayoutService,
	pricing *PricingService,
	references ReferenceGenerator,
	notifier Notifier,
	maxAttempts int,
	logger *logrus.Logger,
) *BookingService {
	if references == nil {
		references = RandomReferenceGenerator{}
	}
	if maxAttempts < 1 {
		maxAttempts = DefaultReferenceAttempts
	}
	return &BookingService{
		store:       store,
		drafts:      drafts,
		layout:      layout,
		pricing:     pricing,
		references:  references,
		notifier:    notifier,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// CommitDraft commits the member's current draft and clears it on success.
// On failure the draft is kept so the member can adjust and retry.
func (s *BookingService) CommitDraft(ctx context.Context, member models.Member, device models.DeviceInfo) (*models.Booking, error) {
	draft, err := s.drafts.GetDraft(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	booking, err := s.Commit(ctx, member, draft, device)
	if err != nil {
		return nil, err
	}

	if err := s.drafts.ClearDraft(ctx, member.ID); err != nil {
		// the booking exists; a stale draft expires on its own
		s.logger.WithError(err).WithField("member_id", member.ID).Warn("Failed to clear committed draft")
	}

	if s.notifier != nil {
		s.notifier.BookingCommitted(booking, member)
	}

	return booking, nil
}

// Commit atomically re-checks seats, prices, references and persists a draft
// as a PendingPayment booking. Either the booking, its passengers and the
// seat counter decrement all land, or nothing does.
func (s *BookingService) Commit(ctx context.Context, member models.Member, draft *models.Draft, device models.DeviceInfo) (*models.Booking, error) {
	if !draft.HasPassengers() {
		return nil, models.NewValidationError("passengers", models.CodeDraftIncomplete,
			"passenger details must be set for every selected seat before committing")
	}

	var booking *models.Booking
	err := s.store.WithTripLock(ctx, draft.TripID, func(tx database.TripTx) error {
		trip := tx.Trip()
		now := s.now()

		// 1. Trip still bookable
		if !trip.IsBookable(now) {
			return models.NewTripUnavailableError(trip.ID, string(trip.Status))
		}

		// 2. Labels still exist on the vehicle
		index, err := s.layout.labelIndex(trip.Capacity)
		if err != nil {
			return err
		}
		for _, label := range draft.Seats {
			if _, ok := index[label]; !ok {
				return models.NewValidationError("seats", models.CodeInvalidSeat, "seat "+label+" does not exist on this vehicle")
			}
		}

		// 3. Seats still free, read under the trip lock
		occupied, err := tx.OccupiedSeats(ctx)
		if err != nil {
			return models.NewPersistenceError("read occupied seats", err)
		}
		if conflicts := intersectSeats(draft.Seats, occupied); len(conflicts) > 0 {
			return models.NewSeatConflictError(conflicts)
		}

		// 4. Price and reference
		quote := s.pricing.Quote(trip.PricePerSeat, len(draft.Seats), draft.AddOns)
		reference, err := uniqueReference(ctx, tx, s.references, s.maxAttempts)
		if err != nil {
			return err
		}

		booking = buildBooking(member, draft, quote, reference, device, now)

		// 5. Counter and rows
		if err := tx.ReserveSeats(ctx, booking.NumberOfSeats); err != nil {
			if errors.Is(err, models.ErrSeatCounterUnderflow) {
				return models.NewTripUnavailableError(trip.ID, "sold out")
			}
			return models.NewPersistenceError("reserve seats", err)
		}
		if err := tx.InsertBooking(ctx, booking); err != nil {
			return models.NewPersistenceError("insert booking", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapStoreError(err, draft.TripID, "commit booking")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"reference":  booking.Reference,
		"trip_id":    booking.TripID,
		"member_id":  member.ID,
		"seats":      booking.SeatLabels(),
		"total":      booking.TotalPrice,
	}).Info("✅ Booking committed")

	return booking, nil
}

func buildBooking(member models.Member, draft *models.Draft, quote PriceQuote, reference string, device models.DeviceInfo, now time.Time) *models.Booking {
	booking := &models.Booking{
		ID:            uuid.New().String(),
		Reference:     reference,
		MemberID:      member.ID,
		TripID:        draft.TripID,
		NumberOfSeats: len(draft.Seats),
		TotalPrice:    quote.Total,
		Currency:      quote.Currency,
		AddOns:        draft.AddOns,
		Status:        models.BookingStatusPendingPayment,
		IsPaid:        false,
		DeviceInfo:    device,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	booking.Passengers = make([]models.Passenger, len(draft.Passengers))
	for i, p := range draft.Passengers {
		passenger := models.Passenger{
			ID:         uuid.New().String(),
			BookingID:  booking.ID,
			TripID:     draft.TripID,
			Name:       p.Name,
			Age:        p.Age,
			SeatLabel:  p.SeatLabel,
			TicketType: p.TicketType,
			CreatedAt:  now,
		}
		if p.Gender != "" {
			gender := p.Gender
			passenger.Gender = &gender
		}
		booking.Passengers[i] = passenger
	}
	return booking
}

// mapStoreError passes domain errors through and wraps everything else
func (s *BookingService) mapStoreError(err error, tripID, op string) error {
	if errors.Is(err, database.ErrTripNotFound) {
		return models.NewTripNotFoundError(tripID)
	}
	if models.ErrorCode(err) != "" {
		return err
	}
	s.logger.WithError(err).WithField("trip_id", tripID).Errorf("Failed to %s", op)
	return models.NewPersistenceError(op, err)
}

// GetBooking returns a booking by ID
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, models.NewPersistenceError("read booking", err)
	}
	if booking == nil {
		return nil, models.NewBookingNotFoundError(bookingID)
	}
	return booking, nil
}

// GetBookingForMember returns a booking only if the member owns it
func (s *BookingService) GetBookingForMember(ctx context.Context, memberID, bookingID string) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.MemberID != memberID {
		return nil, models.NewBookingNotFoundError(bookingID)
	}
	return booking, nil
}

// GetBookingByReference looks a member's booking up by its reference code
func (s *BookingService) GetBookingByReference(ctx context.Context, memberID, reference string) (*models.Booking, error) {
	booking, err := s.store.GetBookingByReference(ctx, strings.ToUpper(strings.TrimSpace(reference)))
	if err != nil {
		return nil, models.NewPersistenceError("read booking", err)
	}
	if booking == nil || booking.MemberID != memberID {
		return nil, models.NewBookingNotFoundError(reference)
	}
	return booking, nil
}

// ListMemberBookings returns a member's bookings, newest first
func (s *BookingService) ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*models.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	bookings, err := s.store.ListMemberBookings(ctx, memberID, limit, offset)
	if err != nil {
		return nil, models.NewPersistenceError("list bookings", err)
	}
	return bookings, nil
}
