package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/stretchr/testify/require"
)

const testTripID = "trip-1"

var (
	alice = models.Member{ID: "member-alice", Phone: "0123456789"}
	bob   = models.Member{ID: "member-bob", Phone: "0191234567"}
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type statusEvent struct {
	bookingID string
	from      models.BookingStatus
	to        models.BookingStatus
}

// recordingNotifier captures notifications synchronously
type recordingNotifier struct {
	mu        sync.Mutex
	committed []string
	changes   []statusEvent
}

func (n *recordingNotifier) BookingCommitted(b *models.Booking, member models.Member) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.committed = append(n.committed, b.ID)
}

func (n *recordingNotifier) BookingStatusChanged(b *models.Booking, from models.BookingStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, statusEvent{bookingID: b.ID, from: from, to: b.Status})
}

type bookingFixture struct {
	store     *database.MemoryStore
	holds     *database.MemorySeatHoldStore
	layout    *SeatLayoutService
	drafts    *DraftService
	bookings  *BookingService
	lifecycle *LifecycleService
	notifier  *recordingNotifier
}

// newBookingFixture wires the booking services over a memory store holding
// one scheduled trip on a vehicle of the given capacity
func newBookingFixture(t *testing.T, capacity, available int) *bookingFixture {
	t.Helper()

	store := database.NewMemoryStore()
	store.AddVehicle(models.Vehicle{ID: "veh-1", RegistrationNumber: "WXY 1234", Capacity: capacity, IsActive: true})
	require.NoError(t, store.AddTrip(models.Trip{
		ID:             testTripID,
		VehicleID:      "veh-1",
		RouteName:      "Kuala Lumpur - Ipoh",
		DepartureAt:    time.Now().Add(24 * time.Hour),
		PricePerSeat:   50,
		AvailableSeats: available,
		Status:         models.TripStatusScheduled,
	}))

	logger := testLogger()
	holds := database.NewMemorySeatHoldStore()
	layout := NewSeatLayoutService(DefaultMaxRows, RemainderDiscard)
	notifier := &recordingNotifier{}
	drafts := NewDraftService(database.NewMemoryDraftStore(), store, layout, holds, DefaultDraftConfig(), logger)
	bookings := NewBookingService(store, drafts, layout, NewPricingService(DefaultAddOnRates(), "MYR"),
		nil, notifier, DefaultReferenceAttempts, logger)

	return &bookingFixture{
		store:     store,
		holds:     holds,
		layout:    layout,
		drafts:    drafts,
		bookings:  bookings,
		lifecycle: NewLifecycleService(store, notifier, logger),
		notifier:  notifier,
	}
}

// book runs the full draft flow for the member and returns the committed booking
func (f *bookingFixture) book(t *testing.T, member models.Member, seats ...string) *models.Booking {
	t.Helper()
	ctx := context.Background()

	_, err := f.drafts.StartDraft(ctx, member.ID, testTripID, seats)
	require.NoError(t, err)

	passengers := make([]models.PassengerInput, len(seats))
	for i := range seats {
		passengers[i] = models.PassengerInput{Name: "Passenger " + seats[i], Age: 30}
	}
	_, err = f.drafts.SetPassengerDetails(ctx, member.ID, passengers, models.AddOns{})
	require.NoError(t, err)

	booking, err := f.bookings.CommitDraft(ctx, member, models.DeviceInfo{"platform": "test"})
	require.NoError(t, err)
	return booking
}

// seedBooking stores a booking in the given status without touching the seat counter
func (f *bookingFixture) seedBooking(t *testing.T, id string, status models.BookingStatus, isPaid bool, created time.Time, seats ...string) {
	t.Helper()
	b := &models.Booking{
		ID:            id,
		Reference:     "SEED" + id,
		MemberID:      alice.ID,
		TripID:        testTripID,
		NumberOfSeats: len(seats),
		TotalPrice:    float64(50 * len(seats)),
		Currency:      "MYR",
		Status:        status,
		IsPaid:        isPaid,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	for i, s := range seats {
		b.Passengers = append(b.Passengers, models.Passenger{
			ID: id + "-p" + string(rune('0'+i)), BookingID: id, TripID: testTripID,
			Name: "Seeded", Age: 40, SeatLabel: s, TicketType: models.TicketTypeAdult,
		})
	}
	require.NoError(t, f.store.WithTripLock(context.Background(), testTripID, func(tx database.TripTx) error {
		return tx.InsertBooking(context.Background(), b)
	}))
}

// enableHolds turns on advisory seat holds for the fixture's drafts
func (f *bookingFixture) enableHolds() {
	f.drafts.config.HoldsEnabled = true
}

func (f *bookingFixture) availableSeats(t *testing.T) int {
	t.Helper()
	trip, err := f.store.GetTrip(context.Background(), testTripID)
	require.NoError(t, err)
	require.NotNil(t, trip)
	return trip.AvailableSeats
}

func (f *bookingFixture) booking(t *testing.T, id string) *models.Booking {
	t.Helper()
	b, err := f.store.GetBooking(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}
