package database

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/booking-core/internal/models"
)

// MemoryStore is an in-process BookingStore for development and tests.
// A mutex per trip plays the role of the trip row lock.
type MemoryStore struct {
	mu       sync.RWMutex
	vehicles map[string]models.Vehicle
	trips    map[string]models.Trip
	bookings map[string]models.Booking

	locksMu   sync.Mutex
	tripLocks map[string]*sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles:  make(map[string]models.Vehicle),
		trips:     make(map[string]models.Trip),
		bookings:  make(map[string]models.Booking),
		tripLocks: make(map[string]*sync.Mutex),
	}
}

// AddVehicle registers a vehicle
func (s *MemoryStore) AddVehicle(v models.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

// AddTrip registers a trip. The vehicle must be added first.
func (s *MemoryStore) AddTrip(t models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[t.VehicleID]
	if !ok {
		return errors.New("vehicle not found")
	}
	if t.AvailableSeats < 0 || t.AvailableSeats > v.Capacity {
		return models.ErrSeatCounterOverflow
	}
	s.trips[t.ID] = t
	return nil
}

// SeedDemo adds one active 30-seat vehicle with a trip departing tomorrow
func (s *MemoryStore) SeedDemo(now time.Time) (string, error) {
	vehicleID := uuid.NewString()
	tripID := uuid.NewString()
	s.AddVehicle(models.Vehicle{ID: vehicleID, RegistrationNumber: "DEMO 1234", Capacity: 30, IsActive: true, CreatedAt: now})
	arrival := now.Add(30 * time.Hour)
	err := s.AddTrip(models.Trip{
		ID:             tripID,
		VehicleID:      vehicleID,
		RouteName:      "Kuala Lumpur - Penang",
		DepartureAt:    now.Add(24 * time.Hour),
		ArrivalAt:      &arrival,
		PricePerSeat:   50,
		AvailableSeats: 30,
		Status:         models.TripStatusScheduled,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	return tripID, err
}

func (s *MemoryStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tripLocked(tripID), nil
}

// tripLocked joins vehicle capacity; caller holds s.mu
func (s *MemoryStore) tripLocked(tripID string) *models.Trip {
	t, ok := s.trips[tripID]
	if !ok {
		return nil
	}
	v := s.vehicles[t.VehicleID]
	t.Capacity = v.Capacity
	t.VehicleActive = v.IsActive
	return &t
}

func (s *MemoryStore) OccupiedSeats(ctx context.Context, tripID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return occupiedIn(s.bookings, nil, tripID), nil
}

func occupiedIn(committed map[string]models.Booking, staged map[string]models.Booking, tripID string) []string {
	labels := []string{}
	seen := make(map[string]bool)
	collect := func(b models.Booking) {
		if b.TripID != tripID || !b.Status.IsOccupying() {
			return
		}
		for _, p := range b.Passengers {
			labels = append(labels, p.SeatLabel)
		}
	}
	for id, b := range staged {
		seen[id] = true
		collect(b)
	}
	for id, b := range committed {
		if !seen[id] {
			collect(b)
		}
	}
	return labels
}

func (s *MemoryStore) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil
	}
	return cloneBooking(b), nil
}

func (s *MemoryStore) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if b.Reference == reference {
			return cloneBooking(b), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListMemberBookings(ctx context.Context, memberID string, limit, offset int) ([]*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*models.Booking
	for _, b := range s.bookings {
		if b.MemberID == memberID {
			all = append(all, cloneBooking(b))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, limit, offset), nil
}

func (s *MemoryStore) ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []models.Booking
	for _, b := range s.bookings {
		if b.Status == models.BookingStatusPendingPayment && b.CreatedAt.Before(cutoff) {
			pending = append(pending, b)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	ids := []string{}
	for _, b := range pending {
		if limit > 0 && len(ids) == limit {
			break
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) lockFor(tripID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.tripLocks[tripID]
	if !ok {
		l = &sync.Mutex{}
		s.tripLocks[tripID] = l
	}
	return l
}

// WithTripLock serializes callers per trip. Writes are staged and applied
// only when fn returns nil.
func (s *MemoryStore) WithTripLock(ctx context.Context, tripID string, fn func(tx TripTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.lockFor(tripID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	trip := s.tripLocked(tripID)
	s.mu.RUnlock()
	if trip == nil {
		return ErrTripNotFound
	}

	tx := &memTripTx{store: s, trip: trip, staged: make(map[string]models.Booking)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.trips[tripID]
	stored.AvailableSeats = tx.trip.AvailableSeats
	stored.Status = tx.trip.Status
	stored.UpdatedAt = time.Now()
	s.trips[tripID] = stored
	for id, b := range tx.staged {
		s.bookings[id] = b
	}
	return nil
}

// memTripTx stages writes against one locked trip
type memTripTx struct {
	store  *MemoryStore
	trip   *models.Trip
	staged map[string]models.Booking
}

func (t *memTripTx) Trip() *models.Trip { return t.trip }

func (t *memTripTx) OccupiedSeats(ctx context.Context) ([]string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return occupiedIn(t.store.bookings, t.staged, t.trip.ID), nil
}

func (t *memTripTx) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	for _, b := range t.staged {
		if b.Reference == reference {
			return true, nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for _, b := range t.store.bookings {
		if b.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTripTx) InsertBooking(ctx context.Context, booking *models.Booking) error {
	t.staged[booking.ID] = *cloneBooking(*booking)
	return nil
}

func (t *memTripTx) current(bookingID string) (models.Booking, bool) {
	if b, ok := t.staged[bookingID]; ok {
		return b, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	b, ok := t.store.bookings[bookingID]
	return b, ok
}

func (t *memTripTx) LockBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, ok := t.current(bookingID)
	if !ok || b.TripID != t.trip.ID {
		return nil, nil
	}
	return cloneBooking(b), nil
}

func (t *memTripTx) BookingIDsByStatus(ctx context.Context, statuses []models.BookingStatus) ([]string, error) {
	want := make(map[models.BookingStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	t.store.mu.RLock()
	all := make(map[string]models.Booking, len(t.store.bookings))
	for id, b := range t.store.bookings {
		all[id] = b
	}
	t.store.mu.RUnlock()
	for id, b := range t.staged {
		all[id] = b
	}

	var matched []models.Booking
	for _, b := range all {
		if b.TripID == t.trip.ID && want[b.Status] {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	ids := make([]string, len(matched))
	for i, b := range matched {
		ids[i] = b.ID
	}
	return ids, nil
}

func (t *memTripTx) UpdateBookingStatus(ctx context.Context, bookingID string, change models.StatusChange) error {
	b, ok := t.current(bookingID)
	if !ok || b.Status != change.From {
		return ErrStaleBooking
	}
	b = *cloneBooking(b)
	b.Status = change.To
	b.IsPaid = change.IsPaid
	if change.Note != nil {
		b.StatusNote = change.Note
	}
	if change.PaymentReference != nil {
		b.PaymentReference = change.PaymentReference
	}
	if b.PaidAt == nil && change.PaidAt != nil {
		b.PaidAt = change.PaidAt
	}
	if change.CancelledAt != nil {
		b.CancelledAt = change.CancelledAt
	}
	b.UpdatedAt = change.At
	t.staged[bookingID] = b
	return nil
}

func (t *memTripTx) ReserveSeats(ctx context.Context, seats int) error {
	return t.trip.ReserveSeats(seats)
}

func (t *memTripTx) ReleaseSeats(ctx context.Context, seats int) error {
	return t.trip.ReleaseSeats(seats)
}

func (t *memTripTx) SetTripStatus(ctx context.Context, status models.TripStatus) error {
	t.trip.Status = status
	return nil
}

func cloneBooking(b models.Booking) *models.Booking {
	c := b
	c.Passengers = append([]models.Passenger(nil), b.Passengers...)
	return &c
}

func page(all []*models.Booking, limit, offset int) []*models.Booking {
	if offset >= len(all) {
		return []*models.Booking{}
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
