package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/smarttransit/booking-core/internal/models"
)

// ExpiredPaymentNote is recorded on bookings cancelled by the pending-payment sweep
const ExpiredPaymentNote = "payment window expired"

// expireBatchSize caps how many bookings one sweep run cancels
const expireBatchSize = 500

// LifecycleService applies booking status transitions and keeps the trip seat
// counter in step with them. Each transition locks the trip row, then the booking.
type LifecycleService struct {
	store    database.BookingStore
	notifier Notifier
	logger   *logrus.Logger
	now      func() time.Time
}

// NewLifecycleService creates a new LifecycleService. notifier may be nil.
func NewLifecycleService(store database.BookingStore, notifier Notifier, logger *logrus.Logger) *LifecycleService {
	return &LifecycleService{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// transition describes one lifecycle action
type transition struct {
	action string
	to     models.BookingStatus
	// from restricts the source statuses further than the transition table
	from []models.BookingStatus
	// noopIfAlready makes a repeat of the action on a booking already in `to` succeed silently
	noopIfAlready bool
	release       bool
	markPaid      bool
	note          string
	paymentRef    string
	// ownerID, when set, hides bookings of other members
	ownerID string
	check   func(b *models.Booking) error
}

// transitionResult reports what apply did
type transitionResult struct {
	booking *models.Booking
	from    models.BookingStatus
	changed bool
}

// MarkPaid records a payment on a PendingPayment booking
func (s *LifecycleService) MarkPaid(ctx context.Context, bookingID, paymentRef string) (*models.Booking, error) {
	return s.run(ctx, bookingID, transition{
		action:     "mark as paid",
		to:         models.BookingStatusPaid,
		from:       []models.BookingStatus{models.BookingStatusPendingPayment},
		markPaid:   true,
		paymentRef: paymentRef,
	})
}

// Confirm confirms a PendingPayment or Paid booking
func (s *LifecycleService) Confirm(ctx context.Context, bookingID, note string) (*models.Booking, error) {
	return s.run(ctx, bookingID, transition{
		action: "confirm",
		to:     models.BookingStatusConfirmed,
		from:   []models.BookingStatus{models.BookingStatusPendingPayment, models.BookingStatusPaid},
		note:   note,
	})
}

// Cancel cancels a booking and returns its seats. Cancelling twice is a no-op.
func (s *LifecycleService) Cancel(ctx context.Context, bookingID, note string) (*models.Booking, error) {
	return s.run(ctx, bookingID, cancelTransition("", note))
}

// CancelForMember cancels a booking owned by the member
func (s *LifecycleService) CancelForMember(ctx context.Context, memberID, bookingID, note string) (*models.Booking, error) {
	return s.run(ctx, bookingID, cancelTransition(memberID, note))
}

func cancelTransition(ownerID, note string) transition {
	return transition{
		action: "cancel",
		to:     models.BookingStatusCancelled,
		from: []models.BookingStatus{
			models.BookingStatusPendingPayment,
			models.BookingStatusPaid,
			models.BookingStatusConfirmed,
		},
		noopIfAlready: true,
		release:       true,
		note:          note,
		ownerID:       ownerID,
	}
}

// RequestRefund moves a paid booking into RefundPending. An empty memberID skips the ownership check.
func (s *LifecycleService) RequestRefund(ctx context.Context, memberID, bookingID, note string) (*models.Booking, error) {
	return s.run(ctx, bookingID, transition{
		action:  "request a refund for",
		to:      models.BookingStatusRefundPending,
		from:    []models.BookingStatus{models.BookingStatusPaid, models.BookingStatusConfirmed},
		note:    note,
		ownerID: memberID,
		check: func(b *models.Booking) error {
			if !b.IsPaid {
				return &models.ConflictError{
					Resource: "booking",
					Code:     models.CodeInvalidTransition,
					Msg:      "refunds can only be requested for paid bookings",
				}
			}
			return nil
		},
	})
}

// ApproveRefund completes a refund and returns the booking's seats
func (s *LifecycleService) ApproveRefund(ctx context.Context, bookingID, note string) (*models.Booking, error) {
	return s.run(ctx, bookingID, transition{
		action:  "approve a refund for",
		to:      models.BookingStatusRefunded,
		from:    []models.BookingStatus{models.BookingStatusRefundPending},
		release: true,
		note:    note,
	})
}

// RejectRefund returns a RefundPending booking to Paid; seats stay occupied
func (s *LifecycleService) RejectRefund(ctx context.Context, bookingID, note string) (*models.Booking, error) {
	return s.run(ctx, bookingID, transition{
		action: "reject a refund for",
		to:     models.BookingStatusPaid,
		from:   []models.BookingStatus{models.BookingStatusRefundPending},
		note:   note,
	})
}

func (s *LifecycleService) run(ctx context.Context, bookingID string, t transition) (*models.Booking, error) {
	result, err := s.apply(ctx, bookingID, t)
	if err != nil {
		return nil, err
	}
	if result.changed {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"from":       result.from,
			"to":         result.booking.Status,
		}).Info("Booking status changed")
		if s.notifier != nil {
			s.notifier.BookingStatusChanged(result.booking, result.from)
		}
	}
	return result.booking, nil
}

// apply performs a transition inside the booking's trip transaction
func (s *LifecycleService) apply(ctx context.Context, bookingID string, t transition) (*transitionResult, error) {
	existing, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, models.NewPersistenceError("read booking", err)
	}
	if existing == nil || (t.ownerID != "" && existing.MemberID != t.ownerID) {
		return nil, models.NewBookingNotFoundError(bookingID)
	}

	result := &transitionResult{}
	err = s.store.WithTripLock(ctx, existing.TripID, func(tx database.TripTx) error {
		current, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return models.NewPersistenceError("lock booking", err)
		}
		if current == nil {
			return models.NewBookingNotFoundError(bookingID)
		}
		result.from = current.Status

		if t.noopIfAlready && current.Status == t.to {
			return nil
		}
		if !statusIn(current.Status, t.from) || !current.Status.CanTransitionTo(t.to) {
			return models.NewInvalidTransitionError(current.Status, t.action)
		}
		if t.check != nil {
			if err := t.check(current); err != nil {
				return err
			}
		}

		change := s.buildChange(current, t)
		if err := tx.UpdateBookingStatus(ctx, bookingID, change); err != nil {
			if errors.Is(err, database.ErrStaleBooking) {
				return &models.ConflictError{Resource: "booking", Code: models.CodeInvalidTransition, Msg: err.Error(), Err: err}
			}
			return models.NewPersistenceError("update booking status", err)
		}

		if t.release {
			if err := tx.ReleaseSeats(ctx, current.NumberOfSeats); err != nil {
				return models.NewPersistenceError("release seats", err)
			}
		}

		result.changed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrTripNotFound) {
			return nil, models.NewTripNotFoundError(existing.TripID)
		}
		if models.ErrorCode(err) == "" {
			err = models.NewPersistenceError(t.action, err)
		}
		return nil, err
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, models.NewPersistenceError("read booking", err)
	}
	if booking == nil {
		return nil, models.NewBookingNotFoundError(bookingID)
	}
	result.booking = booking
	return result, nil
}

func (s *LifecycleService) buildChange(current *models.Booking, t transition) models.StatusChange {
	now := s.now()
	change := models.StatusChange{
		From:   current.Status,
		To:     t.to,
		IsPaid: current.IsPaid || t.markPaid,
		At:     now,
	}
	if t.note != "" {
		note := t.note
		change.Note = &note
	}
	if t.paymentRef != "" {
		ref := t.paymentRef
		change.PaymentReference = &ref
	}
	if t.markPaid {
		change.PaidAt = &now
	}
	if t.to == models.BookingStatusCancelled {
		change.CancelledAt = &now
	}
	return change
}

// TripCompletion summarizes a CompleteTrip run
type TripCompletion struct {
	TripID    string `json:"trip_id"`
	Completed int    `json:"completed"`
	Cancelled int    `json:"cancelled"`
}

// CompleteTrip closes a trip: paid and confirmed bookings become Completed,
// unpaid ones are cancelled and their seats returned. RefundPending bookings
// keep their status until an admin decides the refund.
func (s *LifecycleService) CompleteTrip(ctx context.Context, tripID string) (*TripCompletion, error) {
	summary := &TripCompletion{TripID: tripID}
	type changed struct {
		id   string
		from models.BookingStatus
	}
	var changes []changed

	err := s.store.WithTripLock(ctx, tripID, func(tx database.TripTx) error {
		trip := tx.Trip()
		if trip.Status == models.TripStatusCompleted {
			return nil
		}
		if trip.Status == models.TripStatusCancelled {
			return &models.ConflictError{Resource: "trip", Code: models.CodeTripUnavailable, Msg: "cancelled trips cannot be completed"}
		}

		now := s.now()
		ids, err := tx.BookingIDsByStatus(ctx, []models.BookingStatus{
			models.BookingStatusPaid,
			models.BookingStatusConfirmed,
			models.BookingStatusPendingPayment,
		})
		if err != nil {
			return models.NewPersistenceError("list trip bookings", err)
		}

		for _, id := range ids {
			b, err := tx.LockBooking(ctx, id)
			if err != nil {
				return models.NewPersistenceError("lock booking", err)
			}
			if b == nil {
				continue
			}

			change := models.StatusChange{From: b.Status, IsPaid: b.IsPaid, At: now}
			if b.Status == models.BookingStatusPendingPayment {
				note := "trip completed before payment"
				change.To = models.BookingStatusCancelled
				change.Note = &note
				change.CancelledAt = &now
			} else {
				change.To = models.BookingStatusCompleted
			}

			if err := tx.UpdateBookingStatus(ctx, id, change); err != nil {
				return models.NewPersistenceError("update booking status", err)
			}
			if change.To == models.BookingStatusCancelled {
				if err := tx.ReleaseSeats(ctx, b.NumberOfSeats); err != nil {
					return models.NewPersistenceError("release seats", err)
				}
				summary.Cancelled++
			} else {
				summary.Completed++
			}
			changes = append(changes, changed{id: id, from: b.Status})
		}

		if err := tx.SetTripStatus(ctx, models.TripStatusCompleted); err != nil {
			return models.NewPersistenceError("update trip status", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, database.ErrTripNotFound) {
			return nil, models.NewTripNotFoundError(tripID)
		}
		if models.ErrorCode(err) == "" {
			err = models.NewPersistenceError("complete trip", err)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":   tripID,
		"completed": summary.Completed,
		"cancelled": summary.Cancelled,
	}).Info("Trip completed")

	if s.notifier != nil {
		for _, c := range changes {
			if b, err := s.store.GetBooking(ctx, c.id); err == nil && b != nil {
				s.notifier.BookingStatusChanged(b, c.from)
			}
		}
	}

	return summary, nil
}

// ExpirePendingPayments cancels PendingPayment bookings created more than
// olderThan ago and returns how many were cancelled. Bookings paid in the
// meantime are skipped.
func (s *LifecycleService) ExpirePendingPayments(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-olderThan)
	ids, err := s.store.ListPendingPaymentBefore(ctx, cutoff, expireBatchSize)
	if err != nil {
		return 0, models.NewPersistenceError("list pending payments", err)
	}

	expired := 0
	for _, id := range ids {
		_, err := s.run(ctx, id, transition{
			action:  "expire",
			to:      models.BookingStatusCancelled,
			from:    []models.BookingStatus{models.BookingStatusPendingPayment},
			release: true,
			note:    ExpiredPaymentNote,
		})
		if err != nil {
			if models.IsConflict(err) || models.IsNotFound(err) {
				continue
			}
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.logger.WithFields(logrus.Fields{
			"expired": expired,
			"cutoff":  cutoff,
		}).Info("Expired unpaid bookings")
	}
	return expired, nil
}

func statusIn(status models.BookingStatus, set []models.BookingStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
