package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/smarttransit/booking-core/pkg/sms"
	"github.com/smarttransit/booking-core/pkg/validator"
)

// Notifier is told about booking events after they are committed.
// Implementations must not block the caller.
type Notifier interface {
	BookingCommitted(booking *models.Booking, member models.Member)
	BookingStatusChanged(booking *models.Booking, from models.BookingStatus)
}

// EventPublisher publishes serialized events, e.g. to Kafka
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// BookingEvent is the message published for every booking event
type BookingEvent struct {
	Type       string               `json:"type"`
	BookingID  string               `json:"booking_id"`
	Reference  string               `json:"reference"`
	TripID     string               `json:"trip_id"`
	MemberID   string               `json:"member_id"`
	Seats      []string             `json:"seats,omitempty"`
	Status     models.BookingStatus `json:"status"`
	FromStatus models.BookingStatus `json:"from_status,omitempty"`
	TotalPrice float64              `json:"total_price"`
	Currency   string               `json:"currency"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// Event types
const (
	EventBookingCommitted     = "booking.committed"
	EventBookingStatusChanged = "booking.status_changed"
)

// NotificationService dispatches best-effort SMS and event notifications.
// Failures are logged and never reach the booking flow.
type NotificationService struct {
	sms       sms.Gateway
	phones    *validator.PhoneValidator
	publisher EventPublisher
	timeout   time.Duration
	logger    *logrus.Logger
	wg        sync.WaitGroup

	mu    sync.Mutex
	tails map[string]chan struct{} // last pending job per booking
}

// NewNotificationService creates a new NotificationService. Either channel may be nil.
func NewNotificationService(gateway sms.Gateway, publisher EventPublisher, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		sms:       gateway,
		phones:    validator.NewPhoneValidator(),
		publisher: publisher,
		timeout:   10 * time.Second,
		logger:    logger,
		tails:     make(map[string]chan struct{}),
	}
}

// BookingCommitted sends the confirmation SMS and publishes a committed event
func (n *NotificationService) BookingCommitted(booking *models.Booking, member models.Member) {
	event := newBookingEvent(EventBookingCommitted, booking, "")
	n.dispatch(booking.ID, func(ctx context.Context) {
		n.publish(ctx, event)
		n.sendSMS(ctx, member.Phone, confirmationMessage(booking))
	})
}

// BookingStatusChanged publishes a status change event
func (n *NotificationService) BookingStatusChanged(booking *models.Booking, from models.BookingStatus) {
	event := newBookingEvent(EventBookingStatusChanged, booking, from)
	n.dispatch(booking.ID, func(ctx context.Context) {
		n.publish(ctx, event)
	})
}

// Wait blocks until in-flight notifications finish; used on shutdown and in tests
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

// dispatch runs fn in the background. Jobs for the same booking run one
// after another in call order.
func (n *NotificationService) dispatch(bookingID string, fn func(ctx context.Context)) {
	done := make(chan struct{})
	n.mu.Lock()
	prev := n.tails[bookingID]
	n.tails[bookingID] = done
	n.mu.Unlock()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			n.mu.Lock()
			if n.tails[bookingID] == done {
				delete(n.tails, bookingID)
			}
			n.mu.Unlock()
			close(done)
		}()

		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (n *NotificationService) publish(ctx context.Context, event BookingEvent) {
	if n.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.WithError(err).Error("Failed to marshal booking event")
		return
	}
	if err := n.publisher.Publish(ctx, event.BookingID, data); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": event.BookingID,
			"type":       event.Type,
		}).Warn("Failed to publish booking event")
	}
}

func (n *NotificationService) sendSMS(ctx context.Context, phone, message string) {
	if n.sms == nil || phone == "" {
		return
	}
	normalized, err := n.phones.Validate(phone)
	if err != nil {
		n.logger.WithField("phone", phone).Warn("Skipping booking SMS: invalid phone number")
		return
	}
	if err := n.sms.SendMessage(ctx, normalized, message); err != nil {
		n.logger.WithError(err).WithField("phone", normalized).Warn("Failed to send booking SMS")
	}
}

func newBookingEvent(eventType string, b *models.Booking, from models.BookingStatus) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		Reference:  b.Reference,
		TripID:     b.TripID,
		MemberID:   b.MemberID,
		Seats:      b.SeatLabels(),
		Status:     b.Status,
		FromStatus: from,
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		OccurredAt: time.Now().UTC(),
	}
}

func confirmationMessage(b *models.Booking) string {
	return fmt.Sprintf("Booking %s received: seats %s, total %s %.2f. Complete payment to secure your seats.",
		b.Reference, strings.Join(b.SeatLabels(), ", "), b.Currency, b.TotalPrice)
}
