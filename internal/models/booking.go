package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ============================================================================
// BOOKING STATUSES
// ============================================================================

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "pending_payment"
	BookingStatusPaid           BookingStatus = "paid"
	BookingStatusConfirmed      BookingStatus = "confirmed"
	BookingStatusCancelled      BookingStatus = "cancelled"
	BookingStatusRefundPending  BookingStatus = "refund_pending"
	BookingStatusRefunded       BookingStatus = "refunded"
	BookingStatusCompleted      BookingStatus = "completed"
)

// OccupyingStatuses are the statuses that count against seat availability
var OccupyingStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusPaid,
	BookingStatusConfirmed,
	BookingStatusRefundPending,
}

// bookingTransitions lists the legal next states for each status.
// Terminal states have no entry.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPendingPayment: {BookingStatusPaid, BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusPaid:           {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusRefundPending, BookingStatusCompleted},
	BookingStatusConfirmed:      {BookingStatusCancelled, BookingStatusRefundPending, BookingStatusCompleted},
	BookingStatusRefundPending:  {BookingStatusRefunded, BookingStatusPaid},
}

// IsOccupying reports whether the status holds seats on the trip
func (s BookingStatus) IsOccupying() bool {
	for _, o := range OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	_, ok := bookingTransitions[s]
	return !ok
}

// CanTransitionTo checks the transition table
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid checks that the status is one of the known values
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPendingPayment, BookingStatusPaid, BookingStatusConfirmed,
		BookingStatusCancelled, BookingStatusRefundPending, BookingStatusRefunded,
		BookingStatusCompleted:
		return true
	}
	return false
}

// ============================================================================
// BOOKING
// ============================================================================

// AddOns are per-passenger extras chosen for the whole booking
type AddOns struct {
	Insurance       bool `json:"insurance" db:"insurance"`
	RefundGuarantee bool `json:"refund_guarantee" db:"refund_guarantee"`
	BoardingPass    bool `json:"boarding_pass" db:"boarding_pass"`
}

// DeviceInfo stores device metadata
type DeviceInfo map[string]interface{}

func (d DeviceInfo) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DeviceInfo) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, d)
}

// Booking represents a member's reservation of seats on one trip
type Booking struct {
	ID            string  `json:"id" db:"id"`
	Reference     string  `json:"reference" db:"reference"`
	MemberID      string  `json:"member_id" db:"member_id"`
	TripID        string  `json:"trip_id" db:"trip_id"`
	NumberOfSeats int     `json:"number_of_seats" db:"number_of_seats"`
	TotalPrice    float64 `json:"total_price" db:"total_price"`
	Currency      string  `json:"currency" db:"currency"`
	AddOns
	Status           BookingStatus `json:"status" db:"status"`
	IsPaid           bool          `json:"is_paid" db:"is_paid"`
	StatusNote       *string       `json:"status_note,omitempty" db:"status_note"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
	DeviceInfo       DeviceInfo    `json:"device_info,omitempty" db:"device_info"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
	PaidAt           *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`

	Passengers []Passenger `json:"passengers,omitempty" db:"-"`
}

// SeatLabels returns the seat labels of the loaded passengers
func (b *Booking) SeatLabels() []string {
	labels := make([]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		labels = append(labels, p.SeatLabel)
	}
	return labels
}

// StatusChange describes a booking status write performed inside a trip transaction.
// Nil pointers leave the stored column untouched.
type StatusChange struct {
	From             BookingStatus
	To               BookingStatus
	IsPaid           bool
	Note             *string
	PaymentReference *string
	PaidAt           *time.Time
	CancelledAt      *time.Time
	At               time.Time
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// TransitionRequest carries an optional note for lifecycle actions
type TransitionRequest struct {
	Note string `json:"note"`
}

// MarkPaidRequest is used by admins to record an offline payment
type MarkPaidRequest struct {
	PaymentReference string `json:"payment_reference"`
}

// ConfirmPaymentRequest confirms a Stripe payment intent for a booking
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// PaymentIntentResponse is returned when a payment intent is created
type PaymentIntentResponse struct {
	BookingID       string  `json:"booking_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	ClientSecret    string  `json:"client_secret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}
