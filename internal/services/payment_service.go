package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-core/internal/models"
	"github.com/stripe/stripe-go/v82"
)

// PaymentIntentAPI is the part of the Stripe client used here; satisfied by
// stripe client.API's PaymentIntents field
type PaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// PaymentService takes card payments for PendingPayment bookings through
// Stripe payment intents and marks bookings paid once Stripe confirms.
type PaymentService struct {
	intents   PaymentIntentAPI
	bookings  *BookingService
	lifecycle *LifecycleService
	logger    *logrus.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(intents PaymentIntentAPI, bookings *BookingService, lifecycle *LifecycleService, logger *logrus.Logger) *PaymentService {
	return &PaymentService{intents: intents, bookings: bookings, lifecycle: lifecycle, logger: logger}
}

// CreatePaymentIntent opens a Stripe payment intent for the booking total
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, memberID, bookingID string) (*models.PaymentIntentResponse, error) {
	booking, err := s.bookings.GetBookingForMember(ctx, memberID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPendingPayment {
		return nil, models.NewInvalidTransitionError(booking.Status, "pay for")
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toCents(booking.TotalPrice)),
		Currency:           stripe.String(stripeCurrency(booking.Currency)),
		Description:        stripe.String("Booking " + booking.Reference),
		PaymentMethodTypes: []*string{stripe.String("card")},
		Metadata: map[string]string{
			"booking_id": booking.ID,
			"reference":  booking.Reference,
			"member_id":  booking.MemberID,
		},
	}

	pi, err := s.intents.New(params)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Failed to create payment intent")
		return nil, &models.PersistenceError{Op: "create payment intent", Code: models.CodePaymentFailed, Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"payment_intent_id": pi.ID,
		"amount":            booking.TotalPrice,
	}).Info("Payment intent created")

	return &models.PaymentIntentResponse{
		BookingID:       booking.ID,
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          booking.TotalPrice,
		Currency:        booking.Currency,
	}, nil
}

// ConfirmPayment checks the payment intent with Stripe and marks the booking
// paid when it succeeded
func (s *PaymentService) ConfirmPayment(ctx context.Context, memberID, bookingID, intentID string) (*models.Booking, error) {
	booking, err := s.bookings.GetBookingForMember(ctx, memberID, bookingID)
	if err != nil {
		return nil, err
	}

	pi, err := s.intents.Get(intentID, nil)
	if err != nil {
		s.logger.WithError(err).WithField("payment_intent_id", intentID).Error("Failed to fetch payment intent")
		return nil, &models.PersistenceError{Op: "fetch payment intent", Code: models.CodePaymentFailed, Err: err}
	}

	if pi.Metadata["booking_id"] != booking.ID {
		return nil, models.NewValidationError("payment_intent_id", models.CodePaymentFailed,
			"payment intent does not belong to this booking")
	}
	if pi.Amount != toCents(booking.TotalPrice) {
		return nil, models.NewValidationError("payment_intent_id", models.CodePaymentFailed,
			"payment intent amount does not match the booking total")
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		if booking.IsPaid {
			return booking, nil
		}
		return s.lifecycle.MarkPaid(ctx, booking.ID, pi.ID)
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresAction:
		return nil, &models.ConflictError{
			Resource: "payment",
			Code:     models.CodePaymentFailed,
			Msg:      fmt.Sprintf("payment is still %s", pi.Status),
		}
	default:
		return nil, models.NewValidationError("payment_intent_id", models.CodePaymentFailed,
			fmt.Sprintf("payment not completed: %s", pi.Status))
	}
}

func stripeCurrency(code string) string {
	if code == "" {
		return "myr"
	}
	return strings.ToLower(code)
}
