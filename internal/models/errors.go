package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes surfaced to API clients
const (
	CodeNoSeatsSelected        = "NO_SEATS_SELECTED"
	CodePassengerCountMismatch = "PASSENGER_COUNT_MISMATCH"
	CodeInvalidSeat            = "INVALID_SEAT"
	CodeInvalidPassenger       = "INVALID_PASSENGER"
	CodeInvalidCapacity        = "INVALID_CAPACITY"
	CodeDraftIncomplete        = "DRAFT_INCOMPLETE"
	CodeSeatConflict           = "SEAT_CONFLICT"
	CodeSeatHeld               = "SEAT_HELD"
	CodeTripUnavailable        = "TRIP_UNAVAILABLE"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeBookingNotFound        = "BOOKING_NOT_FOUND"
	CodeDraftNotFound          = "DRAFT_NOT_FOUND"
	CodeReferenceExhausted     = "REFERENCE_EXHAUSTED"
	CodePaymentFailed          = "PAYMENT_FAILED"
	CodePersistence            = "PERSISTENCE_ERROR"
)

// ValidationError is malformed, user-correctable input
type ValidationError struct {
	Field string
	Code  string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError means the request collides with current state; the caller should re-fetch
type ConflictError struct {
	Resource string
	Code     string
	Msg      string
	Seats    []string
	Err      error
}

func (e *ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError means a trip, booking, vehicle or draft is missing
type NotFoundError struct {
	Resource string
	Code     string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// PersistenceError is a storage or transaction failure; nothing was applied
type PersistenceError struct {
	Op   string
	Code string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persistence failure during %s", e.Op)
	}
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ============================================================================
// CONSTRUCTORS
// ============================================================================

func NewValidationError(field, code, msg string) error {
	return &ValidationError{Field: field, Code: code, Msg: msg}
}

func NewNoSeatsSelectedError() error {
	return &ValidationError{Field: "seats", Code: CodeNoSeatsSelected, Msg: "at least one seat must be selected"}
}

func NewPassengerCountMismatchError(expected, got int) error {
	return &ValidationError{
		Field: "passengers",
		Code:  CodePassengerCountMismatch,
		Msg:   fmt.Sprintf("expected %d passengers for %d selected seats, got %d", expected, expected, got),
	}
}

func NewSeatConflictError(seats []string) error {
	return &ConflictError{
		Resource: "seat",
		Code:     CodeSeatConflict,
		Msg:      fmt.Sprintf("seats already taken: %s", strings.Join(seats, ", ")),
		Seats:    seats,
	}
}

// NewSeatHeldError reports seats another member is currently selecting.
// Nothing is sold yet; the caller may retry once the hold lapses.
func NewSeatHeldError(seats []string) error {
	return &ConflictError{
		Resource: "seat",
		Code:     CodeSeatHeld,
		Msg:      fmt.Sprintf("seats are being booked by another member: %s", strings.Join(seats, ", ")),
		Seats:    seats,
	}
}

func NewTripUnavailableError(tripID, reason string) error {
	return &ConflictError{
		Resource: "trip",
		Code:     CodeTripUnavailable,
		Msg:      fmt.Sprintf("trip %s is not bookable: %s", tripID, reason),
	}
}

func NewTripNotFoundError(tripID string) error {
	return &NotFoundError{Resource: "trip", Code: CodeTripUnavailable, ID: tripID}
}

func NewBookingNotFoundError(id string) error {
	return &NotFoundError{Resource: "booking", Code: CodeBookingNotFound, ID: id}
}

func NewDraftNotFoundError() error {
	return &NotFoundError{Resource: "draft", Code: CodeDraftNotFound}
}

func NewInvalidTransitionError(from BookingStatus, action string) error {
	return &ConflictError{
		Resource: "booking",
		Code:     CodeInvalidTransition,
		Msg:      fmt.Sprintf("cannot %s a booking in status %s", action, from),
	}
}

func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Code: CodePersistence, Err: err}
}

// ============================================================================
// CLASSIFIERS
// ============================================================================

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

// ErrorCode returns the API code carried by a domain error, or "" for foreign errors
func ErrorCode(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Code
	}
	var c *ConflictError
	if errors.As(err, &c) {
		return c.Code
	}
	var n *NotFoundError
	if errors.As(err, &n) {
		return n.Code
	}
	var p *PersistenceError
	if errors.As(err, &p) {
		return p.Code
	}
	return ""
}

// ConflictingSeats returns the seats named by a seat conflict
func ConflictingSeats(err error) []string {
	var c *ConflictError
	if errors.As(err, &c) {
		return c.Seats
	}
	return nil
}
