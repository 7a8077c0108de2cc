package models

import (
	"fmt"
	"strings"
	"time"
)

// TicketType represents the fare category of a passenger
type TicketType string

const (
	TicketTypeAdult   TicketType = "adult"
	TicketTypeChild   TicketType = "child"
	TicketTypeSenior  TicketType = "senior"
	TicketTypeStudent TicketType = "student"
)

// IsValid checks that the ticket type is known
func (t TicketType) IsValid() bool {
	switch t {
	case TicketTypeAdult, TicketTypeChild, TicketTypeSenior, TicketTypeStudent:
		return true
	}
	return false
}

// MaxPassengerAge bounds the accepted age value
const MaxPassengerAge = 120

// Passenger represents one traveller holding one seat of a booking
type Passenger struct {
	ID         string     `json:"id" db:"id"`
	BookingID  string     `json:"booking_id" db:"booking_id"`
	TripID     string     `json:"trip_id" db:"trip_id"`
	Name       string     `json:"name" db:"name"`
	Age        int        `json:"age" db:"age"`
	Gender     *string    `json:"gender,omitempty" db:"gender"`
	SeatLabel  string     `json:"seat_label" db:"seat_label"`
	TicketType TicketType `json:"ticket_type" db:"ticket_type"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// PassengerInput is a passenger record entered into a draft
type PassengerInput struct {
	Name       string     `json:"name"`
	Age        int        `json:"age"`
	Gender     string     `json:"gender,omitempty"`
	SeatLabel  string     `json:"seat_label,omitempty"`
	TicketType TicketType `json:"ticket_type,omitempty"`
}

// Normalize trims whitespace and applies the default ticket type
func (p *PassengerInput) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.TrimSpace(p.Gender)
	p.SeatLabel = NormalizeSeatLabel(p.SeatLabel)
	if p.TicketType == "" {
		p.TicketType = TicketTypeAdult
	}
}

// Validate validates a single passenger entry
func (p *PassengerInput) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", CodeInvalidPassenger, "passenger name is required")
	}
	if p.Age < 0 || p.Age > MaxPassengerAge {
		return NewValidationError("age", CodeInvalidPassenger, fmt.Sprintf("passenger age must be between 0 and %d", MaxPassengerAge))
	}
	if !p.TicketType.IsValid() {
		return NewValidationError("ticket_type", CodeInvalidPassenger, fmt.Sprintf("unknown ticket type: %s", p.TicketType))
	}
	return nil
}
