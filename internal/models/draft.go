package models

import "time"

// Draft is a member's in-progress booking. It holds no inventory.
type Draft struct {
	MemberID   string           `json:"member_id"`
	TripID     string           `json:"trip_id"`
	Seats      []string         `json:"seats"`
	Passengers []PassengerInput `json:"passengers,omitempty"`
	AddOns     AddOns           `json:"add_ons"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}

// HasPassengers reports whether passenger details were entered for every seat
func (d *Draft) HasPassengers() bool {
	return len(d.Passengers) > 0 && len(d.Passengers) == len(d.Seats)
}

// StartDraftRequest represents the seat selection step
type StartDraftRequest struct {
	TripID string   `json:"trip_id" binding:"required"`
	Seats  []string `json:"seats"`
}

// SetPassengersRequest represents the passenger details step
type SetPassengersRequest struct {
	Passengers []PassengerInput `json:"passengers"`
	AddOns     AddOns           `json:"add_ons"`
}
