package models

import "strings"

// Seat columns within a row. A and B are paired, C is the single seat.
const (
	SeatColumnA = "A"
	SeatColumnB = "B"
	SeatColumnC = "C"
)

// SeatsPerRow is the number of seats in a full row
const SeatsPerRow = 3

// Seat is a derived, labelled position in a vehicle layout
type Seat struct {
	Label  string `json:"label"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Paired bool   `json:"paired"`
}

// SeatState is a seat with its current availability on a trip
type SeatState struct {
	Seat
	Available bool `json:"available"`
	Held      bool `json:"held,omitempty"`
}

// SeatAvailability is the seat map of one trip
type SeatAvailability struct {
	TripID         string      `json:"trip_id"`
	Capacity       int         `json:"capacity"`
	AvailableSeats int         `json:"available_seats"`
	Seats          []SeatState `json:"seats"`
}

// AsMap returns seat label -> available
func (a *SeatAvailability) AsMap() map[string]bool {
	m := make(map[string]bool, len(a.Seats))
	for _, s := range a.Seats {
		m[s.Label] = s.Available
	}
	return m
}

// FreeLabels returns the available labels in layout order
func (a *SeatAvailability) FreeLabels() []string {
	var labels []string
	for _, s := range a.Seats {
		if s.Available {
			labels = append(labels, s.Label)
		}
	}
	return labels
}

// NormalizeSeatLabel upper-cases and trims a seat label ("3b " -> "3B")
func NormalizeSeatLabel(label string) string {
	return strings.ToUpper(strings.TrimSpace(label))
}
