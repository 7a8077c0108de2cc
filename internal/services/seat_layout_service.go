package services

import (
	"fmt"

	"github.com/smarttransit/booking-core/internal/models"
)

// RemainderPolicy decides what happens to seats left over when capacity
// is not a multiple of the row width
type RemainderPolicy string

const (
	// RemainderDiscard drops leftover seats
	RemainderDiscard RemainderPolicy = "discard"
	// RemainderPartialRow exposes leftover seats as a shorter final row
	RemainderPartialRow RemainderPolicy = "partial_row"
)

// DefaultMaxRows is the row cap applied to every vehicle layout
const DefaultMaxRows = 10

var rowColumns = []struct {
	name   string
	paired bool
}{
	{models.SeatColumnA, true},
	{models.SeatColumnB, true},
	{models.SeatColumnC, false},
}

// SeatLayoutService maps a vehicle capacity to labelled seats.
// Output depends only on capacity and policy, so repeated calls agree.
type SeatLayoutService struct {
	maxRows   int
	remainder RemainderPolicy
}

// NewSeatLayoutService creates a layout generator. maxRows of 0 lifts the cap.
func NewSeatLayoutService(maxRows int, remainder RemainderPolicy) *SeatLayoutService {
	if remainder == "" {
		remainder = RemainderDiscard
	}
	return &SeatLayoutService{maxRows: maxRows, remainder: remainder}
}

// MaxRows returns the configured row cap (0 means uncapped)
func (s *SeatLayoutService) MaxRows() int { return s.maxRows }

// Generate returns the seats of a vehicle in row-major order: 1A, 1B, 1C, 2A, ...
func (s *SeatLayoutService) Generate(capacity int) ([]models.Seat, error) {
	if capacity <= 0 {
		return nil, models.NewValidationError("capacity", models.CodeInvalidCapacity,
			fmt.Sprintf("vehicle capacity must be positive, got %d", capacity))
	}

	fullRows := capacity / models.SeatsPerRow
	rows := fullRows
	if s.maxRows > 0 && rows > s.maxRows {
		rows = s.maxRows
	}

	seats := make([]models.Seat, 0, rows*models.SeatsPerRow+models.SeatsPerRow)
	for row := 1; row <= rows; row++ {
		seats = appendRow(seats, row, models.SeatsPerRow)
	}

	leftover := capacity % models.SeatsPerRow
	capReached := s.maxRows > 0 && fullRows >= s.maxRows
	if s.remainder == RemainderPartialRow && leftover > 0 && !capReached {
		seats = appendRow(seats, rows+1, leftover)
	}

	return seats, nil
}

func appendRow(seats []models.Seat, row, width int) []models.Seat {
	for _, col := range rowColumns[:width] {
		seats = append(seats, models.Seat{
			Label:  fmt.Sprintf("%d%s", row, col.name),
			Row:    row,
			Column: col.name,
			Paired: col.paired,
		})
	}
	return seats
}

// Labels returns only the seat labels of a layout
func (s *SeatLayoutService) Labels(capacity int) ([]string, error) {
	seats, err := s.Generate(capacity)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(seats))
	for i, seat := range seats {
		labels[i] = seat.Label
	}
	return labels, nil
}

// labelIndex maps each label to its position in the layout
func (s *SeatLayoutService) labelIndex(capacity int) (map[string]int, error) {
	labels, err := s.Labels(capacity)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	return index, nil
}
