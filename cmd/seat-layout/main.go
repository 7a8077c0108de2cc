package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/smarttransit/booking-core/internal/models"
	"github.com/smarttransit/booking-core/internal/services"
	"github.com/spf13/pflag"
)

func main() {
	var (
		capacity  int
		maxRows   int
		remainder string
		asJSON    bool
	)
	pflag.IntVarP(&capacity, "capacity", "c", 30, "vehicle seating capacity")
	pflag.IntVar(&maxRows, "max-rows", services.DefaultMaxRows, "row cap (0 for none)")
	pflag.StringVar(&remainder, "remainder", string(services.RemainderDiscard), "leftover seat policy: discard or partial_row")
	pflag.BoolVar(&asJSON, "json", false, "print the layout as JSON")
	pflag.Parse()

	layout := services.NewSeatLayoutService(maxRows, services.RemainderPolicy(remainder))
	seats, err := layout.Generate(capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(seats); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Capacity %d, %d bookable seats (max rows %d, remainder %s)\n\n", capacity, len(seats), maxRows, remainder)
	printGrid(seats)
}

// printGrid draws rows as "A B | C" with the aisle between the pair and the single seat
func printGrid(seats []models.Seat) {
	rows := map[int]map[string]string{}
	last := 0
	for _, s := range seats {
		if rows[s.Row] == nil {
			rows[s.Row] = map[string]string{}
		}
		rows[s.Row][s.Column] = s.Label
		if s.Row > last {
			last = s.Row
		}
	}

	cell := func(row map[string]string, col string) string {
		if label, ok := row[col]; ok {
			return fmt.Sprintf("%-4s", label)
		}
		return strings.Repeat(" ", 4)
	}

	for r := 1; r <= last; r++ {
		row := rows[r]
		fmt.Printf("%s%s |  %s\n", cell(row, models.SeatColumnA), cell(row, models.SeatColumnB), cell(row, models.SeatColumnC))
	}
}
