package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/smarttransit/booking-core/internal/config"
	"github.com/smarttransit/booking-core/internal/database"
	"github.com/spf13/pflag"
)

// bookingTables are cleared children first
var bookingTables = []string{"passengers", "bookings"}

func main() {
	var (
		dbURLFlag string
		withTrips bool
		yes       bool
	)
	pflag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	pflag.BoolVar(&withTrips, "with-trips", false, "also clear trips and vehicles")
	pflag.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	pflag.Parse()

	// Optional .env so secrets stay off the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and --database-url was not provided")
	}

	tables := append([]string{}, bookingTables...)
	if withTrips {
		tables = append(tables, "trips", "vehicles")
	}

	if !yes {
		fmt.Printf("This will delete all rows from: %v\nType 'yes' to continue: ", tables)
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil || answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("Connected to database. Truncating tables...")

	query := "TRUNCATE TABLE "
	for i, t := range tables {
		if i > 0 {
			query += ", "
		}
		query += t
	}
	query += " RESTART IDENTITY CASCADE"

	if _, err := db.Exec(query); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	if !withTrips {
		// seats held by the deleted bookings go back on sale
		if _, err := db.Exec("UPDATE trips t SET available_seats = v.capacity FROM vehicles v WHERE v.id = t.vehicle_id"); err != nil {
			log.Fatalf("failed to reset trip seat counters: %v", err)
		}
	}

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
