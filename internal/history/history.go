// Package history reads historical booking requests from the host
// application's database. Three source tables — facility bookings, item
// borrowings, vehicle requests — are queried independently and normalized
// into the unified dataset schema.
//
// The package speaks database/sql and ships two drivers: sqlite3 for
// local use and tests, pgx for a networked deployment. Queries use $N
// placeholders and scalar correlated subqueries so the same SQL runs on
// both.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Store is a read-mostly handle on the historical booking database. One
// Store is opened per pipeline run and closed when the stage finishes.
type Store struct {
	db *sql.DB
}

// Open connects to the historical store and verifies the connection.
// driver is "sqlite3" or "pgx"; dsn is driver-specific (a file path or
// ":memory:" for sqlite, a postgres URL for pgx). A failed ping is fatal
// for the caller: the export stage has no degraded substitute for real
// data.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Debug().Str("driver", driver).Msg("historical store connected")
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the three source tables when they do not exist yet.
// The host application normally owns this schema; Migrate exists for
// tests and self-contained local setups.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS facility_bookings (
            id INTEGER PRIMARY KEY,
            user_id INTEGER NOT NULL,
            facility_id INTEGER NOT NULL,
            booking_date TEXT NOT NULL,
            start_time TEXT,
            end_time TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            request_type TEXT NOT NULL DEFAULT 'facility',
            expected_attendees INTEGER NOT NULL DEFAULT 0,
            actual_attendees INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS item_borrowings (
            id INTEGER PRIMARY KEY,
            user_id INTEGER NOT NULL,
            item_id INTEGER NOT NULL,
            borrow_date TEXT NOT NULL,
            return_date TEXT,
            actual_return_date TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            request_type TEXT NOT NULL DEFAULT 'item',
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS vehicle_requests (
            id INTEGER PRIMARY KEY,
            user_id INTEGER NOT NULL,
            vehicle_id INTEGER NOT NULL,
            request_date TEXT NOT NULL,
            start_time TEXT,
            end_time TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            request_type TEXT NOT NULL DEFAULT 'vehicle',
            passenger_count INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_facility_user_created ON facility_bookings(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_facility_resource_date ON facility_bookings(facility_id, booking_date)`,
		`CREATE INDEX IF NOT EXISTS idx_item_user_created ON item_borrowings(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_vehicle_user_created ON vehicle_requests(user_id, created_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Window bounds an export run by record creation time: [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// DefaultWindow covers the trailing twelve months up to now.
func DefaultWindow(now time.Time) Window {
	return Window{From: now.AddDate(0, -12, 0), To: now}
}
