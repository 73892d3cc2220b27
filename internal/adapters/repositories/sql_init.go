package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax for the underlying driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case DialectSQLite, DialectPostgres:
		return Dialect(driver), nil
	default:
		return "", fmt.Errorf("dialect: unsupported driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders to '$n' for postgres.
// Queries must not contain literal question marks.
func (d Dialect) Rebind(q string) string {
	if d != DialectPostgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Initialize the database schema. The DDL is valid for both SQLite and
// Postgres.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPickupsQuery := `
	CREATE TABLE IF NOT EXISTS pickups (
		id BIGINT PRIMARY KEY,
		external_id TEXT NOT NULL DEFAULT '',
		farmer TEXT NOT NULL,
		farmer_phone TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL,
		quantity_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
		city TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		predicted_price DOUBLE PRECISION,
		quality TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		lat DOUBLE PRECISION,
		lon DOUBLE PRECISION,
		created_at TEXT NOT NULL DEFAULT '',
		transporter TEXT NOT NULL DEFAULT '',
		route_name TEXT NOT NULL DEFAULT '',
		stop_order INTEGER NOT NULL DEFAULT 0,
		progress DOUBLE PRECISION NOT NULL DEFAULT 0,
		transporter_lat DOUBLE PRECISION,
		transporter_lon DOUBLE PRECISION,
		remaining_km DOUBLE PRECISION,
		eta_minutes DOUBLE PRECISION,
		picked_up_at TEXT,
		version BIGINT NOT NULL DEFAULT 0
	);
	`

	createLocalitiesQuery := `
	CREATE TABLE IF NOT EXISTS localities (
		name TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	`

	createPurchasesQuery := `
	CREATE TABLE IF NOT EXISTS purchases (
		id BIGINT PRIMARY KEY,
		pickup_id BIGINT NOT NULL,
		buyer TEXT NOT NULL,
		seller TEXT NOT NULL,
		origin TEXT NOT NULL,
		product TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		quantity_kg DOUBLE PRECISION NOT NULL,
		unit_price DOUBLE PRECISION NOT NULL,
		total_price DOUBLE PRECISION NOT NULL,
		rating INTEGER NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	createStatusIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_pickups_status
	ON pickups(status);
	`

	createTransporterIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_pickups_transporter_status
	ON pickups(transporter, status);
	`

	createSellerIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_purchases_seller
	ON purchases(seller);
	`

	statements := []string{
		createPickupsQuery,
		createLocalitiesQuery,
		createPurchasesQuery,
		createStatusIndexQuery,
		createTransporterIndexQuery,
		createSellerIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
