package repositories

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Column order shared by scanPickup and pickupArgs.
var pickupFields = []string{
	"id", "external_id", "farmer", "farmer_phone", "product", "quantity_kg", "city", "address",
	"price", "predicted_price", "quality", "status", "lat", "lon", "created_at",
	"transporter", "route_name", "stop_order", "progress",
	"transporter_lat", "transporter_lon", "remaining_km", "eta_minutes", "picked_up_at",
	"version",
}

var (
	pickupColumns      = " " + strings.Join(pickupFields, ", ")
	pickupPlaceholders = strings.TrimSuffix(strings.Repeat("?, ", len(pickupFields)), ", ")
)

// SET clause for every column except id and version.
func pickupAssignments(value func(col string) string) string {
	sets := make([]string, 0, len(pickupFields))
	for _, col := range pickupFields {
		if col == "id" || col == "version" {
			continue
		}
		sets = append(sets, col+" = "+value(col))
	}
	return strings.Join(sets, ",\n\t\t")
}

// SQL-backed implementation of the PickupRepository port.
type SQLPickupRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLPickupRepository(db *sql.DB, dialect Dialect) *SQLPickupRepository {
	return &SQLPickupRepository{DB: db, Dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPickup(row rowScanner) (*domain.Pickup, error) {
	var (
		p                       domain.Pickup
		status, createdAt       string
		predicted, lat, lon     sql.NullFloat64
		tLat, tLon, remain, eta sql.NullFloat64
		pickedUpAt              sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.ExternalID, &p.Farmer, &p.FarmerPhone, &p.Product, &p.QuantityKg, &p.City, &p.Address,
		&p.Price, &predicted, &p.Quality, &status, &lat, &lon, &createdAt,
		&p.Transporter, &p.RouteName, &p.StopOrder, &p.Progress,
		&tLat, &tLon, &remain, &eta, &pickedUpAt,
		&p.Version,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PickupStatus(status)
	if predicted.Valid {
		p.PredictedPrice = &predicted.Float64
	}
	if lat.Valid && lon.Valid {
		p.Coords = &domain.Coordinates{Lat: lat.Float64, Lon: lon.Float64}
	}
	if tLat.Valid && tLon.Valid {
		p.TransporterPos = &domain.Coordinates{Lat: tLat.Float64, Lon: tLon.Float64}
	}
	if remain.Valid {
		p.RemainingKm = &remain.Float64
	}
	if eta.Valid {
		p.EtaMinutes = &eta.Float64
	}

	if createdAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for pickup %d: %w", p.ID, err)
		}
		p.CreatedAt = ts
	}
	if pickedUpAt.Valid && pickedUpAt.String != "" {
		ts, err := time.Parse(time.RFC3339Nano, pickedUpAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse picked_up_at for pickup %d: %w", p.ID, err)
		}
		p.PickedUpAt = &ts
	}

	return &p, nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Values in pickupFields order.
func pickupArgs(p *domain.Pickup) []any {
	var lat, lon, tLat, tLon any
	if p.Coords != nil {
		lat, lon = p.Coords.Lat, p.Coords.Lon
	}
	if p.TransporterPos != nil {
		tLat, tLon = p.TransporterPos.Lat, p.TransporterPos.Lon
	}

	createdAt := ""
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	return []any{
		p.ID, p.ExternalID, p.Farmer, p.FarmerPhone, p.Product, p.QuantityKg, p.City, p.Address,
		p.Price, nullableFloat(p.PredictedPrice), p.Quality, string(p.Status), lat, lon, createdAt,
		p.Transporter, p.RouteName, p.StopOrder, p.Progress,
		tLat, tLon, nullableFloat(p.RemainingKm), nullableFloat(p.EtaMinutes), nullableTime(p.PickedUpAt),
		p.Version,
	}
}

func validPickup(p *domain.Pickup) error {
	if p == nil {
		return errors.New("nil pickup")
	}
	if p.ID <= 0 {
		return fmt.Errorf("invalid id %d", p.ID)
	}
	return nil
}

// Return pickups matching filter ordered by id.
func (s *SQLPickupRepository) ListPickups(
	ctx context.Context,
	filter ports.PickupFilter,
) (_ []*domain.Pickup, err error) {
	defer obs.Time(ctx, "pickups.repo.ListPickups")(&err)

	if s.DB == nil {
		return nil, errors.New("sql pickup repository: DB is nil")
	}

	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Farmer != "" {
		where = append(where, "farmer = ?")
		args = append(args, filter.Farmer)
	}
	if filter.Transporter != "" {
		where = append(where, "transporter = ?")
		args = append(args, filter.Transporter)
	}
	if filter.RouteName != "" {
		where = append(where, "route_name = ?")
		args = append(args, filter.RouteName)
	}

	query := "SELECT" + pickupColumns + "\n\tFROM pickups"
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY id;"

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list pickups: query pickups table: %w", err)
	}
	defer rows.Close()

	pickups := make([]*domain.Pickup, 0, 64)
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("list pickups: scan row: %w", err)
		}
		pickups = append(pickups, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pickups: row iteration: %w", err)
	}

	return pickups, nil
}

// Return a single pickup or ports.ErrPickupNotFound.
func (s *SQLPickupRepository) GetPickup(ctx context.Context, id int64) (*domain.Pickup, error) {
	if s.DB == nil {
		return nil, errors.New("sql pickup repository: DB is nil")
	}

	query := "SELECT" + pickupColumns + "\n\tFROM pickups\n\tWHERE id = ?;"
	p, err := scanPickup(s.DB.QueryRowContext(ctx, s.Dialect.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get pickup %d: %w", id, ports.ErrPickupNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pickup %d: %w", id, err)
	}

	return p, nil
}

// Insert or update pickups in a single transaction. Existing rows get their
// version bumped so in-flight conditional updates notice the overwrite.
func (s *SQLPickupRepository) SavePickups(ctx context.Context, pickups ...*domain.Pickup) (err error) {
	defer obs.Time(ctx, "pickups.repo.SavePickups")(&err)

	if s.DB == nil {
		return errors.New("sql pickup repository: DB is nil")
	}

	if len(pickups) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save pickups: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO pickups (`+pickupColumns+`)
	VALUES (`+pickupPlaceholders+`)
	ON CONFLICT (id) DO UPDATE
	SET `+pickupAssignments(func(col string) string { return "EXCLUDED." + col })+`,
		version = pickups.version + 1;
	`))
	if err != nil {
		return fmt.Errorf("save pickups: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range pickups {
		if err := validPickup(p); err != nil {
			return fmt.Errorf("save pickups: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, pickupArgs(p)...); err != nil {
			return fmt.Errorf("save pickups: upsert id=%d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save pickups: commit: %w", err)
	}

	return nil
}

// Insert a new pickup with the next free id.
func (s *SQLPickupRepository) CreatePickup(ctx context.Context, p *domain.Pickup) (err error) {
	defer obs.Time(ctx, "pickups.repo.CreatePickup")(&err)

	if s.DB == nil {
		return errors.New("sql pickup repository: DB is nil")
	}
	if p == nil {
		return errors.New("create pickup: nil pickup")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create pickup: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM pickups;").Scan(&id); err != nil {
		return fmt.Errorf("create pickup: next id: %w", err)
	}

	row := *p
	row.ID = id
	row.Version = 0

	// No ON CONFLICT: a concurrent insert of the same id fails instead of
	// overwriting.
	query := "INSERT INTO pickups (" + pickupColumns + ")\n\tVALUES (" + pickupPlaceholders + ");"
	if _, err := tx.ExecContext(ctx, s.Dialect.Rebind(query), pickupArgs(&row)...); err != nil {
		return fmt.Errorf("create pickup: insert id=%d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create pickup: commit: %w", err)
	}

	p.ID, p.Version = row.ID, row.Version
	return nil
}

// Apply pickups only where the stored version matches, all or nothing.
func (s *SQLPickupRepository) UpdatePickups(ctx context.Context, pickups ...*domain.Pickup) (err error) {
	defer obs.Time(ctx, "pickups.repo.UpdatePickups")(&err)

	if s.DB == nil {
		return errors.New("sql pickup repository: DB is nil")
	}
	if len(pickups) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update pickups: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updatePickupsTx(ctx, tx, s.Dialect, pickups); err != nil {
		return fmt.Errorf("update pickups: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update pickups: commit: %w", err)
	}

	bumpVersions(pickups)
	return nil
}

// updatePickupsTx runs guarded updates inside tx. Callers bump versions
// after a successful commit.
func updatePickupsTx(ctx context.Context, tx *sql.Tx, dialect Dialect, pickups []*domain.Pickup) error {
	stmt, err := tx.PrepareContext(ctx, dialect.Rebind(`
	UPDATE pickups
	SET `+pickupAssignments(func(string) string { return "?" })+`,
		version = version + 1
	WHERE id = ? AND version = ?;
	`))
	if err != nil {
		return fmt.Errorf("db prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range pickups {
		if err := validPickup(p); err != nil {
			return err
		}

		// pickupArgs without id and version, then the WHERE arguments.
		all := pickupArgs(p)
		args := append(all[1:len(all)-1:len(all)-1], p.ID, p.Version)

		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return fmt.Errorf("update id=%d: %w", p.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update id=%d: rows affected: %w", p.ID, err)
		}
		if n == 1 {
			continue
		}

		var one int
		err = tx.QueryRowContext(ctx, dialect.Rebind("SELECT 1 FROM pickups WHERE id = ?;"), p.ID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update id=%d: %w", p.ID, ports.ErrPickupNotFound)
		}
		if err != nil {
			return fmt.Errorf("update id=%d: %w", p.ID, err)
		}
		return conflictError(p)
	}

	return nil
}

func conflictError(p *domain.Pickup) error {
	return fmt.Errorf("update id=%d version=%d: %w: %w", p.ID, p.Version, ports.ErrPickupConflict, domain.ErrInvalidTransition)
}

func bumpVersions(pickups []*domain.Pickup) {
	for _, p := range pickups {
		p.Version++
	}
}
