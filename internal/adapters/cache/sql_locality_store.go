package cache

import (
	"agro-route-service/internal/adapters/repositories"
	"agro-route-service/internal/domain"
	"agro-route-service/internal/platform/obs"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SQLLocalityStore persists the locality table (name -> coordinates) so a
// server without a YAML file can still resolve transporter bases.
type SQLLocalityStore struct {
	DB      *sql.DB
	Dialect repositories.Dialect
}

func NewSQLLocalityStore(db *sql.DB, dialect repositories.Dialect) *SQLLocalityStore {
	return &SQLLocalityStore{DB: db, Dialect: dialect}
}

// Fetch stored coordinates for the given names. Missing names are absent
// from the result.
func (s *SQLLocalityStore) GetMany(
	ctx context.Context,
	names []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "localities.store.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("locality store: db is nil")
	}

	seen := map[string]struct{}{}
	uniq := make([]any, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		uniq = append(uniq, n)
	}

	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(uniq)), ", ")
	q := `
	SELECT name, lat, lon
	FROM localities
	WHERE name IN (` + placeholders + `);
	`

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(q), uniq...)
	if err != nil {
		return nil, fmt.Errorf("get localities: query localities table: %w", err)
	}
	defer rows.Close()

	return scanLocalities(rows, len(uniq))
}

// ListAll returns every stored locality.
func (s *SQLLocalityStore) ListAll(ctx context.Context) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "localities.store.ListAll")(&err)

	if s.DB == nil {
		return nil, errors.New("locality store: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT name, lat, lon FROM localities ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list localities: query localities table: %w", err)
	}
	defer rows.Close()

	return scanLocalities(rows, 16)
}

func scanLocalities(rows *sql.Rows, sizeHint int) (map[string]domain.Coordinates, error) {
	out := make(map[string]domain.Coordinates, sizeHint)
	for rows.Next() {
		var name string
		var lat, lon float64
		if err := rows.Scan(&name, &lat, &lon); err != nil {
			return nil, fmt.Errorf("scan localities: %w", err)
		}
		out[name] = domain.Coordinates{Lat: lat, Lon: lon}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan localities: row iteration: %w", err)
	}
	return out, nil
}

// Store name -> coordinate mappings, replacing existing rows.
func (s *SQLLocalityStore) PutMany(ctx context.Context, entries map[string]domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("locality store: db is nil")
	}

	if len(entries) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put localities: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO localities (name, lat, lon)
	VALUES (?, ?, ?)
	ON CONFLICT (name) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`))
	if err != nil {
		return fmt.Errorf("put localities: db prepare: %w", err)
	}
	defer stmt.Close()

	for name, c := range entries {
		name = strings.TrimSpace(name)
		if name == "" {
			return errors.New("put localities: empty name")
		}

		if _, err := stmt.ExecContext(ctx, name, c.Lat, c.Lon); err != nil {
			return fmt.Errorf("put localities name=%q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put localities commit: %w", err)
	}

	return nil
}
