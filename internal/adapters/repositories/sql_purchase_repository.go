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

const purchaseColumns = `
	id, pickup_id, buyer, seller, origin, product, city,
	quantity_kg, unit_price, total_price, rating, comment, created_at`

// SQL-backed implementation of the PurchaseRepository port. It shares the
// pickups table with SQLPickupRepository.
type SQLPurchaseRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLPurchaseRepository(db *sql.DB, dialect Dialect) *SQLPurchaseRepository {
	return &SQLPurchaseRepository{DB: db, Dialect: dialect}
}

// Record the purchase and the pickup change it caused in one transaction.
func (s *SQLPurchaseRepository) RecordPurchase(
	ctx context.Context,
	pickup *domain.Pickup,
	purchase *domain.Purchase,
) (err error) {
	defer obs.Time(ctx, "purchases.repo.RecordPurchase")(&err)

	if s.DB == nil {
		return errors.New("sql purchase repository: DB is nil")
	}
	if pickup == nil || purchase == nil {
		return errors.New("record purchase: nil pickup or purchase")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record purchase: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := updatePickupsTx(ctx, tx, s.Dialect, []*domain.Pickup{pickup}); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) + 1 FROM purchases;").Scan(&id); err != nil {
		return fmt.Errorf("record purchase: next id: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.Dialect.Rebind(`
	INSERT INTO purchases (`+purchaseColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`),
		id, purchase.PickupID, purchase.Buyer, purchase.Seller, string(purchase.Origin), purchase.Product, purchase.City,
		purchase.QuantityKg, purchase.UnitPrice, purchase.TotalPrice, purchase.Rating, purchase.Comment,
		purchase.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record purchase: insert id=%d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record purchase: commit: %w", err)
	}

	purchase.ID = id
	bumpVersions([]*domain.Pickup{pickup})
	return nil
}

// Return purchases matching filter ordered by id.
func (s *SQLPurchaseRepository) ListPurchases(
	ctx context.Context,
	filter ports.PurchaseFilter,
) (_ []*domain.Purchase, err error) {
	defer obs.Time(ctx, "purchases.repo.ListPurchases")(&err)

	if s.DB == nil {
		return nil, errors.New("sql purchase repository: DB is nil")
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filter.Buyer != "" {
		where = append(where, "buyer = ?")
		args = append(args, filter.Buyer)
	}
	if filter.Seller != "" {
		where = append(where, "seller = ?")
		args = append(args, filter.Seller)
	}

	query := "SELECT" + purchaseColumns + "\n\tFROM purchases"
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY id;"

	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list purchases: query purchases table: %w", err)
	}
	defer rows.Close()

	purchases := make([]*domain.Purchase, 0, 16)
	for rows.Next() {
		var (
			p              domain.Purchase
			origin, create string
		)
		err := rows.Scan(
			&p.ID, &p.PickupID, &p.Buyer, &p.Seller, &origin, &p.Product, &p.City,
			&p.QuantityKg, &p.UnitPrice, &p.TotalPrice, &p.Rating, &p.Comment, &create,
		)
		if err != nil {
			return nil, fmt.Errorf("list purchases: scan row: %w", err)
		}

		p.Origin = domain.PurchaseOrigin(origin)
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, create); err != nil {
			return nil, fmt.Errorf("list purchases: parse created_at for purchase %d: %w", p.ID, err)
		}
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list purchases: row iteration: %w", err)
	}

	return purchases, nil
}
