package ports

import (
	"agro-route-service/internal/domain"
	"context"
)

// Narrows ListPurchases. Zero-valued fields do not filter.
type PurchaseFilter struct {
	Buyer  string
	Seller string
}

// Port: purchase history.
type PurchaseRepository interface {
	// Store purchase and the updated pickup in one transaction, with the
	// same version check as PickupRepository.UpdatePickups. Assigns the
	// purchase ID.
	RecordPurchase(ctx context.Context, pickup *domain.Pickup, purchase *domain.Purchase) error
	// Retrieve purchases ordered by id.
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]*domain.Purchase, error)
}
