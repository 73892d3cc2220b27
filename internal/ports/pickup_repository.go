package ports

import (
	"agro-route-service/internal/domain"
	"context"
	"errors"
)

var (
	ErrPickupNotFound = errors.New("pickup not found")
	// Returned by conditional writes when a stored pickup changed since it
	// was read. Errors carrying it also match domain.ErrInvalidTransition.
	ErrPickupConflict = errors.New("pickup changed concurrently")
)

// Narrows ListPickups. Zero-valued fields do not filter.
type PickupFilter struct {
	Status      domain.PickupStatus
	Farmer      string
	Transporter string
	RouteName   string
}

// Port: a boundary for loading and storing Pickup entities.
type PickupRepository interface {
	// Retrieve pickups matching the filter, ordered by id.
	ListPickups(ctx context.Context, filter PickupFilter) ([]*domain.Pickup, error)
	// Retrieve one pickup or ErrPickupNotFound.
	GetPickup(ctx context.Context, id int64) (*domain.Pickup, error)
	// Insert or update pickups atomically, regardless of stored versions.
	// Used for imports.
	SavePickups(ctx context.Context, pickups ...*domain.Pickup) error
	// Insert a new pickup and assign its ID.
	CreatePickup(ctx context.Context, pickup *domain.Pickup) error
	// Update pickups atomically when every stored Version still equals the
	// one read; bumps Version on success. Otherwise nothing is written and
	// the error wraps ErrPickupConflict or ErrPickupNotFound.
	UpdatePickups(ctx context.Context, pickups ...*domain.Pickup) error
}
