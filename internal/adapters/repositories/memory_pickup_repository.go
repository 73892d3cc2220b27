package repositories

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// In-memory implementation of the PickupRepository and PurchaseRepository
// ports. Stored values are copied on the way in and out so callers never
// share state.
type MemoryPickupRepository struct {
	mu        sync.RWMutex
	pickups   map[int64]*domain.Pickup
	purchases []*domain.Purchase
}

func NewMemoryPickupRepository(pickups ...*domain.Pickup) *MemoryPickupRepository {
	r := &MemoryPickupRepository{pickups: make(map[int64]*domain.Pickup, len(pickups))}
	for _, p := range pickups {
		r.pickups[p.ID] = clonePickup(p)
	}
	return r
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func clonePickup(p *domain.Pickup) *domain.Pickup {
	c := *p
	c.PredictedPrice = clonePtr(p.PredictedPrice)
	c.Coords = clonePtr(p.Coords)
	c.TransporterPos = clonePtr(p.TransporterPos)
	c.RemainingKm = clonePtr(p.RemainingKm)
	c.EtaMinutes = clonePtr(p.EtaMinutes)
	c.PickedUpAt = clonePtr(p.PickedUpAt)
	return &c
}

func (r *MemoryPickupRepository) ListPickups(_ context.Context, filter ports.PickupFilter) ([]*domain.Pickup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Pickup, 0, len(r.pickups))
	for _, p := range r.pickups {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Farmer != "" && p.Farmer != filter.Farmer {
			continue
		}
		if filter.Transporter != "" && p.Transporter != filter.Transporter {
			continue
		}
		if filter.RouteName != "" && p.RouteName != filter.RouteName {
			continue
		}
		out = append(out, clonePickup(p))
	}

	slices.SortFunc(out, func(a, b *domain.Pickup) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *MemoryPickupRepository) GetPickup(_ context.Context, id int64) (*domain.Pickup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pickups[id]
	if !ok {
		return nil, fmt.Errorf("get pickup %d: %w", id, ports.ErrPickupNotFound)
	}
	return clonePickup(p), nil
}

func (r *MemoryPickupRepository) SavePickups(_ context.Context, pickups ...*domain.Pickup) error {
	for _, p := range pickups {
		if err := validPickup(p); err != nil {
			return fmt.Errorf("save pickups: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pickups {
		c := clonePickup(p)
		if old, ok := r.pickups[p.ID]; ok {
			c.Version = old.Version + 1
		}
		r.pickups[p.ID] = c
	}
	return nil
}

func (r *MemoryPickupRepository) CreatePickup(_ context.Context, p *domain.Pickup) error {
	if p == nil {
		return fmt.Errorf("create pickup: nil pickup")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var id int64
	for existing := range r.pickups {
		id = max(id, existing)
	}
	p.ID, p.Version = id+1, 0
	r.pickups[p.ID] = clonePickup(p)
	return nil
}

func (r *MemoryPickupRepository) UpdatePickups(_ context.Context, pickups ...*domain.Pickup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkVersions(pickups); err != nil {
		return fmt.Errorf("update pickups: %w", err)
	}
	r.applyUpdates(pickups)
	return nil
}

func (r *MemoryPickupRepository) checkVersions(pickups []*domain.Pickup) error {
	for _, p := range pickups {
		if err := validPickup(p); err != nil {
			return err
		}
		stored, ok := r.pickups[p.ID]
		if !ok {
			return fmt.Errorf("update id=%d: %w", p.ID, ports.ErrPickupNotFound)
		}
		if stored.Version != p.Version {
			return conflictError(p)
		}
	}
	return nil
}

func (r *MemoryPickupRepository) applyUpdates(pickups []*domain.Pickup) {
	bumpVersions(pickups)
	for _, p := range pickups {
		r.pickups[p.ID] = clonePickup(p)
	}
}

func (r *MemoryPickupRepository) RecordPurchase(_ context.Context, pickup *domain.Pickup, purchase *domain.Purchase) error {
	if pickup == nil || purchase == nil {
		return fmt.Errorf("record purchase: nil pickup or purchase")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkVersions([]*domain.Pickup{pickup}); err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	r.applyUpdates([]*domain.Pickup{pickup})

	purchase.ID = int64(len(r.purchases)) + 1
	c := *purchase
	r.purchases = append(r.purchases, &c)
	return nil
}

func (r *MemoryPickupRepository) ListPurchases(_ context.Context, filter ports.PurchaseFilter) ([]*domain.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Purchase, 0, len(r.purchases))
	for _, p := range r.purchases {
		if filter.Buyer != "" && p.Buyer != filter.Buyer {
			continue
		}
		if filter.Seller != "" && p.Seller != filter.Seller {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	return out, nil
}
