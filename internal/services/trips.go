package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

var ErrInvalidSale = errors.New("invalid sale")

// Bounds of the simulated progress made by one AdvanceTrip call.
const (
	MinTripStep = 0.05
	MaxTripStep = 0.15
)

// AdvanceTrip moves the transporter from base toward the pickup along a
// straight line by a random step in [MinTripStep, MaxTripStep). Progress is
// clamped at 1, where the transporter snaps onto the pickup location.
// A trip that already arrived is returned unchanged.
func AdvanceTrip(
	ctx context.Context,
	id int64,
	base domain.Coordinates,
	repo ports.PickupRepository,
	distance ports.DistanceFunc,
	rng *rand.Rand,
) (*domain.Pickup, error) {
	p, err := repo.GetPickup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("advance trip: %w", err)
	}

	if p.Status != domain.StatusAccepted {
		return nil, fmt.Errorf("advance trip %d: status %s: %w", id, p.Status, domain.ErrInvalidTransition)
	}
	if p.Coords == nil {
		return nil, fmt.Errorf("advance trip %d: no coordinates: %w", id, ErrInvalidCoordinate)
	}
	if p.Progress >= 1 {
		return p, nil
	}

	step := MinTripStep + rng.Float64()*(MaxTripStep-MinTripStep)
	progress := min(p.Progress+step, 1)

	dest := *p.Coords
	pos := domain.Coordinates{
		Lat: base.Lat + (dest.Lat-base.Lat)*progress,
		Lon: base.Lon + (dest.Lon-base.Lon)*progress,
	}
	if progress >= 1 {
		pos = dest
	}

	remaining := distance(pos, dest)
	eta := EstimateMinutes(remaining)

	p.Progress = progress
	p.TransporterPos = &pos
	p.RemainingKm = &remaining
	p.EtaMinutes = &eta

	if err := repo.UpdatePickups(ctx, p); err != nil {
		return nil, fmt.Errorf("advance trip %d: %w", id, err)
	}

	return p, nil
}

// MarkPickedUp records that the transporter collected the produce.
func MarkPickedUp(ctx context.Context, id int64, at time.Time, repo ports.PickupRepository) (*domain.Pickup, error) {
	return updatePickup(ctx, id, repo, func(p *domain.Pickup) error { return p.MarkPickedUp(at.UTC()) })
}

// Withdraw takes a collected pickup off the market.
func Withdraw(ctx context.Context, id int64, repo ports.PickupRepository) (*domain.Pickup, error) {
	return updatePickup(ctx, id, repo, (*domain.Pickup).Withdraw)
}

// MaxRating is the best score a buyer can give a seller.
const MaxRating = 5

type SaleRequest struct {
	PickupID int64
	Buyer    string
	// Kilograms bought; 0 buys the whole lot.
	QuantityKg float64
	// 1..MaxRating, or 0 for no rating.
	Rating  int
	Comment string
	At      time.Time
}

// Sale is a recorded purchase and the pickup as left by it.
type Sale struct {
	Purchase *domain.Purchase
	Pickup   *domain.Pickup
}

// Sell records a purchase of a pending or collected pickup. Pending pickups
// are sold by the farmer, collected ones by their transporter. The pickup
// change and the purchase row are stored together and fail with
// ports.ErrPickupConflict if the pickup changed since it was read.
func Sell(
	ctx context.Context,
	req SaleRequest,
	repo ports.PickupRepository,
	purchases ports.PurchaseRepository,
) (_ Sale, err error) {
	defer obs.Time(ctx, "purchases.Sell")(&err)

	buyer := strings.TrimSpace(req.Buyer)
	if buyer == "" {
		return Sale{}, fmt.Errorf("sell pickup %d: buyer must be non-empty: %w", req.PickupID, ErrInvalidSale)
	}
	if req.Rating < 0 || req.Rating > MaxRating {
		return Sale{}, fmt.Errorf("sell pickup %d: rating %d outside 0..%d: %w", req.PickupID, req.Rating, MaxRating, ErrInvalidSale)
	}

	p, err := repo.GetPickup(ctx, req.PickupID)
	if err != nil {
		return Sale{}, fmt.Errorf("sell pickup: %w", err)
	}

	purchase := &domain.Purchase{
		PickupID:  p.ID,
		Buyer:     buyer,
		Product:   p.Product,
		City:      p.City,
		UnitPrice: p.UnitPrice(),
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: req.At.UTC(),
	}
	switch p.Status {
	case domain.StatusPending:
		purchase.Seller, purchase.Origin = p.Farmer, domain.OriginFarm
	case domain.StatusPickedUp:
		purchase.Seller, purchase.Origin = p.Transporter, domain.OriginTransporter
	}

	qty := req.QuantityKg
	if qty == 0 {
		qty = p.QuantityKg
	}
	if purchase.QuantityKg, err = p.Sell(qty); err != nil {
		return Sale{}, err
	}
	purchase.TotalPrice = math.Round(purchase.UnitPrice*purchase.QuantityKg*100) / 100

	if err := purchases.RecordPurchase(ctx, p, purchase); err != nil {
		return Sale{}, fmt.Errorf("sell pickup %d: %w", p.ID, err)
	}

	return Sale{Purchase: purchase, Pickup: p}, nil
}

func updatePickup(
	ctx context.Context,
	id int64,
	repo ports.PickupRepository,
	apply func(*domain.Pickup) error,
) (*domain.Pickup, error) {
	p, err := repo.GetPickup(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(p); err != nil {
		return nil, err
	}

	if err := repo.UpdatePickups(ctx, p); err != nil {
		return nil, fmt.Errorf("update pickup %d: %w", id, err)
	}
	return p, nil
}
