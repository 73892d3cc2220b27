package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/geo"
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
)

var ErrInvalidPickup = errors.New("invalid pickup")

// DefaultQuality is assigned to lots registered without a quality grade.
const DefaultQuality = "Buena"

type RegisterPickupRequest struct {
	Farmer      string
	FarmerPhone string
	Product     string
	QuantityKg  float64
	City        string
	Address     string
	// Asking price for the whole lot. Zero uses PredictedPrice.
	Price          float64
	PredictedPrice *float64
	Quality        string
	// Known location. When nil the address is geocoded.
	Coords *domain.Coordinates
}

// RegisterPickup publishes a farmer's lot as a pending pickup. Missing
// coordinates are looked up with geocoder when one is configured; a failed
// lookup is logged and leaves the pickup unroutable until GeocodeMissing
// runs again.
func RegisterPickup(
	ctx context.Context,
	req RegisterPickupRequest,
	now time.Time,
	repo ports.PickupRepository,
	geocoder ports.Geocoder,
) (_ *domain.Pickup, err error) {
	defer obs.Time(ctx, "pickups.RegisterPickup")(&err)

	p := &domain.Pickup{
		ExternalID:     "CAMP-" + now.UTC().Format("20060102150405"),
		Farmer:         strings.TrimSpace(req.Farmer),
		FarmerPhone:    strings.TrimSpace(req.FarmerPhone),
		Product:        strings.TrimSpace(req.Product),
		QuantityKg:     req.QuantityKg,
		City:           strings.TrimSpace(req.City),
		Address:        strings.TrimSpace(req.Address),
		Price:          req.Price,
		PredictedPrice: req.PredictedPrice,
		Quality:        strings.TrimSpace(req.Quality),
		Status:         domain.StatusPending,
		CreatedAt:      now.UTC(),
	}
	if p.Quality == "" {
		p.Quality = DefaultQuality
	}
	if p.Price == 0 && p.PredictedPrice != nil {
		p.Price = *p.PredictedPrice
	}

	if err := validateRegistration(p); err != nil {
		return nil, fmt.Errorf("register pickup: %w", err)
	}

	switch {
	case req.Coords != nil:
		if !geo.Valid(*req.Coords) {
			return nil, fmt.Errorf("register pickup: %w", ErrInvalidCoordinate)
		}
		c := *req.Coords
		p.Coords = &c
	case geocoder != nil:
		c, err := geocoder.Geocode(ctx, PickupAddress(p))
		if err != nil {
			log.Printf("req_id=%s op=pickups.RegisterPickup farmer=%q msg=%q err=%v",
				obs.RequestID(ctx), p.Farmer, "geocode failed", err)
			break
		}
		p.Coords = &c
	}

	if err := repo.CreatePickup(ctx, p); err != nil {
		return nil, fmt.Errorf("register pickup: %w", err)
	}
	return p, nil
}

func validateRegistration(p *domain.Pickup) error {
	required := []struct{ field, value string }{
		{"farmer", p.Farmer},
		{"product", p.Product},
		{"city", p.City},
		{"address", p.Address},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s must be non-empty: %w", r.field, ErrInvalidPickup)
		}
	}
	if !(p.QuantityKg > 0) || math.IsInf(p.QuantityKg, 0) {
		return fmt.Errorf("quantity %v kg: %w", p.QuantityKg, ErrInvalidPickup)
	}
	if !(p.Price > 0) || math.IsInf(p.Price, 0) {
		return fmt.Errorf("price %v: %w", p.Price, ErrInvalidPickup)
	}
	if p.PredictedPrice != nil && (*p.PredictedPrice < 0 || math.IsNaN(*p.PredictedPrice)) {
		return fmt.Errorf("predicted price %v: %w", *p.PredictedPrice, ErrInvalidPickup)
	}
	return nil
}
