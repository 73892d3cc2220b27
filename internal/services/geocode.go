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
	"strings"
)

// GeocodeRegion is appended to pickup addresses before geocoding.
const GeocodeRegion = "Boyacá, Colombia"

// PickupAddress formats the query sent to the geocoder.
func PickupAddress(p *domain.Pickup) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Address, p.City, GeocodeRegion} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// GeocodeMissing fills coordinates for pending pickups that have none.
// Addresses without a match are logged and left unroutable, as are pickups
// changed by someone else while geocoding. It returns the number of
// pickups updated.
func GeocodeMissing(ctx context.Context, repo ports.PickupRepository, geocoder ports.Geocoder) (_ int, err error) {
	defer obs.Time(ctx, "pickups.GeocodeMissing")(&err)

	pickups, err := repo.ListPickups(ctx, ports.PickupFilter{Status: domain.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("geocode missing: %w", err)
	}

	updated := 0
	for _, p := range pickups {
		if p.Coords != nil && geo.Valid(*p.Coords) {
			continue
		}

		c, err := geocoder.Geocode(ctx, PickupAddress(p))
		if errors.Is(err, ports.ErrNoGeocodeResult) {
			log.Printf("req_id=%s op=pickups.GeocodeMissing pickup_id=%d msg=%q",
				obs.RequestID(ctx), p.ID, "no geocode result")
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("geocode missing: pickup %d: %w", p.ID, err)
		}

		p.Coords = &c
		err = repo.UpdatePickups(ctx, p)
		if errors.Is(err, ports.ErrPickupConflict) || errors.Is(err, ports.ErrPickupNotFound) {
			log.Printf("req_id=%s op=pickups.GeocodeMissing pickup_id=%d msg=%q err=%v",
				obs.RequestID(ctx), p.ID, "pickup changed, skipped", err)
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("geocode missing: %w", err)
		}
		updated++
	}

	return updated, nil
}
