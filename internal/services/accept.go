package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrZoneChanged = errors.New("zone changed")

type AcceptZoneRequest struct {
	Transporter string
	Base        domain.Coordinates
	RadiusKm    float64
	// 1-based zone number as returned by PlanZones.
	Zone int
	// Pickup ids the caller saw in the zone. When set, the zone is only
	// accepted if re-planning yields exactly these pickups.
	ExpectedIDs []int64
}

// AcceptZone re-plans zones from current data and assigns every pickup of
// the requested zone to the transporter in route order. The assignment is
// stored with a conditional update, so a pickup taken by someone else in
// the meantime fails the whole zone with domain.ErrInvalidTransition.
func AcceptZone(
	ctx context.Context,
	req AcceptZoneRequest,
	repo ports.PickupRepository,
	optimizer *RouteOptimizer,
	cache ports.RouteCache,
) (_ Zone, err error) {
	defer obs.Time(ctx, "zones.AcceptZone")(&err)

	if strings.TrimSpace(req.Transporter) == "" {
		return Zone{}, fmt.Errorf("accept zone: transporter must be non-empty")
	}

	zones, err := PlanZones(ctx, PlanZonesRequest{Base: req.Base, RadiusKm: req.RadiusKm, Group: true}, repo, optimizer, cache)
	if err != nil {
		return Zone{}, fmt.Errorf("accept zone: %w", err)
	}

	if req.Zone < 1 || req.Zone > len(zones) {
		return Zone{}, fmt.Errorf("accept zone %d of %d: %w", req.Zone, len(zones), ErrZoneNotFound)
	}
	zone := zones[req.Zone-1]

	if len(req.ExpectedIDs) > 0 && !sameIDs(req.ExpectedIDs, zone.Pickups) {
		return Zone{}, fmt.Errorf("accept zone %d: expected pickups %v: %w", req.Zone, req.ExpectedIDs, ErrZoneChanged)
	}

	for i, p := range zone.Pickups {
		if err := p.Accept(req.Transporter, zone.Name, i+1, req.Base); err != nil {
			return Zone{}, fmt.Errorf("accept zone %d: %w", req.Zone, err)
		}
	}

	if err := repo.UpdatePickups(ctx, zone.Pickups...); err != nil {
		return Zone{}, fmt.Errorf("accept zone %d: %w", req.Zone, err)
	}

	return zone, nil
}

// sameIDs compares ids with the pickups ignoring order.
func sameIDs(ids []int64, pickups []*domain.Pickup) bool {
	if len(ids) != len(pickups) {
		return false
	}
	want := slices.Clone(ids)
	slices.Sort(want)
	got := make([]int64, 0, len(pickups))
	for _, p := range pickups {
		got = append(got, p.ID)
	}
	slices.Sort(got)
	return slices.Equal(want, got)
}

// AcceptPickup assigns a single pickup as an individual delivery.
func AcceptPickup(
	ctx context.Context,
	id int64,
	transporter string,
	base domain.Coordinates,
	repo ports.PickupRepository,
) (*domain.Pickup, error) {
	p, err := repo.GetPickup(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("accept pickup: %w", err)
	}

	if p.Coords == nil {
		return nil, fmt.Errorf("accept pickup %d: no coordinates: %w", id, ErrInvalidCoordinate)
	}

	if err := p.Accept(transporter, "", 1, base); err != nil {
		return nil, err
	}

	if err := repo.UpdatePickups(ctx, p); err != nil {
		return nil, fmt.Errorf("accept pickup %d: %w", id, err)
	}

	return p, nil
}
