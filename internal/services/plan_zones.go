package services

import (
	"agro-route-service/internal/adapters/mapping"
	"agro-route-service/internal/domain"
	"agro-route-service/internal/geo"
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
)

var ErrZoneNotFound = errors.New("zone not found")

// Zone is a group of nearby pending pickups with its optimized route.
// Pickups are listed in visiting order.
type Zone struct {
	Number           int
	Name             string
	Locality         string
	Route            domain.Route
	Pickups          []*domain.Pickup
	TotalKm          float64
	EstimatedMinutes float64
	TotalKg          float64
	TotalPrice       float64
	Polyline         string
}

// ZoneName is the route name stored on pickups accepted as zone n.
func ZoneName(n int) string {
	return "Zona_" + strconv.Itoa(n)
}

type PlanZonesRequest struct {
	Base     domain.Coordinates
	RadiusKm float64
	// Group=false plans one direct route per pickup instead of zones.
	Group bool
}

type zoneResult struct {
	index int
	route domain.Route
	err   error
}

// PlanZones groups routable pending pickups by proximity and optimizes a
// route from the base through each group. Zones are numbered from 1 in
// descending size order.
func PlanZones(
	ctx context.Context,
	req PlanZonesRequest,
	repo ports.PickupRepository,
	optimizer *RouteOptimizer,
	cache ports.RouteCache,
) (_ []Zone, err error) {
	defer obs.Time(ctx, "plans.PlanZones")(&err)

	if !geo.Valid(req.Base) {
		return nil, fmt.Errorf("plan zones: base: %w", ErrInvalidCoordinate)
	}

	pickups, err := repo.ListPickups(ctx, ports.PickupFilter{Status: domain.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("plan zones: list pickups: %w", err)
	}

	dests := make([]domain.Destination, 0, len(pickups))
	for _, p := range pickups {
		d, ok := p.Destination()
		if !ok || !geo.Valid(d.Coords) {
			continue
		}
		dests = append(dests, d)
	}

	var groups [][]domain.Destination
	if req.Group {
		pg, err := GroupByProximity(dests, req.RadiusKm, optimizer.Distance)
		if err != nil {
			return nil, fmt.Errorf("plan zones: %w", err)
		}
		groups = make([][]domain.Destination, 0, len(pg))
		for _, g := range pg {
			groups = append(groups, g.Members)
		}
	} else {
		groups = make([][]domain.Destination, 0, len(dests))
		for _, d := range dests {
			groups = append(groups, []domain.Destination{d})
		}
	}

	if len(groups) == 0 {
		return []Zone{}, nil
	}

	routes := make([]domain.Route, len(groups))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, 5)
	resultsCh := make(chan zoneResult, len(groups))
	var wg sync.WaitGroup

	for i, members := range groups {
		wg.Add(1)
		go func(i int, members []domain.Destination) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			route, err := optimizeCached(ctx, optimizer, cache, req.Base, members)
			if err != nil {
				cancel()
			}
			resultsCh <- zoneResult{index: i, route: route, err: err}
		}(i, members)
	}

	wg.Wait()
	close(resultsCh)

	var zoneErr error
	for res := range resultsCh {
		if res.err != nil {
			// Prefer the root cause over cancellations it triggered.
			if zoneErr == nil || errors.Is(zoneErr, context.Canceled) {
				zoneErr = fmt.Errorf("plan zones: zone %d: %w", res.index+1, res.err)
			}
			continue
		}
		routes[res.index] = res.route
	}
	if zoneErr != nil {
		return nil, zoneErr
	}

	zones := make([]Zone, 0, len(groups))
	for i, route := range routes {
		z := newZone(i+1, route)
		if !req.Group {
			z.Name = ""
		}
		zones = append(zones, z)
	}

	return zones, nil
}

func newZone(n int, route domain.Route) Zone {
	z := Zone{
		Number:           n,
		Name:             ZoneName(n),
		Route:            route,
		Pickups:          make([]*domain.Pickup, 0, len(route.Stops)),
		TotalKm:          route.TotalKm,
		EstimatedMinutes: EstimateMinutes(route.TotalKm),
		Polyline:         mapping.EncodePolyline(route),
	}
	for _, s := range route.Stops {
		if z.Locality == "" {
			z.Locality = s.Locality
		}
		p, ok := s.Payload.(*domain.Pickup)
		if !ok {
			continue
		}
		z.Pickups = append(z.Pickups, p)
		z.TotalKg += p.QuantityKg
		z.TotalPrice += p.Price
	}
	return z
}

// RouteCacheKey digests the inputs that determine an optimized route:
// the exact-search threshold, the origin and the destinations in order.
// Destination order is part of the key because it decides ties.
func RouteCacheKey(origin domain.Coordinates, dests []domain.Destination, exactStops int) string {
	h := sha256.New()
	fmt.Fprintf(h, "exact=%d|%.6f,%.6f", exactStops, origin.Lat, origin.Lon)
	for _, d := range dests {
		fmt.Fprintf(h, "|%s:%.6f,%.6f", d.ID, d.Coords.Lat, d.Coords.Lon)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Optimize through cache when one is configured. Cache failures are logged
// and never fail the computation.
func optimizeCached(
	ctx context.Context,
	optimizer *RouteOptimizer,
	cache ports.RouteCache,
	origin domain.Coordinates,
	dests []domain.Destination,
) (domain.Route, error) {
	if err := ctx.Err(); err != nil {
		return domain.Route{}, err
	}

	if cache == nil || len(dests) < 2 {
		return optimizer.Optimize(origin, dests)
	}

	key := RouteCacheKey(origin, dests, optimizer.ExactThreshold())
	cached, ok, err := cache.Get(ctx, key)
	if err != nil {
		log.Printf("req_id=%s op=routes.cache.Get key=%s err=%v", obs.RequestID(ctx), key, err)
	}
	if ok {
		if route, ok := routeFromCache(origin, dests, cached); ok {
			return route, nil
		}
	}

	route, err := optimizer.Optimize(origin, dests)
	if err != nil {
		return domain.Route{}, err
	}

	entry := ports.CachedRoute{StopIDs: route.StopIDs(), TotalKm: route.TotalKm, Method: route.Method}
	if err := cache.Put(ctx, key, entry); err != nil {
		log.Printf("req_id=%s op=routes.cache.Put key=%s err=%v", obs.RequestID(ctx), key, err)
	}
	return route, nil
}

func routeFromCache(origin domain.Coordinates, dests []domain.Destination, cached ports.CachedRoute) (domain.Route, bool) {
	if len(cached.StopIDs) != len(dests) {
		return domain.Route{}, false
	}

	byID := make(map[string]domain.Destination, len(dests))
	for _, d := range dests {
		byID[d.ID] = d
	}

	stops := make([]domain.Destination, 0, len(dests))
	for _, id := range cached.StopIDs {
		d, ok := byID[id]
		if !ok {
			return domain.Route{}, false
		}
		delete(byID, id)
		stops = append(stops, d)
	}

	return domain.Route{Origin: origin, Stops: stops, TotalKm: cached.TotalKm, Method: cached.Method}, true
}
