package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/geo"
	"agro-route-service/internal/ports"
	"errors"
	"fmt"
	"math"
)

// MaxExactStops is the largest destination count solved by full permutation
// search. 8! = 40320 orderings is the practical ceiling.
const MaxExactStops = 8

// AverageSpeedKmh converts route distance into an estimated travel time.
const AverageSpeedKmh = 40.0

var (
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrNonFiniteDistance = errors.New("non-finite route distance")
)

// RouteOptimizer orders pickup destinations to keep travel distance low.
//
// Small instances are solved exactly; larger ones fall back to the
// nearest-neighbor heuristic. The optimizer holds no mutable state and is
// safe for concurrent use.
type RouteOptimizer struct {
	distance      ports.DistanceFunc
	maxExactStops int
}

type OptimizerOption func(*RouteOptimizer)

// WithExactThreshold overrides MaxExactStops. Values above 10 make the exact
// solver impractically slow.
func WithExactThreshold(n int) OptimizerOption {
	return func(o *RouteOptimizer) { o.maxExactStops = n }
}

// NewRouteOptimizer returns an optimizer using distance, or great-circle
// distance when distance is nil.
func NewRouteOptimizer(distance ports.DistanceFunc, opts ...OptimizerOption) *RouteOptimizer {
	if distance == nil {
		distance = geo.Haversine
	}

	o := &RouteOptimizer{distance: distance, maxExactStops: MaxExactStops}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExactThreshold is the largest stop count solved exactly.
func (o *RouteOptimizer) ExactThreshold() int {
	return o.maxExactStops
}

// Distance exposes the configured distance function.
func (o *RouteOptimizer) Distance(a, b domain.Coordinates) float64 {
	return o.distance(a, b)
}

// Optimize computes a visiting order for destinations starting at origin.
//
// Dispatch is purely by count: none yields an empty route, one a direct
// route, up to MaxExactStops the exact solver and anything larger the
// nearest-neighbor heuristic.
func (o *RouteOptimizer) Optimize(origin domain.Coordinates, destinations []domain.Destination) (domain.Route, error) {
	if !geo.Valid(origin) {
		return domain.Route{}, fmt.Errorf("optimize route: origin (%v, %v): %w", origin.Lat, origin.Lon, ErrInvalidCoordinate)
	}
	for _, d := range destinations {
		if !geo.Valid(d.Coords) {
			return domain.Route{}, fmt.Errorf("optimize route: destination %q: %w", d.ID, ErrInvalidCoordinate)
		}
	}

	var (
		route domain.Route
		err   error
	)

	switch n := len(destinations); {
	case n == 0:
		return domain.Route{
			Origin:  origin,
			Stops:   []domain.Destination{},
			TotalKm: 0,
			Method:  domain.RouteMethodNone,
		}, nil
	case n == 1:
		route = domain.Route{
			Origin:  origin,
			Stops:   []domain.Destination{destinations[0]},
			TotalKm: o.distance(origin, destinations[0].Coords),
			Method:  domain.RouteMethodDirect,
		}
	case n <= o.maxExactStops:
		route, err = solveExact(origin, destinations, o.distance)
	default:
		route, err = solveNearestNeighbor(origin, destinations, o.distance)
	}
	if err != nil {
		return domain.Route{}, fmt.Errorf("optimize route: %w", err)
	}

	if math.IsNaN(route.TotalKm) || math.IsInf(route.TotalKm, 0) {
		return domain.Route{}, fmt.Errorf("optimize route: total %v: %w", route.TotalKm, ErrNonFiniteDistance)
	}

	return route, nil
}

// PathLength sums origin->first and every consecutive leg of stops.
func PathLength(distance ports.DistanceFunc, origin domain.Coordinates, stops []domain.Destination) float64 {
	total := 0.0
	current := origin
	for _, s := range stops {
		total += distance(current, s.Coords)
		current = s.Coords
	}
	return total
}

// EstimateMinutes converts a distance into travel minutes at AverageSpeedKmh.
func EstimateMinutes(km float64) float64 {
	return km / AverageSpeedKmh * 60
}
