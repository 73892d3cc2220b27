package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"fmt"
	"math"
)

// Plan a pickup route using a greedy nearest-neighbor algorithm.
//
// The algorithm minimizes the immediate leg at each step and does not
// attempt global optimization. The result is an approximation traded for
// speed on larger stop counts.
func solveNearestNeighbor(
	origin domain.Coordinates,
	destinations []domain.Destination,
	distance ports.DistanceFunc,
) (domain.Route, error) {
	remaining := make([]domain.Destination, len(destinations))
	copy(remaining, destinations)

	current := origin
	stops := make([]domain.Destination, 0, len(destinations))
	totalKm := 0.0

	for len(remaining) > 0 {
		bestIdx := -1
		minKm := math.Inf(1)

		// Select next stop by minimum leg distance (greedy step).
		// Strict comparison keeps the earliest remaining destination on ties.
		for i, d := range remaining {
			km := distance(current, d.Coords)
			if km < minKm {
				minKm = km
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			return domain.Route{}, fmt.Errorf("nearest neighbor: failed to select next destination: %w", ErrNonFiniteDistance)
		}

		next := remaining[bestIdx]
		stops = append(stops, next)
		totalKm += minKm
		current = next.Coords

		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return domain.Route{
		Origin:  origin,
		Stops:   stops,
		TotalKm: totalKm,
		Method:  domain.RouteMethodNearestNeighbor,
	}, nil
}
