package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/geo"
	"agro-route-service/internal/ports"
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrInvalidRadius = errors.New("invalid radius")

// GroupByProximity clusters destinations that share a locality and lie
// within radiusKm of a seed point.
//
// Clustering is a greedy single pass in input order: each unprocessed point
// seeds a new group and absorbs every later unprocessed point of the same
// locality within radiusKm of the seed. Absorbed points never act as seeds,
// so the grouping is not transitive and depends on input order. This is an
// accepted approximation.
//
// Points with non-finite coordinates are skipped. Groups are returned with
// the largest first; equal sizes keep creation order.
func GroupByProximity(
	destinations []domain.Destination,
	radiusKm float64,
	distance ports.DistanceFunc,
) ([]domain.ProximityGroup, error) {
	if radiusKm < 0 || math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) {
		return nil, fmt.Errorf("group by proximity: radius %v: %w", radiusKm, ErrInvalidRadius)
	}
	if distance == nil {
		distance = geo.Haversine
	}

	valid := make([]domain.Destination, 0, len(destinations))
	for _, d := range destinations {
		if geo.Valid(d.Coords) {
			valid = append(valid, d)
		}
	}

	processed := make([]bool, len(valid))
	groups := make([]domain.ProximityGroup, 0)

	for i, seed := range valid {
		if processed[i] {
			continue
		}
		processed[i] = true

		group := domain.ProximityGroup{
			Locality: seed.Locality,
			Seed:     seed,
			Members:  []domain.Destination{seed},
		}

		for j := i + 1; j < len(valid); j++ {
			if processed[j] || valid[j].Locality != seed.Locality {
				continue
			}
			if distance(seed.Coords, valid[j].Coords) <= radiusKm {
				group.Members = append(group.Members, valid[j])
				processed[j] = true
			}
		}

		groups = append(groups, group)
	}

	slices.SortStableFunc(groups, func(a, b domain.ProximityGroup) int {
		return len(b.Members) - len(a.Members)
	})

	return groups, nil
}
