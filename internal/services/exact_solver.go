package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"math"
)

// solveExact enumerates every ordering of destinations and keeps the
// shortest open path from origin.
//
// Orderings are visited in lexicographic order of input indices, starting
// from the input order itself. Only a strictly shorter total replaces the
// incumbent, so among equal totals the first ordering enumerated wins.
func solveExact(
	origin domain.Coordinates,
	destinations []domain.Destination,
	distance ports.DistanceFunc,
) (domain.Route, error) {
	n := len(destinations)
	dm := legMatrix(origin, destinations, distance)

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	best := make([]int, n)
	bestKm := math.Inf(1)
	found := false

	for {
		// Row 0 of the matrix is the origin, destination i sits at i+1.
		total := dm[0][perm[0]+1]
		for i := 0; i < n-1; i++ {
			total += dm[perm[i]+1][perm[i+1]+1]
		}

		if total < bestKm {
			bestKm = total
			copy(best, perm)
			found = true
		}

		if !nextPermutation(perm) {
			break
		}
	}

	if !found {
		return domain.Route{}, ErrNonFiniteDistance
	}

	stops := make([]domain.Destination, 0, n)
	for _, idx := range best {
		stops = append(stops, destinations[idx])
	}

	return domain.Route{
		Origin:  origin,
		Stops:   stops,
		TotalKm: bestKm,
		Method:  domain.RouteMethodExact,
	}, nil
}

// legMatrix precomputes distances between origin (index 0) and every
// destination (index i+1).
func legMatrix(origin domain.Coordinates, destinations []domain.Destination, distance ports.DistanceFunc) [][]float64 {
	points := make([]domain.Coordinates, 0, len(destinations)+1)
	points = append(points, origin)
	for _, d := range destinations {
		points = append(points, d.Coords)
	}

	dm := make([][]float64, len(points))
	for i := range points {
		dm[i] = make([]float64, len(points))
		for j := range points {
			if i != j {
				dm[i][j] = distance(points[i], points[j])
			}
		}
	}
	return dm
}

// nextPermutation rearranges p into the next lexicographic permutation and
// reports false once p was the last one.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}

	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]

	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return true
}
