// Package geo provides great-circle distance helpers.
package geo

import (
	"agro-route-service/internal/domain"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance between a and b in kilometers.
// Non-finite input yields NaN; callers are expected to check Valid first.
func Haversine(a, b domain.Coordinates) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push h marginally above 1 for antipodal points.
	if h > 1 {
		h = 1
	}

	return EarthRadiusKm * 2 * math.Asin(math.Sqrt(h))
}

// Valid reports whether both components are finite numbers.
// Range is deliberately not checked.
func Valid(c domain.Coordinates) bool {
	return isFinite(c.Lat) && isFinite(c.Lon)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
