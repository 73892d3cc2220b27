package ports

import "agro-route-service/internal/domain"

// Contract for computing travel distance in kilometers between two points.
// Implementations must be pure: same input, same output, no side effects.
type DistanceFunc func(a, b domain.Coordinates) float64
