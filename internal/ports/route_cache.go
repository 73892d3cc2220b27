package ports

import (
	"agro-route-service/internal/domain"
	"context"
)

// A cached route: stop identifiers in visiting order plus metrics.
type CachedRoute struct {
	StopIDs []string           `json:"stop_ids"`
	TotalKm float64            `json:"total_km"`
	Method  domain.RouteMethod `json:"method"`
}

// Optional cache for computed routes keyed by a digest of the input.
type RouteCache interface {
	// Return the cached route and whether it was found.
	Get(ctx context.Context, key string) (CachedRoute, bool, error)
	Put(ctx context.Context, key string, route CachedRoute) error
}
