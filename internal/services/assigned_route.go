package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"context"
	"errors"
	"fmt"
	"slices"
)

var ErrRouteNotFound = errors.New("route not found")

// AssignedRoute rebuilds an accepted route from the stored stop order.
// Only pickups still in progress (accepted) are included.
func AssignedRoute(
	ctx context.Context,
	transporter, routeName string,
	base domain.Coordinates,
	repo ports.PickupRepository,
	distance ports.DistanceFunc,
) (domain.Route, error) {
	pickups, err := repo.ListPickups(ctx, ports.PickupFilter{
		Status:      domain.StatusAccepted,
		Transporter: transporter,
		RouteName:   routeName,
	})
	if err != nil {
		return domain.Route{}, fmt.Errorf("assigned route %q: %w", routeName, err)
	}

	slices.SortStableFunc(pickups, func(a, b *domain.Pickup) int { return a.StopOrder - b.StopOrder })

	stops := make([]domain.Destination, 0, len(pickups))
	for _, p := range pickups {
		if d, ok := p.Destination(); ok {
			stops = append(stops, d)
		}
	}
	if len(stops) == 0 {
		return domain.Route{}, fmt.Errorf("assigned route %q for %q: %w", routeName, transporter, ErrRouteNotFound)
	}

	return domain.Route{
		Origin:  base,
		Stops:   stops,
		TotalKm: PathLength(distance, base, stops),
		Method:  domain.RouteMethodAssigned,
	}, nil
}
