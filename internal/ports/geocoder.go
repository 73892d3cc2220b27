package ports

import (
	"agro-route-service/internal/domain"
	"context"
	"errors"
)

var ErrNoGeocodeResult = errors.New("no geocode result")

// Geocoder resolves a free-form address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, error)
}
