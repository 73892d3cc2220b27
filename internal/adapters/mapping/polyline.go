package mapping

import (
	"agro-route-service/internal/domain"

	"github.com/twpayne/go-polyline"
)

// Path returns the route's points in driving order, origin first.
func Path(route domain.Route) []domain.Coordinates {
	path := make([]domain.Coordinates, 0, len(route.Stops)+1)
	path = append(path, route.Origin)
	for _, s := range route.Stops {
		path = append(path, s.Coords)
	}
	return path
}

// EncodePolyline encodes the route path in Google's encoded polyline format.
// An empty route encodes to an empty string.
func EncodePolyline(route domain.Route) string {
	if len(route.Stops) == 0 {
		return ""
	}

	path := Path(route)
	coords := make([][]float64, 0, len(path))
	for _, c := range path {
		coords = append(coords, c.LatLon())
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline reverses EncodePolyline. Precision is 1e-5 degrees.
func DecodePolyline(encoded string) ([]domain.Coordinates, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}

	out := make([]domain.Coordinates, 0, len(coords))
	for _, c := range coords {
		out = append(out, domain.Coordinates{Lat: c[0], Lon: c[1]})
	}
	return out, nil
}
