package mapping

import (
	"agro-route-service/internal/domain"
	"fmt"
	"io"
	"strconv"

	"github.com/twpayne/go-kml"
)

func kmlCoordinate(c domain.Coordinates) kml.Coordinate {
	return kml.Coordinate{Lon: c.Lon, Lat: c.Lat}
}

// WriteKML renders a route as a KML document: one placemark for the base,
// one per stop and a line string joining them in visiting order.
func WriteKML(w io.Writer, name string, route domain.Route) error {
	path := Path(route)
	line := make([]kml.Coordinate, 0, len(path))
	for _, c := range path {
		line = append(line, kmlCoordinate(c))
	}

	placemarks := make([]kml.Element, 0, len(route.Stops)+3)
	placemarks = append(placemarks,
		kml.Name(name),
		kml.Description(fmt.Sprintf("%d stops, %.2f km (%s)", len(route.Stops), route.TotalKm, route.Method)),
		kml.Placemark(
			kml.Name("Base"),
			kml.Point(kml.Coordinates(kmlCoordinate(route.Origin))),
		),
	)

	for i, s := range route.Stops {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(strconv.Itoa(i+1)+". "+s.Label),
			kml.Point(kml.Coordinates(kmlCoordinate(s.Coords))),
		))
	}

	if len(route.Stops) > 0 {
		placemarks = append(placemarks, kml.Placemark(
			kml.Name(name),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(line...),
			),
		))
	}

	if err := kml.KML(kml.Document(placemarks...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("write kml %q: %w", name, err)
	}
	return nil
}
