package domain

// Immutable geographic coordinates in WGS84 degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as [lat, lon] for polyline encoding.
func (c Coordinates) LatLon() []float64 { return []float64{c.Lat, c.Lon} }
