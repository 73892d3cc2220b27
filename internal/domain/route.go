package domain

// Represents a single point a transporter has to visit.
// Payload is carried through route computations unchanged and is never
// inspected by the optimizer.
type Destination struct {
	ID       string
	Label    string
	Locality string
	Coords   Coordinates
	Payload  any
}

// RouteMethod names the solver that produced a Route.
type RouteMethod string

const (
	RouteMethodNone            RouteMethod = "none"
	RouteMethodDirect          RouteMethod = "direct"
	RouteMethodExact           RouteMethod = "exact"
	RouteMethodNearestNeighbor RouteMethod = "nearest_neighbor"
	// A route rebuilt from stored stop order rather than computed.
	RouteMethodAssigned RouteMethod = "assigned"
)

// Represents the computed visiting order for a set of destinations.
// Stops holds exactly the input destinations, reordered. TotalKm is the sum
// of the origin->first leg and every consecutive leg; there is no return leg.
// A Route is immutable planning data and contains no side effects.
type Route struct {
	Origin  Coordinates
	Stops   []Destination
	TotalKm float64
	Method  RouteMethod
}

// StopIDs returns destination identifiers in visiting order.
func (r Route) StopIDs() []string {
	ids := make([]string, 0, len(r.Stops))
	for _, s := range r.Stops {
		ids = append(ids, s.ID)
	}
	return ids
}

// Represents destinations sharing a locality that lie within a radius of
// the group's seed point.
type ProximityGroup struct {
	Locality string
	Seed     Destination
	Members  []Destination
}
