package ports

import "agro-route-service/internal/domain"

// Resolves a locality name (e.g. a city) to the coordinates used as a
// transporter base.
type LocalityLookup interface {
	Resolve(name string) (domain.Coordinates, error)
}
