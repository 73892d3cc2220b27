package api

import (
	"agro-route-service/internal/api/handlers"
	"agro-route-service/internal/geo"
	"agro-route-service/internal/ports"
	"agro-route-service/internal/services"
	"math/rand/v2"
	"net/http"
	"time"
)

// Deps are the collaborators the HTTP layer needs. Cache, DB, Geocoder, Rand
// and Now are optional. Purchases defaults to Repo when Repo also stores
// purchases.
type Deps struct {
	Repo            ports.PickupRepository
	Purchases       ports.PurchaseRepository
	Localities      ports.LocalityLookup
	Geocoder        ports.Geocoder
	Optimizer       *services.RouteOptimizer
	Cache           ports.RouteCache
	DB              handlers.Pinger
	DefaultBase     string
	DefaultRadiusKm float64
	Rand            *rand.Rand
	Now             func() time.Time
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	if d.Optimizer == nil {
		d.Optimizer = services.NewRouteOptimizer(geo.Haversine)
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Purchases == nil {
		d.Purchases, _ = d.Repo.(ports.PurchaseRepository)
	}

	mux := http.NewServeMux()

	health := &handlers.HealthHandler{DB: d.DB}
	pickups := &handlers.PickupHandler{
		Repo:       d.Repo,
		Localities: d.Localities,
		Geocoder:   d.Geocoder,
		Distance:   d.Optimizer.Distance,
		Now:        d.Now,
		Rand:       d.Rand,
	}
	purchases := &handlers.PurchaseHandler{
		Repo:      d.Repo,
		Purchases: d.Purchases,
		Now:       d.Now,
	}
	plans := &handlers.PlanHandler{
		Repo:            d.Repo,
		Optimizer:       d.Optimizer,
		Cache:           d.Cache,
		Localities:      d.Localities,
		DefaultBase:     d.DefaultBase,
		DefaultRadiusKm: d.DefaultRadiusKm,
	}
	transporters := &handlers.TransporterHandler{
		Repo:       d.Repo,
		Localities: d.Localities,
		Distance:   d.Optimizer.Distance,
	}

	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/pickups", pickups.Collection)
	mux.HandleFunc("/pickups/{id}/accept", pickups.Accept)
	mux.HandleFunc("/pickups/{id}/advance", pickups.Advance)
	mux.HandleFunc("/pickups/{id}/pickup", pickups.PickUp)
	mux.HandleFunc("/pickups/{id}/withdraw", pickups.Withdraw)
	mux.HandleFunc("/pickups/{id}/sell", purchases.Sell)
	mux.HandleFunc("/purchases", purchases.List)
	mux.HandleFunc("/sellers/{name}/reputation", purchases.Reputation)
	mux.HandleFunc("/plans", plans.Plan)
	mux.HandleFunc("/zones/accept", plans.AcceptZone)
	mux.HandleFunc("/transporters/{name}/stats", transporters.Stats)
	mux.HandleFunc("/routes/{name}/kml", transporters.RouteKML)

	return requestIDMiddleware(loggingMiddleware(mux))
}
