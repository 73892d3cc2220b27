package services

import (
	"agro-route-service/internal/adapters/repositories"
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coordsPtr(lat, lon float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lon: lon}
}

// Two pickups in Duitama 130 m apart, one in Sogamoso, one without
// coordinates and one already accepted.
func boyacaPickups() []*domain.Pickup {
	return []*domain.Pickup{
		{ID: 1, Farmer: "Ana", Product: "Papa", QuantityKg: 120, Price: 96000, City: "Duitama",
			Status: domain.StatusPending, Coords: coordsPtr(5.8269, -73.0347)},
		{ID: 2, Farmer: "Rosa", Product: "Arveja", QuantityKg: 50, Price: 40000, City: "Duitama",
			Status: domain.StatusPending, Coords: coordsPtr(5.8280, -73.0350)},
		{ID: 3, Farmer: "Luis", Product: "Cebolla", QuantityKg: 80, Price: 64000, City: "Sogamoso",
			Status: domain.StatusPending, Coords: coordsPtr(5.7147, -72.9342)},
		{ID: 4, Farmer: "Juan", Product: "Maiz", QuantityKg: 30, Price: 20000, City: "Tunja",
			Status: domain.StatusPending},
		{ID: 5, Farmer: "Marta", Product: "Papa", QuantityKg: 10, Price: 9000, City: "Paipa",
			Status: domain.StatusAccepted, Transporter: "Carlos", Coords: coordsPtr(5.7808, -73.1175)},
	}
}

func pickupIDs(ps []*domain.Pickup) []int64 {
	ids := make([]int64, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	return ids
}

type mapRouteCache struct {
	mu      sync.Mutex
	entries map[string]ports.CachedRoute
	hits    int
	err     error
}

func newMapRouteCache() *mapRouteCache {
	return &mapRouteCache{entries: map[string]ports.CachedRoute{}}
}

func (c *mapRouteCache) Get(_ context.Context, key string) (ports.CachedRoute, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return ports.CachedRoute{}, false, c.err
	}
	r, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return r, ok, nil
}

func (c *mapRouteCache) Put(_ context.Context, key string, r ports.CachedRoute) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[key] = r
	return nil
}

func TestPlanZones_GroupsAndRoutes(t *testing.T) {
	repo := repositories.NewMemoryPickupRepository(boyacaPickups()...)

	zones, err := PlanZones(context.Background(),
		PlanZonesRequest{Base: tunja, RadiusKm: 5, Group: true},
		repo, NewRouteOptimizer(nil), nil)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	duitama := zones[0]
	assert.Equal(t, 1, duitama.Number)
	assert.Equal(t, "Zona_1", duitama.Name)
	assert.Equal(t, "Duitama", duitama.Locality)
	assert.Equal(t, []int64{1, 2}, pickupIDs(duitama.Pickups))
	assert.InDelta(t, 49.2163, duitama.TotalKm, 1e-3)
	assert.InDelta(t, duitama.TotalKm*1.5, duitama.EstimatedMinutes, 1e-9)
	assert.Equal(t, 170.0, duitama.TotalKg)
	assert.Equal(t, 136000.0, duitama.TotalPrice)
	assert.NotEmpty(t, duitama.Polyline)
	assert.Equal(t, domain.RouteMethodExact, duitama.Route.Method)

	sogamoso := zones[1]
	assert.Equal(t, "Zona_2", sogamoso.Name)
	assert.Equal(t, []int64{3}, pickupIDs(sogamoso.Pickups))
	assert.InDelta(t, 51.9635, sogamoso.TotalKm, 1e-3)
	assert.Equal(t, domain.RouteMethodDirect, sogamoso.Route.Method)
}

func TestPlanZones_Ungrouped(t *testing.T) {
	repo := repositories.NewMemoryPickupRepository(boyacaPickups()...)

	zones, err := PlanZones(context.Background(),
		PlanZonesRequest{Base: tunja, Group: false},
		repo, NewRouteOptimizer(nil), nil)
	require.NoError(t, err)
	require.Len(t, zones, 3)

	for i, want := range []int64{1, 2, 3} {
		assert.Equal(t, i+1, zones[i].Number)
		assert.Empty(t, zones[i].Name)
		assert.Equal(t, []int64{want}, pickupIDs(zones[i].Pickups))
	}
}

func TestPlanZones_Empty(t *testing.T) {
	zones, err := PlanZones(context.Background(),
		PlanZonesRequest{Base: tunja, RadiusKm: 5, Group: true},
		repositories.NewMemoryPickupRepository(), NewRouteOptimizer(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestPlanZones_InvalidInput(t *testing.T) {
	repo := repositories.NewMemoryPickupRepository(boyacaPickups()...)
	opt := NewRouteOptimizer(nil)

	_, err := PlanZones(context.Background(), PlanZonesRequest{Base: domain.Coordinates{Lat: math.NaN()}, Group: true}, repo, opt, nil)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = PlanZones(context.Background(), PlanZonesRequest{Base: tunja, RadiusKm: -1, Group: true}, repo, opt, nil)
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestPlanZones_UsesRouteCache(t *testing.T) {
	repo := repositories.NewMemoryPickupRepository(boyacaPickups()...)
	cache := newMapRouteCache()
	opt := NewRouteOptimizer(nil)
	req := PlanZonesRequest{Base: tunja, RadiusKm: 5, Group: true}

	first, err := PlanZones(context.Background(), req, repo, opt, cache)
	require.NoError(t, err)
	// Only multi-stop routes are cached.
	assert.Len(t, cache.entries, 1)
	assert.Zero(t, cache.hits)

	second, err := PlanZones(context.Background(), req, repo, opt, cache)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first[0].Route.StopIDs(), second[0].Route.StopIDs())
	assert.Equal(t, first[0].TotalKm, second[0].TotalKm)
}

func TestPlanZones_CacheFailureIsNotFatal(t *testing.T) {
	repo := repositories.NewMemoryPickupRepository(boyacaPickups()...)
	cache := newMapRouteCache()
	cache.err = errors.New("connection refused")

	zones, err := PlanZones(context.Background(),
		PlanZonesRequest{Base: tunja, RadiusKm: 5, Group: true},
		repo, NewRouteOptimizer(nil), cache)
	require.NoError(t, err)
	assert.Len(t, zones, 2)
}

func TestRouteFromCache_RejectsStaleEntries(t *testing.T) {
	dests := []domain.Destination{{ID: "1"}, {ID: "2"}}

	_, ok := routeFromCache(tunja, dests, ports.CachedRoute{StopIDs: []string{"1"}})
	assert.False(t, ok)

	_, ok = routeFromCache(tunja, dests, ports.CachedRoute{StopIDs: []string{"1", "9"}})
	assert.False(t, ok)

	_, ok = routeFromCache(tunja, dests, ports.CachedRoute{StopIDs: []string{"1", "1"}})
	assert.False(t, ok)

	r, ok := routeFromCache(tunja, dests, ports.CachedRoute{StopIDs: []string{"2", "1"}, TotalKm: 3})
	require.True(t, ok)
	assert.Equal(t, []string{"2", "1"}, r.StopIDs())
}

func TestRouteCacheKey_DependsOnOrder(t *testing.T) {
	a := domain.Destination{ID: "1", Coords: domain.Coordinates{Lat: 1, Lon: 1}}
	b := domain.Destination{ID: "2", Coords: domain.Coordinates{Lat: 2, Lon: 2}}

	assert.Equal(t, RouteCacheKey(tunja, []domain.Destination{a, b}, 8), RouteCacheKey(tunja, []domain.Destination{a, b}, 8))
	assert.NotEqual(t, RouteCacheKey(tunja, []domain.Destination{a, b}, 8), RouteCacheKey(tunja, []domain.Destination{b, a}, 8))
}

func TestRouteCacheKey_DependsOnExactThreshold(t *testing.T) {
	dests := []domain.Destination{
		{ID: "1", Coords: domain.Coordinates{Lat: 1, Lon: 1}},
		{ID: "2", Coords: domain.Coordinates{Lat: 2, Lon: 2}},
		{ID: "3", Coords: domain.Coordinates{Lat: 3, Lon: 3}},
	}
	assert.NotEqual(t, RouteCacheKey(tunja, dests, 8), RouteCacheKey(tunja, dests, 2))
}

func TestOptimizeCached_SeparatesOptimizerThresholds(t *testing.T) {
	ctx := context.Background()
	cache := newMapRouteCache()
	dests := []domain.Destination{
		{ID: "1", Coords: duitama},
		{ID: "2", Coords: sogamoso},
		{ID: "3", Coords: domain.Coordinates{Lat: 5.7, Lon: -73.1}},
	}

	exact := NewRouteOptimizer(nil)
	greedy := NewRouteOptimizer(nil, WithExactThreshold(1))

	r1, err := optimizeCached(ctx, exact, cache, tunja, dests)
	require.NoError(t, err)
	r2, err := optimizeCached(ctx, greedy, cache, tunja, dests)
	require.NoError(t, err)

	assert.Equal(t, domain.RouteMethodExact, r1.Method)
	assert.Equal(t, domain.RouteMethodNearestNeighbor, r2.Method, "a greedy optimizer must not reuse the exact route")
}
