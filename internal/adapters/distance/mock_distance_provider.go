package distance

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/geo"
	"fmt"
	"sync/atomic"
)

// MockPair fixes the distance between two coordinates in both directions.
type MockPair struct {
	From, To domain.Coordinates
	Km       float64
}

// MockDistanceProvider returns fixed distances for configured pairs and
// falls back to great-circle distance for everything else.
type MockDistanceProvider struct {
	m     map[string]float64
	calls atomic.Int64
}

func NewMockDistanceProvider(pairs []MockPair) *MockDistanceProvider {
	m := make(map[string]float64, 2*len(pairs))
	for _, p := range pairs {
		m[key(p.From, p.To)] = p.Km
		m[key(p.To, p.From)] = p.Km
	}
	return &MockDistanceProvider{m: m}
}

func key(a, b domain.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f", a.Lat, a.Lon, b.Lat, b.Lon)
}

// Distance satisfies ports.DistanceFunc through a method value.
func (p *MockDistanceProvider) Distance(a, b domain.Coordinates) float64 {
	p.calls.Add(1)
	if a == b {
		return 0
	}
	if km, ok := p.m[key(a, b)]; ok {
		return km
	}
	return geo.Haversine(a, b)
}

// Calls reports how many distances were requested.
func (p *MockDistanceProvider) Calls() int64 {
	return p.calls.Load()
}
