package geocoding

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/platform/obs"
	"agro-route-service/internal/ports"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openrouteservice.org"

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// ORSGeocoder implements ports.Geocoder with the OpenRouteService search
// endpoint. Safe for concurrent use.
type ORSGeocoder struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	country     string
	maxAttempts int
	backoff     time.Duration
}

type Option func(*ORSGeocoder)

// WithBaseURL points the geocoder at another server, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(g *ORSGeocoder) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry sets the attempt count and the initial backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(g *ORSGeocoder) {
		g.maxAttempts = max(attempts, 1)
		g.backoff = backoff
	}
}

// NewORSGeocoder limits results to country (ISO alpha-2/3) when non-empty.
func NewORSGeocoder(apiKey, country string, opts ...Option) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	g := &ORSGeocoder{
		session:     &http.Client{Timeout: 10 * time.Second},
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		country:     country,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Geocode returns the best match for address or ports.ErrNoGeocodeResult.
func (g *ORSGeocoder) Geocode(ctx context.Context, address string) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	text := strings.Join(strings.Fields(address), " ")
	if text == "" {
		return domain.Coordinates{}, errors.New("geocode: address must be non-empty")
	}

	endpoint := g.baseURL + "/geocode/search"
	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := g.newRequest(ctx, http.MethodGet, endpoint)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", text)
		q.Set("size", "1")
		if g.country != "" {
			q.Set("boundary.country", g.country)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", text, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: decode response: %w", text, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: %w", text, ports.ErrNoGeocodeResult)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: invalid coordinate format", text)
	}

	// GeoJSON order is lon, lat.
	return domain.Coordinates{Lon: coords[0], Lat: coords[1]}, nil
}
