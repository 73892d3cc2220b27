package handlers

import (
	"agro-route-service/internal/api/dto"
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"agro-route-service/internal/services"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// PickupHandler exposes pickup listing, registration and the per-pickup
// lifecycle. Geocoder is optional.
type PickupHandler struct {
	Repo       ports.PickupRepository
	Localities ports.LocalityLookup
	Geocoder   ports.Geocoder
	Distance   ports.DistanceFunc
	Now        func() time.Time

	// Rand drives simulated trip progress; guarded by mu.
	Rand *rand.Rand
	mu   sync.Mutex
}

func coordinatesResponse(c *domain.Coordinates) *dto.CoordinatesResponse {
	if c == nil {
		return nil
	}
	return &dto.CoordinatesResponse{Lat: c.Lat, Lon: c.Lon}
}

func pickupResponse(p *domain.Pickup) dto.PickupResponse {
	res := dto.PickupResponse{
		ID:             p.ID,
		ExternalID:     p.ExternalID,
		Farmer:         p.Farmer,
		Product:        p.Product,
		QuantityKg:     p.QuantityKg,
		City:           p.City,
		Address:        p.Address,
		Price:          p.Price,
		PredictedPrice: p.PredictedPrice,
		Quality:        p.Quality,
		Status:         string(p.Status),
		Coordinates:    coordinatesResponse(p.Coords),
		Transporter:    p.Transporter,
		RouteName:      p.RouteName,
		StopOrder:      p.StopOrder,
		Progress:       p.Progress,
		TransporterPos: coordinatesResponse(p.TransporterPos),
		RemainingKm:    p.RemainingKm,
		EtaMinutes:     p.EtaMinutes,
		PickedUpAt:     p.PickedUpAt,
	}
	if !p.CreatedAt.IsZero() {
		created := p.CreatedAt
		res.CreatedAt = &created
	}
	return res
}

// Collection serves /pickups: GET lists, POST registers.
func (h *PickupHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Register(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (h *PickupHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	filter := ports.PickupFilter{
		Transporter: strings.TrimSpace(q.Get("transporter")),
		Farmer:      strings.TrimSpace(q.Get("farmer")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParsePickupStatus(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	pickups, err := h.Repo.ListPickups(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "pickups.List", err)
		return
	}

	res := dto.ListPickupsResponse{Pickups: make([]dto.PickupResponse, 0, len(pickups))}
	for _, p := range pickups {
		res.Pickups = append(res.Pickups, pickupResponse(p))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Register publishes a new lot for a farmer.
func (h *PickupHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RegisterPickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.RegisterPickupRequest{
		Farmer:         req.Farmer,
		FarmerPhone:    req.FarmerPhone,
		Product:        req.Product,
		QuantityKg:     req.QuantityKg,
		City:           req.City,
		Address:        req.Address,
		Price:          req.Price,
		PredictedPrice: req.PredictedPrice,
		Quality:        req.Quality,
	}
	if req.Coordinates != nil {
		in.Coords = &domain.Coordinates{Lat: req.Coordinates.Lat, Lon: req.Coordinates.Lon}
	}

	p, err := services.RegisterPickup(r.Context(), in, h.Now(), h.Repo, h.Geocoder)
	if err != nil {
		writeServiceError(w, r, "pickups.Register", err)
		return
	}

	w.Header().Set("Location", "/pickups/"+strconv.FormatInt(p.ID, 10))
	writeJSON(w, r, http.StatusCreated, pickupResponse(p))
}

// Accept assigns one pickup to a transporter as an individual delivery.
func (h *PickupHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.AcceptPickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transporter) == "" {
		writeError(w, r, http.StatusBadRequest, "transporter is required")
		return
	}

	base, err := h.Localities.Resolve(req.Base)
	if err != nil {
		writeServiceError(w, r, "pickups.Accept", err)
		return
	}

	p, err := services.AcceptPickup(r.Context(), id, strings.TrimSpace(req.Transporter), base, h.Repo)
	if err != nil {
		writeServiceError(w, r, "pickups.Accept", err)
		return
	}

	writeJSON(w, r, http.StatusOK, pickupResponse(p))
}

// Advance simulates one step of the transporter's trip to the pickup.
func (h *PickupHandler) Advance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.AdvanceTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	base, err := h.Localities.Resolve(req.Base)
	if err != nil {
		writeServiceError(w, r, "pickups.Advance", err)
		return
	}

	h.mu.Lock()
	p, err := services.AdvanceTrip(r.Context(), id, base, h.Repo, h.Distance, h.Rand)
	h.mu.Unlock()
	if err != nil {
		writeServiceError(w, r, "pickups.Advance", err)
		return
	}

	writeJSON(w, r, http.StatusOK, pickupResponse(p))
}

func (h *PickupHandler) PickUp(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "pickups.PickUp", func(id int64) (*domain.Pickup, error) {
		return services.MarkPickedUp(r.Context(), id, h.Now(), h.Repo)
	})
}

func (h *PickupHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "pickups.Withdraw", func(id int64) (*domain.Pickup, error) {
		return services.Withdraw(r.Context(), id, h.Repo)
	})
}

func (h *PickupHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	apply func(id int64) (*domain.Pickup, error),
) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := apply(id)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}

	writeJSON(w, r, http.StatusOK, pickupResponse(p))
}
