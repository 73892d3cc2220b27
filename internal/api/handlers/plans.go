package handlers

import (
	"agro-route-service/internal/api/dto"
	"agro-route-service/internal/ports"
	"agro-route-service/internal/services"
	"net/http"
	"strings"
)

type PlanHandler struct {
	Repo            ports.PickupRepository
	Optimizer       *services.RouteOptimizer
	Cache           ports.RouteCache
	Localities      ports.LocalityLookup
	DefaultBase     string
	DefaultRadiusKm float64
}

func zoneResponse(z services.Zone) dto.ZoneResponse {
	res := dto.ZoneResponse{
		Number:           z.Number,
		Name:             z.Name,
		Locality:         z.Locality,
		Method:           string(z.Route.Method),
		TotalKm:          z.TotalKm,
		EstimatedMinutes: z.EstimatedMinutes,
		TotalKg:          z.TotalKg,
		TotalPrice:       z.TotalPrice,
		Polyline:         z.Polyline,
		Stops:            make([]dto.ZoneStopResponse, 0, len(z.Pickups)),
	}
	for i, p := range z.Pickups {
		stop := dto.ZoneStopResponse{
			Order:      i + 1,
			PickupID:   p.ID,
			Farmer:     p.Farmer,
			Product:    p.Product,
			City:       p.City,
			QuantityKg: p.QuantityKg,
			Price:      p.Price,
		}
		if p.Coords != nil {
			stop.Lat, stop.Lon = p.Coords.Lat, p.Coords.Lon
		}
		res.Stops = append(res.Stops, stop)
	}
	return res
}

func (h *PlanHandler) base(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return h.DefaultBase
}

func (h *PlanHandler) radius(r *float64) float64 {
	if r == nil {
		return h.DefaultRadiusKm
	}
	return *r
}

// Plan groups pending pickups into zones and optimizes a route per zone.
func (h *PlanHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.PlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	baseName := h.base(req.Base)
	base, err := h.Localities.Resolve(baseName)
	if err != nil {
		writeServiceError(w, r, "plans.Plan", err)
		return
	}

	group := req.Group == nil || *req.Group
	radius := h.radius(req.RadiusKm)

	zones, err := services.PlanZones(r.Context(), services.PlanZonesRequest{
		Base:     base,
		RadiusKm: radius,
		Group:    group,
	}, h.Repo, h.Optimizer, h.Cache)
	if err != nil {
		writeServiceError(w, r, "plans.Plan", err)
		return
	}

	res := dto.PlanResponse{Base: baseName, RadiusKm: radius, Zones: make([]dto.ZoneResponse, 0, len(zones))}
	for _, z := range zones {
		res.Zones = append(res.Zones, zoneResponse(z))
	}

	writeJSON(w, r, http.StatusOK, res)
}

// AcceptZone assigns every pickup of one planned zone to a transporter.
func (h *PlanHandler) AcceptZone(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.AcceptZoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transporter) == "" {
		writeError(w, r, http.StatusBadRequest, "transporter is required")
		return
	}
	if req.Zone < 1 {
		writeError(w, r, http.StatusBadRequest, "zone must be >= 1")
		return
	}

	base, err := h.Localities.Resolve(h.base(req.Base))
	if err != nil {
		writeServiceError(w, r, "zones.Accept", err)
		return
	}

	zone, err := services.AcceptZone(r.Context(), services.AcceptZoneRequest{
		Transporter: strings.TrimSpace(req.Transporter),
		Base:        base,
		RadiusKm:    h.radius(req.RadiusKm),
		Zone:        req.Zone,
		ExpectedIDs: req.ExpectedPickupIDs,
	}, h.Repo, h.Optimizer, h.Cache)
	if err != nil {
		writeServiceError(w, r, "zones.Accept", err)
		return
	}

	writeJSON(w, r, http.StatusOK, zoneResponse(zone))
}
