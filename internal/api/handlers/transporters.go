package handlers

import (
	"agro-route-service/internal/adapters/mapping"
	"agro-route-service/internal/api/dto"
	"agro-route-service/internal/ports"
	"agro-route-service/internal/services"
	"bytes"
	"mime"
	"net/http"
	"strings"
)

// TransporterHandler serves per-transporter views: stats and route exports.
type TransporterHandler struct {
	Repo       ports.PickupRepository
	Localities ports.LocalityLookup
	Distance   ports.DistanceFunc
}

func (h *TransporterHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "transporter is required")
		return
	}

	s, err := services.TransporterStats(r.Context(), name, h.Repo)
	if err != nil {
		writeServiceError(w, r, "transporters.Stats", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.StatsResponse{
		Transporter:     s.Transporter,
		Active:          s.Active,
		PickedUp:        s.PickedUp,
		Sold:            s.Sold,
		ActiveIncome:    s.ActiveIncome,
		SoldIncome:      s.SoldIncome,
		AverageProgress: s.AverageProgress,
	})
}

// RouteKML exports an accepted route as KML for map tools.
func (h *TransporterHandler) RouteKML(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	routeName := strings.TrimSpace(r.PathValue("name"))
	transporter := strings.TrimSpace(r.URL.Query().Get("transporter"))
	if transporter == "" {
		writeError(w, r, http.StatusBadRequest, "transporter is required")
		return
	}

	base, err := h.Localities.Resolve(r.URL.Query().Get("base"))
	if err != nil {
		writeServiceError(w, r, "routes.KML", err)
		return
	}

	route, err := services.AssignedRoute(r.Context(), transporter, routeName, base, h.Repo, h.Distance)
	if err != nil {
		writeServiceError(w, r, "routes.KML", err)
		return
	}

	var buf bytes.Buffer
	if err := mapping.WriteKML(&buf, routeName, route); err != nil {
		writeServiceError(w, r, "routes.KML", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": routeName + ".kml"}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
