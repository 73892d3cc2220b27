package repositories

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Header names accepted for each field. The first alias is the column name
// used by the legacy marketplace export.
var csvColumns = map[string][]string{
	"id":           {"id_notificacion", "id"},
	"created_at":   {"fecha_notificacion", "created_at"},
	"farmer":       {"campesino", "farmer"},
	"product":      {"producto", "product"},
	"quantity_kg":  {"cantidad_kg", "quantity_kg"},
	"city":         {"ciudad", "city"},
	"address":      {"direccion", "address"},
	"price":        {"precio", "price"},
	"predicted":    {"precio_predicho", "predicted_price"},
	"quality":      {"calidad", "quality"},
	"status":       {"estado", "status"},
	"transporter":  {"transportista_asignado", "transporter"},
	"lat":          {"latitud", "lat"},
	"lon":          {"longitud", "lon"},
	"farmer_phone": {"telefono_campesino", "farmer_phone"},
	"route_name":   {"ruta_optimizada", "route_name"},
	"stop_order":   {"orden_parada", "stop_order"},
	"progress":     {"progreso_viaje", "progress"},
	"t_lat":        {"transportista_lat", "transporter_lat"},
	"t_lon":        {"transportista_lon", "transporter_lon"},
	"remaining_km": {"distancia_restante_km", "remaining_km"},
	"eta_minutes":  {"tiempo_estimado_llegada", "eta_minutes"},
	"picked_up_at": {"fecha_recogida", "picked_up_at"},
}

var requiredCSVColumns = []string{"id", "farmer", "product", "city", "status"}

var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02",
}

type csvRecord struct {
	line   int
	fields []string
	index  map[string]int
}

func (r csvRecord) get(field string) string {
	i, ok := r.index[field]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r csvRecord) float(field string) (*float64, error) {
	raw := r.get(field)
	if raw == "" || strings.EqualFold(raw, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("line %d: column %s: %w", r.line, field, err)
	}
	return &f, nil
}

func (r csvRecord) time(field string) (*time.Time, error) {
	raw := r.get(field)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "none") {
		return nil, nil
	}
	for _, layout := range csvTimeLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("line %d: column %s: unparseable date %q", r.line, field, raw)
}

// coords returns nil unless both columns hold a value.
func (r csvRecord) coords(latField, lonField string) (*domain.Coordinates, error) {
	lat, err := r.float(latField)
	if err != nil {
		return nil, err
	}
	lon, err := r.float(lonField)
	if err != nil {
		return nil, err
	}
	if lat == nil || lon == nil {
		return nil, nil
	}
	return &domain.Coordinates{Lat: *lat, Lon: *lon}, nil
}

// ParsePickupsCSV reads pickups from a CSV export. Rows without latitude or
// longitude are kept with nil coordinates.
//
// Numeric ids are used as is. Other ids (the marketplace writes values such
// as "CAMP-20250301071500") are kept in ExternalID and mapped to ids after
// the largest numeric one, in file order, so re-importing the same file
// yields the same ids.
func ParsePickupsCSV(r io.Reader) ([]*domain.Pickup, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []*domain.Pickup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse pickups csv: read header: %w", err)
	}

	byHeader := make(map[string]int, len(header))
	for i, h := range header {
		byHeader[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	index := make(map[string]int, len(csvColumns))
	for field, aliases := range csvColumns {
		for _, a := range aliases {
			if i, ok := byHeader[a]; ok {
				index[field] = i
				break
			}
		}
	}
	for _, field := range requiredCSVColumns {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("parse pickups csv: missing column for %q (expected one of %v)", field, csvColumns[field])
		}
	}

	pickups := make([]*domain.Pickup, 0, 64)
	var maxID int64
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse pickups csv: line %d: %w", line, err)
		}

		p, err := parseCSVRecord(csvRecord{line: line, fields: fields, index: index})
		if err != nil {
			return nil, fmt.Errorf("parse pickups csv: %w", err)
		}
		maxID = max(maxID, p.ID)
		pickups = append(pickups, p)
	}

	surrogates := make(map[string]int64)
	for _, p := range pickups {
		if p.ID != 0 {
			continue
		}
		id, ok := surrogates[p.ExternalID]
		if !ok {
			maxID++
			id = maxID
			surrogates[p.ExternalID] = id
		}
		p.ID = id
	}

	return pickups, nil
}

func parseCSVRecord(rec csvRecord) (*domain.Pickup, error) {
	rawID := rec.get("id")
	if rawID == "" {
		return nil, fmt.Errorf("line %d: empty id", rec.line)
	}

	status, err := domain.ParsePickupStatus(rec.get("status"))
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", rec.line, err)
	}

	p := &domain.Pickup{
		Farmer:      rec.get("farmer"),
		FarmerPhone: rec.get("farmer_phone"),
		Product:     rec.get("product"),
		City:        rec.get("city"),
		Address:     rec.get("address"),
		Quality:     rec.get("quality"),
		Transporter: rec.get("transporter"),
		RouteName:   rec.get("route_name"),
		Status:      status,
	}
	if p.Farmer == "" || p.Product == "" {
		return nil, fmt.Errorf("line %d: farmer and product must be non-empty", rec.line)
	}

	if id, err := strconv.ParseInt(rawID, 10, 64); err == nil {
		if id <= 0 {
			return nil, fmt.Errorf("line %d: invalid id %q", rec.line, rawID)
		}
		p.ID = id
	} else {
		p.ExternalID = rawID
	}

	qty, err := rec.float("quantity_kg")
	if err != nil {
		return nil, err
	}
	if qty != nil {
		p.QuantityKg = *qty
	}

	price, err := rec.float("price")
	if err != nil {
		return nil, err
	}
	if price != nil {
		p.Price = *price
	}

	if p.PredictedPrice, err = rec.float("predicted"); err != nil {
		return nil, err
	}
	if p.Coords, err = rec.coords("lat", "lon"); err != nil {
		return nil, err
	}

	// Pandas writes integer columns holding blanks as floats ("2.0").
	stop, err := rec.float("stop_order")
	if err != nil {
		return nil, err
	}
	if stop != nil {
		p.StopOrder = int(math.Round(*stop))
	}

	progress, err := rec.float("progress")
	if err != nil {
		return nil, err
	}
	if progress != nil {
		p.Progress = *progress
	}

	if p.TransporterPos, err = rec.coords("t_lat", "t_lon"); err != nil {
		return nil, err
	}
	if p.RemainingKm, err = rec.float("remaining_km"); err != nil {
		return nil, err
	}
	if p.EtaMinutes, err = rec.float("eta_minutes"); err != nil {
		return nil, err
	}
	if p.PickedUpAt, err = rec.time("picked_up_at"); err != nil {
		return nil, err
	}

	created, err := rec.time("created_at")
	if err != nil {
		return nil, err
	}
	if created != nil {
		p.CreatedAt = *created
	}

	return p, nil
}

// Populate the repository with pickups from a CSV file.
func SeedFromCSV(ctx context.Context, repo ports.PickupRepository, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("seed pickups: open %q: %w", csvPath, err)
	}
	defer f.Close()

	pickups, err := ParsePickupsCSV(f)
	if err != nil {
		return 0, fmt.Errorf("seed pickups: %w", err)
	}

	if err := repo.SavePickups(ctx, pickups...); err != nil {
		return 0, fmt.Errorf("seed pickups: %w", err)
	}

	return len(pickups), nil
}
