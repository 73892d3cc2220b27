package dto

type PlanRequest struct {
	Base     string   `json:"base"`
	RadiusKm *float64 `json:"radius_km"`
	Group    *bool    `json:"group"`
}

// AcceptZoneRequest accepts zone as numbered by the last plan. When
// ExpectedPickupIDs is set the zone must still hold exactly those pickups.
type AcceptZoneRequest struct {
	Transporter       string   `json:"transporter"`
	Base              string   `json:"base"`
	RadiusKm          *float64 `json:"radius_km"`
	Zone              int      `json:"zone"`
	ExpectedPickupIDs []int64  `json:"expected_pickup_ids"`
}

type ZoneStopResponse struct {
	Order      int     `json:"order"`
	PickupID   int64   `json:"pickup_id"`
	Farmer     string  `json:"farmer"`
	Product    string  `json:"product"`
	City       string  `json:"city"`
	QuantityKg float64 `json:"quantity_kg"`
	Price      float64 `json:"price"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

type ZoneResponse struct {
	Number           int                `json:"number"`
	Name             string             `json:"name,omitempty"`
	Locality         string             `json:"locality"`
	Method           string             `json:"method"`
	TotalKm          float64            `json:"total_km"`
	EstimatedMinutes float64            `json:"estimated_minutes"`
	TotalKg          float64            `json:"total_kg"`
	TotalPrice       float64            `json:"total_price"`
	Polyline         string             `json:"polyline"`
	Stops            []ZoneStopResponse `json:"stops"`
}

type PlanResponse struct {
	Base     string         `json:"base"`
	RadiusKm float64        `json:"radius_km"`
	Zones    []ZoneResponse `json:"zones"`
}
