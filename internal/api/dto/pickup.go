package dto

import "time"

type CoordinatesResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type PickupResponse struct {
	ID             int64                `json:"id"`
	ExternalID     string               `json:"external_id,omitempty"`
	Farmer         string               `json:"farmer"`
	Product        string               `json:"product"`
	QuantityKg     float64              `json:"quantity_kg"`
	City           string               `json:"city"`
	Address        string               `json:"address,omitempty"`
	Price          float64              `json:"price"`
	PredictedPrice *float64             `json:"predicted_price"`
	Quality        string               `json:"quality,omitempty"`
	Status         string               `json:"status"`
	Coordinates    *CoordinatesResponse `json:"coordinates"`
	CreatedAt      *time.Time           `json:"created_at,omitempty"`

	Transporter    string               `json:"transporter,omitempty"`
	RouteName      string               `json:"route_name,omitempty"`
	StopOrder      int                  `json:"stop_order,omitempty"`
	Progress       float64              `json:"progress"`
	TransporterPos *CoordinatesResponse `json:"transporter_position,omitempty"`
	RemainingKm    *float64             `json:"remaining_km,omitempty"`
	EtaMinutes     *float64             `json:"eta_minutes,omitempty"`
	PickedUpAt     *time.Time           `json:"picked_up_at,omitempty"`
}

type ListPickupsResponse struct {
	Pickups []PickupResponse `json:"pickups"`
}

type AcceptPickupRequest struct {
	Transporter string `json:"transporter"`
	Base        string `json:"base"`
}

type AdvanceTripRequest struct {
	Base string `json:"base"`
}

type StatsResponse struct {
	Transporter     string  `json:"transporter"`
	Active          int     `json:"active"`
	PickedUp        int     `json:"picked_up"`
	Sold            int     `json:"sold"`
	ActiveIncome    float64 `json:"active_income"`
	SoldIncome      float64 `json:"sold_income"`
	AverageProgress float64 `json:"average_progress"`
}
