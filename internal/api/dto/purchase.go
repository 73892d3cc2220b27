package dto

import "time"

type RegisterPickupRequest struct {
	Farmer         string               `json:"farmer"`
	FarmerPhone    string               `json:"farmer_phone"`
	Product        string               `json:"product"`
	QuantityKg     float64              `json:"quantity_kg"`
	City           string               `json:"city"`
	Address        string               `json:"address"`
	Price          float64              `json:"price"`
	PredictedPrice *float64             `json:"predicted_price"`
	Quality        string               `json:"quality"`
	Coordinates    *CoordinatesResponse `json:"coordinates"`
}

// SellRequest buys from a pickup. Omitted quantity_kg buys the whole lot.
type SellRequest struct {
	Buyer      string  `json:"buyer"`
	QuantityKg float64 `json:"quantity_kg"`
	Rating     int     `json:"rating"`
	Comment    string  `json:"comment"`
}

type PurchaseResponse struct {
	ID         int64     `json:"id"`
	PickupID   int64     `json:"pickup_id"`
	Buyer      string    `json:"buyer"`
	Seller     string    `json:"seller"`
	Origin     string    `json:"origin"`
	Product    string    `json:"product"`
	City       string    `json:"city"`
	QuantityKg float64   `json:"quantity_kg"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	Rating     int       `json:"rating,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type SaleResponse struct {
	Purchase PurchaseResponse `json:"purchase"`
	Pickup   PickupResponse   `json:"pickup"`
}

type ListPurchasesResponse struct {
	Purchases []PurchaseResponse `json:"purchases"`
}

type ReputationResponse struct {
	Seller         string  `json:"seller"`
	Score          float64 `json:"score"`
	TotalPickups   int     `json:"total_pickups"`
	GoodQualityPct float64 `json:"good_quality_pct"`
	Delivered      int     `json:"delivered"`
	DeliveredPct   float64 `json:"delivered_pct"`
	AveragePrice   float64 `json:"average_price"`
	Purchases      int     `json:"purchases"`
	AverageRating  float64 `json:"average_rating"`
	RatedPurchases int     `json:"rated_purchases"`
}
