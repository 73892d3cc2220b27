package domain

import "time"

// PurchaseOrigin tells whether produce was bought at the farm or from a
// transporter who already collected it.
type PurchaseOrigin string

const (
	OriginFarm        PurchaseOrigin = "farm"
	OriginTransporter PurchaseOrigin = "transporter"
)

// Purchase is an immutable record of a buyer taking part or all of a pickup.
// Rating is 1..5, or 0 when the buyer left none.
type Purchase struct {
	ID         int64
	PickupID   int64
	Buyer      string
	Seller     string
	Origin     PurchaseOrigin
	Product    string
	City       string
	QuantityKg float64
	UnitPrice  float64
	TotalPrice float64
	Rating     int
	Comment    string
	CreatedAt  time.Time
}
