package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid pickup status transition")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// PickupStatus tracks a pickup through the marketplace lifecycle.
type PickupStatus string

const (
	StatusPending   PickupStatus = "pending"
	StatusAccepted  PickupStatus = "accepted"
	StatusPickedUp  PickupStatus = "picked_up"
	StatusSold      PickupStatus = "sold"
	StatusWithdrawn PickupStatus = "withdrawn"
)

// Progress at which a transporter is considered to have reached the farm.
const PickupProgressThreshold = 0.95

// Quantities closer than this are treated as equal.
const quantityEpsilon = 1e-9

var statusAliases = map[string]PickupStatus{
	"pending":    StatusPending,
	"pendiente":  StatusPending,
	"accepted":   StatusAccepted,
	"aceptado":   StatusAccepted,
	"picked_up":  StatusPickedUp,
	"recogido":   StatusPickedUp,
	"sold":       StatusSold,
	"vendido":    StatusSold,
	"completado": StatusSold,
	"entregado":  StatusSold,
	"withdrawn":  StatusWithdrawn,
	"retirado":   StatusWithdrawn,
}

// ParsePickupStatus accepts both canonical values and the labels used by
// legacy CSV exports.
func ParsePickupStatus(s string) (PickupStatus, error) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("parse pickup status: unknown status %q", s)
	}
	return st, nil
}

// Represents a farmer's request to have produce collected.
// Coords is nil when the address could not be geocoded; such pickups are
// listed but never routed. Trip fields are populated once a transporter
// accepts the pickup.
//
// ExternalID keeps the identifier of an imported record (for example
// "CAMP-20250301071500"). Version is bumped by every stored update and
// guards conditional writes.
type Pickup struct {
	ID             int64
	ExternalID     string
	Version        int64
	Farmer         string
	FarmerPhone    string
	Product        string
	QuantityKg     float64
	City           string
	Address        string
	Price          float64
	PredictedPrice *float64
	Quality        string
	Status         PickupStatus
	Coords         *Coordinates
	CreatedAt      time.Time

	Transporter    string
	RouteName      string
	StopOrder      int
	Progress       float64
	TransporterPos *Coordinates
	RemainingKm    *float64
	EtaMinutes     *float64
	PickedUpAt     *time.Time
}

// Destination converts the pickup into a routable stop. The boolean is false
// when the pickup has no coordinates.
func (p *Pickup) Destination() (Destination, bool) {
	if p.Coords == nil {
		return Destination{}, false
	}
	return Destination{
		ID:       strconv.FormatInt(p.ID, 10),
		Label:    p.Product + " - " + p.Farmer,
		Locality: p.City,
		Coords:   *p.Coords,
		Payload:  p,
	}, true
}

// SalePrice prefers the predicted price and falls back to the asking price.
func (p *Pickup) SalePrice() float64 {
	if p.PredictedPrice != nil {
		return *p.PredictedPrice
	}
	return p.Price
}

// Accept assigns the pickup to a transporter starting from base.
// An empty routeName marks an individual delivery.
func (p *Pickup) Accept(transporter, routeName string, stopOrder int, base Coordinates) error {
	if p.Status != StatusPending {
		return fmt.Errorf("accept pickup %d: status %s: %w", p.ID, p.Status, ErrInvalidTransition)
	}
	if strings.TrimSpace(transporter) == "" {
		return fmt.Errorf("accept pickup %d: transporter must be non-empty", p.ID)
	}
	if stopOrder < 1 {
		return fmt.Errorf("accept pickup %d: stop order must be >= 1, got %d", p.ID, stopOrder)
	}

	pos := base
	p.Status = StatusAccepted
	p.Transporter = transporter
	p.RouteName = routeName
	p.StopOrder = stopOrder
	p.Progress = 0
	p.TransporterPos = &pos
	p.RemainingKm = nil
	p.EtaMinutes = nil
	return nil
}

// MarkPickedUp records collection once the transporter has arrived.
func (p *Pickup) MarkPickedUp(at time.Time) error {
	if p.Status != StatusAccepted {
		return fmt.Errorf("mark picked up %d: status %s: %w", p.ID, p.Status, ErrInvalidTransition)
	}
	if p.Progress < PickupProgressThreshold {
		return fmt.Errorf("mark picked up %d: progress %.2f below %.2f: %w",
			p.ID, p.Progress, PickupProgressThreshold, ErrInvalidTransition)
	}
	p.Status = StatusPickedUp
	p.PickedUpAt = &at
	return nil
}

// Withdraw removes a collected pickup from the marketplace.
func (p *Pickup) Withdraw() error {
	if p.Status != StatusPickedUp {
		return fmt.Errorf("withdraw pickup %d: status %s: %w", p.ID, p.Status, ErrInvalidTransition)
	}
	p.Status = StatusWithdrawn
	return nil
}

// Sell removes quantityKg from the lot, either straight from the farm or
// from a transporter's stock. Selling the whole lot marks the pickup sold;
// a partial sale keeps the remainder on offer with prices scaled to it.
// It returns the quantity actually sold.
func (p *Pickup) Sell(quantityKg float64) (float64, error) {
	if p.Status != StatusPending && p.Status != StatusPickedUp {
		return 0, fmt.Errorf("sell pickup %d: status %s: %w", p.ID, p.Status, ErrInvalidTransition)
	}
	if !(quantityKg > 0) || quantityKg > p.QuantityKg+quantityEpsilon {
		return 0, fmt.Errorf("sell pickup %d: %.2f kg of %.2f kg: %w", p.ID, quantityKg, p.QuantityKg, ErrInvalidQuantity)
	}

	if p.QuantityKg-quantityKg <= quantityEpsilon {
		p.Status = StatusSold
		return p.QuantityKg, nil
	}

	remaining := p.QuantityKg - quantityKg
	ratio := remaining / p.QuantityKg
	p.QuantityKg = remaining
	p.Price *= ratio
	if p.PredictedPrice != nil {
		scaled := *p.PredictedPrice * ratio
		p.PredictedPrice = &scaled
	}
	return quantityKg, nil
}

// UnitPrice is the sale price per kilogram, or 0 for an empty lot.
func (p *Pickup) UnitPrice() float64 {
	if p.QuantityKg <= 0 {
		return 0
	}
	return p.SalePrice() / p.QuantityKg
}
