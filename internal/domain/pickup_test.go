package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPickupLifecycle(t *testing.T) {
	// build test data
	coords := Coordinates{Lat: 5.8269, Lon: -73.0347}
	base := Coordinates{Lat: 5.5353, Lon: -73.3678}
	pkp := &Pickup{ID: 7, Farmer: "Ana", Product: "Papa", City: "Duitama", Status: StatusPending, Coords: &coords}

	// call the methods under test
	if err := pkp.Accept("Carlos", "Zona_1", 2, base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// verify behavior
	if pkp.Status != StatusAccepted {
		t.Fatalf("status = %s, want %s", pkp.Status, StatusAccepted)
	}
	if pkp.TransporterPos == nil || *pkp.TransporterPos != base {
		t.Fatalf("transporter position = %v, want %v", pkp.TransporterPos, base)
	}
	if pkp.StopOrder != 2 || pkp.RouteName != "Zona_1" {
		t.Errorf("route assignment = %q/%d, want Zona_1/2", pkp.RouteName, pkp.StopOrder)
	}

	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	pkp.Progress = 0.5
	if err := pkp.MarkPickedUp(at); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition below threshold, got %v", err)
	}

	pkp.Progress = 0.96
	if err := pkp.MarkPickedUp(at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pkp.PickedUpAt == nil || !pkp.PickedUpAt.Equal(at) {
		t.Errorf("PickedUpAt = %v, want %v", pkp.PickedUpAt, at)
	}

	if err := pkp.Withdraw(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := pkp.Sell(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("withdrawn pickup must not be sold, got %v", err)
	}
}

func TestPickupAcceptRejectsNonPending(t *testing.T) {
	pkp := &Pickup{ID: 1, Status: StatusSold}
	if err := pkp.Accept("Carlos", "", 1, Coordinates{}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	pending := &Pickup{ID: 2, Status: StatusPending}
	if err := pending.Accept("  ", "", 1, Coordinates{}); err == nil {
		t.Fatal("expected error for empty transporter")
	}
}

func TestPickupDestination(t *testing.T) {
	noCoords := &Pickup{ID: 3}
	if _, ok := noCoords.Destination(); ok {
		t.Fatal("pickup without coordinates must not be routable")
	}

	c := Coordinates{Lat: 1, Lon: 2}
	pkp := &Pickup{ID: 42, Farmer: "Luis", Product: "Cebolla", City: "Paipa", Coords: &c}
	d, ok := pkp.Destination()
	if !ok {
		t.Fatal("expected routable pickup")
	}
	if d.ID != "42" || d.Locality != "Paipa" || d.Coords != c {
		t.Errorf("destination = %+v", d)
	}
	if d.Payload.(*Pickup) != pkp {
		t.Error("payload must be the original pickup")
	}
}

func TestParsePickupStatus(t *testing.T) {
	cases := map[string]PickupStatus{
		"Pendiente":  StatusPending,
		"accepted":   StatusAccepted,
		" Recogido":  StatusPickedUp,
		"VENDIDO":    StatusSold,
		"Retirado":   StatusWithdrawn,
		"Entregado":  StatusSold,
		"Completado": StatusSold,
	}
	for in, want := range cases {
		got, err := ParsePickupStatus(in)
		if err != nil {
			t.Errorf("ParsePickupStatus(%q): unexpected error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParsePickupStatus(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParsePickupStatus("Despachado"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestPickupSalePrice(t *testing.T) {
	pkp := &Pickup{Price: 1000}
	if got := pkp.SalePrice(); got != 1000 {
		t.Errorf("SalePrice = %v, want 1000", got)
	}
	predicted := 1200.0
	pkp.PredictedPrice = &predicted
	if got := pkp.SalePrice(); got != 1200 {
		t.Errorf("SalePrice = %v, want 1200", got)
	}
}

func TestPickupSell(t *testing.T) {
	predicted := 1200.0
	pkp := &Pickup{ID: 9, Status: StatusPending, QuantityKg: 100, Price: 1000, PredictedPrice: &predicted}

	if got := pkp.UnitPrice(); got != 12 {
		t.Fatalf("UnitPrice = %v, want 12", got)
	}

	sold, err := pkp.Sell(40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sold != 40 {
		t.Errorf("sold = %v, want 40", sold)
	}
	if pkp.Status != StatusPending || pkp.QuantityKg != 60 {
		t.Errorf("after partial sale: status=%s qty=%v, want pending/60", pkp.Status, pkp.QuantityKg)
	}
	if pkp.Price != 600 || *pkp.PredictedPrice != 720 {
		t.Errorf("prices not scaled: price=%v predicted=%v", pkp.Price, *pkp.PredictedPrice)
	}
	if got := pkp.UnitPrice(); got != 12 {
		t.Errorf("UnitPrice after partial sale = %v, want 12", got)
	}

	for _, q := range []float64{0, -1, 61} {
		if _, err := pkp.Sell(q); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("Sell(%v): expected ErrInvalidQuantity, got %v", q, err)
		}
	}

	sold, err = pkp.Sell(60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sold != 60 || pkp.Status != StatusSold {
		t.Errorf("full sale: sold=%v status=%s, want 60/sold", sold, pkp.Status)
	}
	if _, err := pkp.Sell(1); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("sold pickup must not be sold again, got %v", err)
	}

	accepted := &Pickup{ID: 10, Status: StatusAccepted, QuantityKg: 5}
	if _, err := accepted.Sell(5); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pickup in transit must not be sold, got %v", err)
	}
}
