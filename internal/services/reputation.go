package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"context"
	"fmt"
	"math"
	"strings"
)

// Reputation summarizes how a seller (farmer or transporter) has performed.
// Percentages are 0..100.
type Reputation struct {
	Seller         string
	Score          float64
	TotalPickups   int
	GoodQualityPct float64
	Delivered      int
	DeliveredPct   float64
	AveragePrice   float64
	Purchases      int
	AverageRating  float64
	RatedPurchases int
}

// SellerReputation scores seller over every pickup they farmed or carried:
// half the share of good quality lots, 0.3 of the share delivered or sold,
// plus up to 20 points for volume (two per pickup). Ratings left on
// purchases are reported alongside and do not affect the score.
func SellerReputation(
	ctx context.Context,
	seller string,
	repo ports.PickupRepository,
	purchases ports.PurchaseRepository,
) (Reputation, error) {
	rep := Reputation{Seller: seller}
	if strings.TrimSpace(seller) == "" {
		return rep, nil
	}

	farmed, err := repo.ListPickups(ctx, ports.PickupFilter{Farmer: seller})
	if err != nil {
		return Reputation{}, fmt.Errorf("seller reputation %q: %w", seller, err)
	}
	carried, err := repo.ListPickups(ctx, ports.PickupFilter{Transporter: seller})
	if err != nil {
		return Reputation{}, fmt.Errorf("seller reputation %q: %w", seller, err)
	}

	seen := make(map[int64]bool, len(farmed)+len(carried))
	good, priced := 0, 0
	priceSum := 0.0
	for _, p := range append(farmed, carried...) {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		rep.TotalPickups++
		if goodQuality(p.Quality) {
			good++
		}
		if p.Status == domain.StatusPickedUp || p.Status == domain.StatusSold {
			rep.Delivered++
		}
		if p.PredictedPrice != nil {
			priceSum += *p.PredictedPrice
			priced++
		}
	}

	sales, err := purchases.ListPurchases(ctx, ports.PurchaseFilter{Seller: seller})
	if err != nil {
		return Reputation{}, fmt.Errorf("seller reputation %q: %w", seller, err)
	}
	ratingSum := 0
	for _, s := range sales {
		rep.Purchases++
		if s.Rating > 0 {
			ratingSum += s.Rating
			rep.RatedPurchases++
		}
	}
	if rep.RatedPurchases > 0 {
		rep.AverageRating = round1(float64(ratingSum) / float64(rep.RatedPurchases))
	}

	if rep.TotalPickups == 0 {
		return rep, nil
	}

	total := float64(rep.TotalPickups)
	goodPct := float64(good) / total * 100
	deliveredPct := float64(rep.Delivered) / total * 100
	rep.GoodQualityPct = round1(goodPct)
	rep.DeliveredPct = round1(deliveredPct)
	rep.Score = round1(goodPct*0.5 + deliveredPct*0.3 + min(total/10*20, 20))
	if priced > 0 {
		rep.AveragePrice = math.Round(priceSum / float64(priced))
	}
	return rep, nil
}

func goodQuality(q string) bool {
	switch strings.ToLower(strings.TrimSpace(q)) {
	case "buena", "alta":
		return true
	}
	return false
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
