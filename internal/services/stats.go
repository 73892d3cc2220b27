package services

import (
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"context"
	"fmt"
)

// Stats summarizes a transporter's work.
type Stats struct {
	Transporter     string
	Active          int
	PickedUp        int
	Sold            int
	ActiveIncome    float64
	SoldIncome      float64
	AverageProgress float64
}

// TransporterStats aggregates the pickups assigned to transporter. Active
// income uses asking prices; sold income prefers the predicted price.
func TransporterStats(ctx context.Context, transporter string, repo ports.PickupRepository) (Stats, error) {
	pickups, err := repo.ListPickups(ctx, ports.PickupFilter{Transporter: transporter})
	if err != nil {
		return Stats{}, fmt.Errorf("transporter stats %q: %w", transporter, err)
	}

	s := Stats{Transporter: transporter}
	progressSum := 0.0
	for _, p := range pickups {
		switch p.Status {
		case domain.StatusAccepted:
			s.Active++
			s.ActiveIncome += p.Price
			progressSum += p.Progress
		case domain.StatusPickedUp:
			s.PickedUp++
		case domain.StatusSold:
			s.Sold++
			s.SoldIncome += p.SalePrice()
		}
	}

	if s.Active > 0 {
		s.AverageProgress = progressSum / float64(s.Active)
	}
	return s, nil
}
