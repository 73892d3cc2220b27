package handlers

import (
	"agro-route-service/internal/api/dto"
	"agro-route-service/internal/domain"
	"agro-route-service/internal/ports"
	"agro-route-service/internal/services"
	"net/http"
	"strings"
	"time"
)

// PurchaseHandler serves the buyer side: selling lots, purchase history
// and seller reputation.
type PurchaseHandler struct {
	Repo      ports.PickupRepository
	Purchases ports.PurchaseRepository
	Now       func() time.Time
}

func purchaseResponse(p *domain.Purchase) dto.PurchaseResponse {
	return dto.PurchaseResponse{
		ID:         p.ID,
		PickupID:   p.PickupID,
		Buyer:      p.Buyer,
		Seller:     p.Seller,
		Origin:     string(p.Origin),
		Product:    p.Product,
		City:       p.City,
		QuantityKg: p.QuantityKg,
		UnitPrice:  p.UnitPrice,
		TotalPrice: p.TotalPrice,
		Rating:     p.Rating,
		Comment:    p.Comment,
		CreatedAt:  p.CreatedAt,
	}
}

// Sell records a buyer taking all or part of a pickup.
func (h *PurchaseHandler) Sell(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req dto.SellRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sale, err := services.Sell(r.Context(), services.SaleRequest{
		PickupID:   id,
		Buyer:      req.Buyer,
		QuantityKg: req.QuantityKg,
		Rating:     req.Rating,
		Comment:    req.Comment,
		At:         h.Now(),
	}, h.Repo, h.Purchases)
	if err != nil {
		writeServiceError(w, r, "purchases.Sell", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SaleResponse{
		Purchase: purchaseResponse(sale.Purchase),
		Pickup:   pickupResponse(sale.Pickup),
	})
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	purchases, err := h.Purchases.ListPurchases(r.Context(), ports.PurchaseFilter{
		Buyer:  strings.TrimSpace(q.Get("buyer")),
		Seller: strings.TrimSpace(q.Get("seller")),
	})
	if err != nil {
		writeServiceError(w, r, "purchases.List", err)
		return
	}

	res := dto.ListPurchasesResponse{Purchases: make([]dto.PurchaseResponse, 0, len(purchases))}
	for _, p := range purchases {
		res.Purchases = append(res.Purchases, purchaseResponse(p))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *PurchaseHandler) Reputation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "seller is required")
		return
	}

	rep, err := services.SellerReputation(r.Context(), name, h.Repo, h.Purchases)
	if err != nil {
		writeServiceError(w, r, "sellers.Reputation", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ReputationResponse{
		Seller:         rep.Seller,
		Score:          rep.Score,
		TotalPickups:   rep.TotalPickups,
		GoodQualityPct: rep.GoodQualityPct,
		Delivered:      rep.Delivered,
		DeliveredPct:   rep.DeliveredPct,
		AveragePrice:   rep.AveragePrice,
		Purchases:      rep.Purchases,
		AverageRating:  rep.AverageRating,
		RatedPurchases: rep.RatedPurchases,
	})
}
