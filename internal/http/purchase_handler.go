package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type PurchaseHandler struct {
	purchases *service.PurchaseService
}

func NewPurchaseHandler(purchases *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

type CheckoutRequestDTO struct {
	ProductIDs []string `json:"product_ids"`
}

type CheckoutResponse struct {
	Purchases []*domain.Purchase `json:"purchases"`
	Total     decimal.Decimal    `json:"total"`
	Warning   string             `json:"warning,omitempty"`
}

type PurchasesResponse struct {
	Purchases []*domain.Purchase `json:"purchases"`
}

type PurchasedResponse struct {
	ProductID string `json:"product_id"`
	Purchased bool   `json:"purchased"`
}

// Checkout buys the listed product ids, or the caller's whole cart when the body is empty.
func (h *PurchaseHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CheckoutRequestDTO
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		badJSON(w, err)
		return
	}

	var (
		result *domain.PurchaseResult
		err    error
	)
	if len(req.ProductIDs) == 0 {
		result, err = h.purchases.CheckoutCart(r.Context(), userID)
	} else {
		result, err = h.purchases.CreatePurchase(r.Context(), userID, req.ProductIDs)
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := CheckoutResponse{Purchases: result.Purchases, Total: result.Total()}
	if result.CartClearErr != nil {
		resp.Warning = "purchase completed but the cart could not be cleared"
	}
	respondJSON(w, http.StatusCreated, resp)
}

func (h *PurchaseHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	purchases, err := h.purchases.PurchaseHistory(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PurchasesResponse{Purchases: purchases})
}

func (h *PurchaseHandler) Recent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	purchases, err := h.purchases.RecentPurchases(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PurchasesResponse{Purchases: purchases})
}

func (h *PurchaseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stats, err := h.purchases.PurchaseStats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.purchases.GetPurchase(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// Purchased reports whether the caller has bought the product in the path.
func (h *PurchaseHandler) Purchased(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "id")
	bought, err := h.purchases.HasPurchased(r.Context(), userID, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PurchasedResponse{ProductID: productID, Purchased: bought})
}

func (h *PurchaseHandler) Sales(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sales, err := h.purchases.SalesHistory(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PurchasesResponse{Purchases: sales})
}

func (h *PurchaseHandler) SalesStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stats, err := h.purchases.SalesStats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
