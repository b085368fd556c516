package http

import (
	"net/http"
	"strings"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	carts *service.CartService
}

func NewCartHandler(carts *service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
}

type CartResponse struct {
	*domain.CartView
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type CartCountResponse struct {
	Count int `json:"count"`
}

type CartTotalResponse struct {
	Total decimal.Decimal `json:"total"`
}

type CartContainsResponse struct {
	ProductID string `json:"product_id"`
	InCart    bool   `json:"in_cart"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CartResponse{CartView: view, Count: view.Count(), Total: view.Total()})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req AddItemRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w, err)
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	if err := h.carts.AddItem(r.Context(), userID, req.ProductID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.respondCart(w, r, userID, http.StatusCreated)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.carts.RemoveItem(r.Context(), userID, chi.URLParam(r, "productID")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.respondCart(w, r, userID, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.carts.ClearCart(r.Context(), userID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	result, err := h.carts.ValidateCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *CartHandler) Count(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	n, err := h.carts.Count(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CartCountResponse{Count: n})
}

func (h *CartHandler) Total(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	total, err := h.carts.Total(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CartTotalResponse{Total: total})
}

// Contains answers 200 either way; in_cart tells whether the product is there.
func (h *CartHandler) Contains(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")
	in, err := h.carts.Contains(r.Context(), userID, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, CartContainsResponse{ProductID: productID, InCart: in})
}

func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, userID string, status int) {
	view, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, status, CartResponse{CartView: view, Count: view.Count(), Total: view.Total()})
}
