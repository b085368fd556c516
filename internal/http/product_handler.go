package http

import (
	"net/http"

	"github.com/fjod/ecofinds/internal/domain"
	"github.com/fjod/ecofinds/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	products *service.ProductService
}

func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
}

type CreateProductRequestDTO struct {
	ID string `json:"id,omitempty"`
	service.ProductInput
}

// List serves listing and search: ?q=&category=&seller=&status=&limit=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := domain.ProductFilter{
		Category: q.Get("category"),
		SellerID: q.Get("seller"),
		Status:   domain.ProductStatus(q.Get("status")),
		Limit:    limit,
	}
	if f.Status != "" && !f.Status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_status", "unknown product status")
		return
	}

	products, err := h.products.Search(r.Context(), q.Get("q"), f)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req CreateProductRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		badJSON(w, err)
		return
	}

	p, err := h.products.Create(r.Context(), userID, req.ID, req.ProductInput)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var upd domain.ProductUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		badJSON(w, err)
		return
	}

	p, err := h.products.Update(r.Context(), userID, chi.URLParam(r, "id"), upd)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.products.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.products.MarkSold(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func Categories(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"categories": domain.Categories})
}

func Conditions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"conditions": domain.Conditions})
}

func (h *ProductHandler) Available(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	products, err := h.products.Available(r.Context(), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// ByCategory lists available products in one category, newest first.
func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	products, err := h.products.ByCategory(r.Context(), chi.URLParam(r, "category"), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}

// BySeller lists every listing of a seller, sold ones included.
func (h *ProductHandler) BySeller(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.BySeller(r.Context(), chi.URLParam(r, "sellerID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products})
}
