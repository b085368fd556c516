package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Products  *ProductHandler
	Carts     *CartHandler
	Purchases *PurchaseHandler
	Profiles  *ProfileHandler
	Verifier  TokenVerifier
	Store     Pinger
	Timeout   time.Duration
}

const defaultRequestTimeout = 30 * time.Second

func NewRouter(d RouterDeps) http.Handler {
	if d.Timeout <= 0 {
		d.Timeout = defaultRequestTimeout
	}
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := AuthMiddleware(d.Verifier)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalog/categories", Categories)
		r.Get("/catalog/conditions", Conditions)
		r.Get("/catalog/available", d.Products.Available)
		r.Get("/catalog/categories/{category}/products", d.Products.ByCategory)
		r.Get("/sellers/{sellerID}/products", d.Products.BySeller)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", d.Products.List)
			r.Get("/{id}", d.Products.Get)
			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/", d.Products.Create)
				r.Patch("/{id}", d.Products.Update)
				r.Delete("/{id}", d.Products.Delete)
				r.Post("/{id}/sold", d.Products.MarkSold)
				r.Get("/{id}/purchased", d.Purchases.Purchased)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/session", d.Profiles.SignIn)
			r.Get("/me", d.Profiles.Me)
			r.Patch("/me", d.Profiles.UpdateMe)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", d.Carts.GetCart)
				r.Delete("/", d.Carts.ClearCart)
				r.Get("/count", d.Carts.Count)
				r.Get("/total", d.Carts.Total)
				r.Post("/items", d.Carts.AddItem)
				r.Get("/items/{productID}", d.Carts.Contains)
				r.Delete("/items/{productID}", d.Carts.RemoveItem)
				r.Post("/validate", d.Carts.Validate)
			})

			r.Route("/purchases", func(r chi.Router) {
				r.Post("/", d.Purchases.Checkout)
				r.Get("/", d.Purchases.History)
				r.Get("/stats", d.Purchases.Stats)
				r.Get("/recent", d.Purchases.Recent)
				r.Get("/{id}", d.Purchases.Get)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", d.Purchases.Sales)
				r.Get("/stats", d.Purchases.SalesStats)
			})
		})
	})

	return otelhttp.NewHandler(r, "ecofinds-http")
}
