package http

import (
	"net/http"
	"time"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/payment"
	"github.com/fjod/undhyu/internal/shopper"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Sessions *shopper.Registry
	Catalog  catalog.Source
	// Results is set when payment outcomes are produced server side.
	Results            payment.ResultSource
	VerificationWindow time.Duration
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

// NewRouter wires the storefront API.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.VerificationWindow <= 0 {
		cfg.VerificationWindow = 5 * time.Minute
	}

	catalogHandler := NewCatalogHandler(cfg.Catalog, cfg.RequestTimeout)
	cartHandler := NewCartHandler(cfg.Sessions, cfg.Catalog, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(cfg.Sessions, cfg.Catalog, cfg.Results, cfg.VerificationWindow, cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.Sessions, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/products", catalogHandler.ListProducts)
			r.Get("/products/{handle}", catalogHandler.GetProduct)
			r.Get("/collections", catalogHandler.ListCollections)
			r.Get("/collections/featured", catalogHandler.FeaturedCollections)
			r.Get("/collections/{handle}", catalogHandler.GetCollection)
		})

		r.Group(func(r chi.Router) {
			r.Use(ShopperMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
				r.Post("/toggle", cartHandler.Toggle)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", checkoutHandler.Get)
				r.Post("/", checkoutHandler.Start)
				r.Delete("/", checkoutHandler.Cancel)
				r.Patch("/customer", checkoutHandler.UpdateCustomer)
				r.Post("/submit", checkoutHandler.Submit)
				r.Post("/result", checkoutHandler.Result)
			})

			r.Get("/orders", ordersHandler.List)
		})
	})

	return r
}
