package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/undhyu/internal/cache"
	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/razorpay"
	"github.com/fjod/undhyu/internal/repository"
	"github.com/fjod/undhyu/internal/shopify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Catalog is the product source behind the catalog endpoints.
type Catalog interface {
	Products(ctx context.Context, q shopify.ProductQuery) (shopify.ProductPage, error)
	ProductByHandle(ctx context.Context, handle string) (domain.Product, error)
	Collections(ctx context.Context, first int, after, search string) (shopify.CollectionPage, error)
	CollectionByHandle(ctx context.Context, handle string) (domain.Collection, error)
	Featured(ctx context.Context) ([]domain.Collection, error)
}

// Payments creates gateway orders and checks payment signatures.
type Payments interface {
	KeyID() string
	CreateOrder(ctx context.Context, params razorpay.CreateOrderParams) (*razorpay.Order, error)
	VerifyPayment(orderID, paymentID, signature string) bool
}

type StatusStore interface {
	Create(ctx context.Context, clientName string) (*repository.StatusCheck, error)
	List(ctx context.Context) ([]repository.StatusCheck, error)
}

// Deps are the collaborators of the API. Nil ones disable their endpoints.
type Deps struct {
	Catalog  Catalog
	Payments Payments
	Orders   repository.OrderRepository
	Status   StatusStore
	Cache    cache.Cache
}

type Handler struct {
	deps    Deps
	timeout time.Duration
}

func NewHandler(deps Deps, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{deps: deps, timeout: timeout}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error(err, "Failed to encode response", nil)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleUpstreamError maps Shopify and Razorpay failures onto statuses.
func handleUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		gqlErr    *shopify.GraphQLError
		statusErr *shopify.StatusError
	)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
	case errors.Is(err, catalog.ErrCollectionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Collection not found")
	case errors.As(err, &gqlErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid catalog query", Code: "graphql_error", Details: gqlErr.Error()})
	case errors.Is(err, circuitbreaker.ErrOpen):
		respondError(w, http.StatusServiceUnavailable, "unavailable", "upstream temporarily unavailable")
	case errors.As(err, &statusErr):
		logger.WithContext(r.Context()).WithError(err).Warn("Shopify request failed")
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "catalog upstream error", Code: "upstream_error", Details: statusErr.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "upstream timed out")
	default:
		logger.WithContext(r.Context()).WithError(err).Error("Upstream call failed")
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal_error", Details: err.Error()})
	}
}

// Routes builds the /api router.
func (h *Handler) Routes(corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Root)
		r.Get("/health", h.Health)

		r.Get("/status", h.ListStatusChecks)
		r.Post("/status", h.CreateStatusCheck)

		r.Get("/products", h.ListProducts)
		r.Get("/products/{handle}", h.GetProduct)
		r.Get("/collections", h.ListCollections)
		r.Get("/collections/featured", h.FeaturedCollections)
		r.Get("/collections/{handle}", h.GetCollection)

		r.Post("/create-razorpay-order", h.CreatePaymentOrder)
		r.Post("/verify-payment", h.VerifyPayment)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
	})

	return r
}
