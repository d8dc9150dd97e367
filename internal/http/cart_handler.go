package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/fjod/undhyu/internal/cart"
	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/price"
	"github.com/fjod/undhyu/internal/shopper"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	sessions *shopper.Registry
	catalog  catalog.Source
	timeout  time.Duration
}

func NewCartHandler(sessions *shopper.Registry, source catalog.Source, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  source,
		timeout:  timeout,
	}
}

// AddItemRequestDTO names a catalog product by handle. Prices always come
// from the catalog.
type AddItemRequestDTO struct {
	Handle    string `json:"handle"`
	VariantID string `json:"variant_id"`
	Quantity  *int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items            []domain.LineItem `json:"items"`
	Count            int               `json:"count"`
	Total            decimal.Decimal   `json:"total"`
	TotalDisplay     string            `json:"total_display"`
	IsOpen           bool              `json:"is_open"`
	KeyMode          string            `json:"key_mode"`
	Merged           bool              `json:"merged,omitempty"`
	ShowConfirmation bool              `json:"show_confirmation,omitempty"`
}

func newCartResponse(store *cart.Store) CartResponse {
	total := store.Total()
	return CartResponse{
		Items:        store.Items(),
		Count:        store.Count(),
		Total:        total,
		TotalDisplay: price.Format(total),
		IsOpen:       store.IsOpen(),
		KeyMode:      store.KeyMode().String(),
	}
}

func (h *CartHandler) session(w http.ResponseWriter, r *http.Request) (*shopper.Session, bool) {
	sess, err := h.sessions.Get(r.Context(), getShopperIDFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if req.Handle == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "handle is required")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.Handle)
	if err != nil {
		handleError(w, r, err)
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := sess.Cart.AddVariant(ctx, product, req.VariantID, quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := newCartResponse(sess.Cart)
	resp.Merged = res.Merged
	resp.ShowConfirmation = res.ShowConfirmation
	respondJSON(w, http.StatusCreated, resp)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := lineKeyFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Cart.UpdateQuantity(ctx, key, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	key, ok := lineKeyFromRequest(w, r)
	if !ok {
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Cart.RemoveItem(ctx, key); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Cart.Clear(ctx); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

func (h *CartHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	sess.Cart.Toggle()
	respondJSON(w, http.StatusOK, newCartResponse(sess.Cart))
}

// lineKeyFromRequest reads the product id from the path. Shopify ids contain
// slashes, so clients send them escaped.
func lineKeyFromRequest(w http.ResponseWriter, r *http.Request) (domain.LineKey, bool) {
	productID, err := url.PathUnescape(chi.URLParam(r, "product_id"))
	if err != nil || productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return domain.LineKey{}, false
	}

	return domain.LineKey{
		ProductID: productID,
		VariantID: r.URL.Query().Get("variant_id"),
	}, true
}
