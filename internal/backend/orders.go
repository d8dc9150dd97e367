package backend

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/undhyu/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ordersResponse struct {
	Orders []*repository.VerifiedOrder `json:"orders"`
}

func (h *Handler) ordersAvailable(w http.ResponseWriter) bool {
	if h.deps.Orders == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "order storage is not configured")
		return false
	}
	return true
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if !h.ordersAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			respondError(w, http.StatusBadRequest, "invalid_query", "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	orders, err := h.deps.Orders.ListOrders(ctx, limit)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*repository.VerifiedOrder{}
	}

	respondJSON(w, http.StatusOK, ordersResponse{Orders: orders})
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	if !h.ordersAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.deps.Orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, repository.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
