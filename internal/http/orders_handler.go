package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/shopper"
)

type OrdersHandler struct {
	sessions *shopper.Registry
	timeout  time.Duration
}

func NewOrdersHandler(sessions *shopper.Registry, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		sessions: sessions,
		timeout:  timeout,
	}
}

type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
}

func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.sessions.Get(ctx, getShopperIDFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	orders, err := sess.Orders.List(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	respondJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}
