package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/razorpay"
	"github.com/fjod/undhyu/internal/repository"
	"github.com/google/uuid"
)

type CreateOrderRequestDTO struct {
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	Cart         []domain.LineItem   `json:"cart"`
	CustomerInfo domain.CustomerInfo `json:"customer_info"`
	Receipt      string              `json:"receipt"`
}

type CreateOrderResponseDTO struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

type VerifyPaymentRequestDTO struct {
	RazorpayOrderID   string              `json:"razorpay_order_id"`
	RazorpayPaymentID string              `json:"razorpay_payment_id"`
	RazorpaySignature string              `json:"razorpay_signature"`
	Cart              []domain.LineItem   `json:"cart"`
	CustomerInfo      domain.CustomerInfo `json:"customer_info"`
	Receipt           string              `json:"receipt"`
}

type VerifyPaymentResponseDTO struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) paymentsAvailable(w http.ResponseWriter) bool {
	if h.deps.Payments == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "payments are not configured")
		return false
	}
	return true
}

// CreatePaymentOrder opens a Razorpay order for the amount the storefront fixed.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	if !h.paymentsAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be positive")
		return
	}
	if req.Currency == "" {
		req.Currency = domain.CurrencyINR
	}
	if req.Receipt == "" {
		req.Receipt = "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	}

	notes := map[string]string{}
	if name := req.CustomerInfo.FullName(); name != "" {
		notes["customer_name"] = name
	}
	if req.CustomerInfo.Email != "" {
		notes["customer_email"] = req.CustomerInfo.Email
	}

	order, err := h.deps.Payments.CreateOrder(ctx, razorpay.CreateOrderParams{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    notes,
	})
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("receipt", req.Receipt).Error("Failed to create Razorpay order")
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: "failed to create payment order", Code: "gateway_error", Details: err.Error()})
		return
	}

	logger.WithContext(ctx).WithField("razorpay_order_id", order.ID).WithField("amount", order.Amount).Info("Payment order created")
	respondJSON(w, http.StatusOK, CreateOrderResponseDTO{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Key:      h.deps.Payments.KeyID(),
	})
}

// VerifyPayment checks the widget signature and records the order once.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if !h.paymentsAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req VerifyPaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	if !h.deps.Payments.VerifyPayment(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		logger.WithContext(ctx).WithField("payment_id", req.RazorpayPaymentID).Warn("Payment signature mismatch")
		respondJSON(w, http.StatusOK, VerifyPaymentResponseDTO{Success: false, Error: "signature verification failed"})
		return
	}

	if h.deps.Orders == nil {
		respondJSON(w, http.StatusOK, VerifyPaymentResponseDTO{Success: true, OrderID: req.RazorpayOrderID})
		return
	}

	order := &repository.VerifiedOrder{
		Receipt:         req.Receipt,
		RazorpayOrderID: req.RazorpayOrderID,
		PaymentID:       req.RazorpayPaymentID,
		Amount:          domain.ToMinorUnits(domain.TotalOf(req.Cart)),
		Currency:        domain.CurrencyINR,
		Items:           req.Cart,
		Customer:        req.CustomerInfo,
	}
	err := h.deps.Orders.SaveVerifiedOrder(ctx, order)
	if errors.Is(err, repository.ErrDuplicatePayment) {
		existing, lookupErr := h.deps.Orders.GetOrderByPaymentID(ctx, req.RazorpayPaymentID)
		if lookupErr != nil {
			err = lookupErr
		} else {
			order, err = existing, nil
		}
	}
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("payment_id", req.RazorpayPaymentID).Error("Failed to record verified order")
		respondJSON(w, http.StatusInternalServerError, VerifyPaymentResponseDTO{Success: false, Error: "failed to record order"})
		return
	}

	logger.WithContext(ctx).WithField("order_id", order.ID).WithField("payment_id", order.PaymentID).Info("Payment verified")
	respondJSON(w, http.StatusOK, VerifyPaymentResponseDTO{Success: true, OrderID: order.ID})
}
