package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/checkout"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/shopper"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
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

// handleError maps the domain error taxonomy onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr   *domain.ValidationError
		unavailableErr  *domain.UnavailableError
		gatewayErr      *domain.GatewayError
		verificationErr *domain.VerificationError
		networkErr      *domain.NetworkError
		unknownFieldErr *domain.UnknownFieldError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "please correct the highlighted fields",
			Code:   "validation_error",
			Fields: validationErr.Fields,
		})
	case errors.As(err, &unavailableErr):
		respondError(w, http.StatusConflict, "unavailable", "Product not available")
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "Your cart is empty!")
	case errors.Is(err, domain.ErrPaymentInFlight):
		respondError(w, http.StatusConflict, "payment_in_flight", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, checkout.ErrSessionClosed),
		errors.Is(err, checkout.ErrResultMismatch):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.As(err, &verificationErr):
		respondJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error:   "Payment verification failed. Please contact support with your payment ID: " + verificationErr.PaymentID,
			Code:    "verification_failed",
			Details: verificationErr.PaymentID,
		})
	case errors.As(err, &gatewayErr):
		logger.WithContext(r.Context()).WithError(err).Warn("Payment gateway error")
		message := "Failed to initiate payment. Please try again."
		if gatewayErr.Op != "create intent" && gatewayErr.Err != nil {
			message = "Payment failed: " + gatewayErr.Err.Error()
		}
		respondError(w, http.StatusBadGateway, "gateway_error", message)
	case errors.As(err, &networkErr):
		logger.WithContext(r.Context()).WithError(err).Warn("Upstream unavailable")
		respondError(w, http.StatusServiceUnavailable, "network_error", "Something went wrong. Please try again.")
	case errors.Is(err, domain.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Product not found")
	case errors.Is(err, catalog.ErrCollectionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Collection not found")
	case errors.As(err, &unknownFieldErr),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrMissingProductID),
		errors.Is(err, domain.ErrNegativePrice),
		errors.Is(err, shopper.ErrInvalidID):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	default:
		logger.WithContext(r.Context()).WithError(err).Error("Unhandled error")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
