package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/checkout"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/payment"
	"github.com/fjod/undhyu/internal/price"
	"github.com/fjod/undhyu/internal/shopper"
)

type CheckoutHandler struct {
	sessions *shopper.Registry
	catalog  catalog.Source
	// results drives the payment widget server side when the gateway can do so.
	results payment.ResultSource
	window  time.Duration
	timeout time.Duration
}

func NewCheckoutHandler(sessions *shopper.Registry, source catalog.Source, results payment.ResultSource, window, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		catalog:  source,
		results:  results,
		window:   window,
		timeout:  timeout,
	}
}

type StartCheckoutRequestDTO struct {
	BuyNowHandle    string            `json:"buy_now_handle"`
	BuyNowVariantID string            `json:"buy_now_variant_id"`
	Items           []CheckoutItemDTO `json:"items"`
}

// CheckoutItemDTO picks a catalog variant for an explicit checkout. Lines are
// priced from the catalog, never from the request.
type CheckoutItemDTO struct {
	Handle    string `json:"handle"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type CheckoutResponse struct {
	checkout.View
	TotalDisplay  string `json:"total_display"`
	AmountDisplay string `json:"amount_display,omitempty"`
	Finished      bool   `json:"finished"`
}

type ResultErrorResponse struct {
	ErrorResponse
	Checkout CheckoutResponse `json:"checkout"`
}

type SubmitResponse struct {
	Intent   *payment.Intent  `json:"intent"`
	Checkout CheckoutResponse `json:"checkout"`
}

func newCheckoutResponse(view checkout.View) CheckoutResponse {
	resp := CheckoutResponse{
		View:         view,
		TotalDisplay: price.Format(view.Total),
		Finished:     view.State.IsTerminal(),
	}
	if view.Amount > 0 {
		resp.AmountDisplay = price.FormatMinor(view.Amount)
	}
	return resp
}

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (*shopper.Session, bool) {
	sess, err := h.sessions.Get(r.Context(), getShopperIDFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, newCheckoutResponse(sess.Checkout.View()))
}

// Start opens the delivery form for the cart, for explicit items, or for a
// single buy-now product.
func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StartCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var err error
	if req.BuyNowHandle != "" {
		var product domain.Product
		product, err = h.catalog.GetProduct(ctx, req.BuyNowHandle)
		if err == nil {
			err = sess.Checkout.BuyNow(ctx, product, req.BuyNowVariantID)
		}
	} else {
		var items []domain.LineItem
		items, err = h.resolveItems(ctx, req.Items, sess.Cart.KeyMode())
		if err == nil {
			err = sess.Checkout.StartCheckout(ctx, items)
		}
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, newCheckoutResponse(sess.Checkout.View()))
}

// resolveItems prices the requested lines from the catalog. Repeated
// variants collapse into one line the way the cart would merge them.
func (h *CheckoutHandler) resolveItems(ctx context.Context, reqs []CheckoutItemDTO, mode domain.KeyMode) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(reqs))
	index := make(map[domain.LineKey]int, len(reqs))
	for _, req := range reqs {
		if req.Handle == "" {
			return nil, domain.ErrMissingProductID
		}
		if req.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}

		product, err := h.catalog.GetProduct(ctx, req.Handle)
		if err != nil {
			return nil, err
		}
		variant, err := product.SelectVariant(req.VariantID)
		if err != nil {
			return nil, err
		}

		line := product.LineFor(variant, req.Quantity)
		key := line.Key().Normalize(mode)
		if i, ok := index[key]; ok {
			items[i].Quantity += line.Quantity
			continue
		}
		index[key] = len(items)
		items = append(items, line)
	}
	return items, nil
}

// UpdateCustomer applies the given form fields one by one, so only the
// fields present in the body lose their validation message.
func (h *CheckoutHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := sess.Checkout.EditField(ctx, name, fields[name]); err != nil {
			handleError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, newCheckoutResponse(sess.Checkout.View()))
}

// Submit creates the payment intent. With a server-side result source the
// widget outcome is awaited in the background and the client polls GET.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	intent, err := sess.Checkout.Submit(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	status := http.StatusOK
	if h.results != nil {
		status = http.StatusAccepted
		go h.await(sess, intent)
	}

	respondJSON(w, status, SubmitResponse{
		Intent:   intent,
		Checkout: newCheckoutResponse(sess.Checkout.View()),
	})
}

func (h *CheckoutHandler) await(sess *shopper.Session, intent *payment.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), h.window)
	defer cancel()

	view, err := sess.Checkout.Await(ctx, h.results.Results(ctx, intent))
	if err != nil && !errors.Is(err, checkout.ErrSessionClosed) {
		logger.Warn("Background payment resolution failed", map[string]interface{}{
			"shopper_id": sess.ID,
			"order_id":   intent.OrderID,
			"error":      err.Error(),
		})
		return
	}

	logger.Debug("Background payment resolved", map[string]interface{}{
		"shopper_id": sess.ID,
		"order_id":   intent.OrderID,
		"state":      view.State.String(),
	})
}

// Result accepts the payment widget callback from the client.
func (h *CheckoutHandler) Result(w http.ResponseWriter, r *http.Request) {
	var res payment.Result
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	view, err := sess.Checkout.Resolve(r.Context(), res)
	if err != nil {
		var (
			gatewayErr      *domain.GatewayError
			verificationErr *domain.VerificationError
		)
		// The payment outcome is final here, so the client gets the view too.
		switch {
		case errors.As(err, &verificationErr):
			respondJSON(w, http.StatusPaymentRequired, ResultErrorResponse{
				ErrorResponse: ErrorResponse{Error: view.Message, Code: "verification_failed", Details: verificationErr.PaymentID},
				Checkout:      newCheckoutResponse(view),
			})
		case errors.As(err, &gatewayErr):
			respondJSON(w, http.StatusBadGateway, ResultErrorResponse{
				ErrorResponse: ErrorResponse{Error: view.Message, Code: "gateway_error"},
				Checkout:      newCheckoutResponse(view),
			})
		default:
			handleError(w, r, err)
		}
		return
	}

	respondJSON(w, http.StatusOK, newCheckoutResponse(view))
}

func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := sess.Checkout.Cancel(); err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newCheckoutResponse(sess.Checkout.View()))
}
