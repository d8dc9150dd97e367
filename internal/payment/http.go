package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPGateway calls the backend's Razorpay endpoints.
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

func NewHTTPGateway(baseURL string, timeout time.Duration, breaker *circuitbreaker.Breaker) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}
}

type createOrderBody struct {
	Amount       int64               `json:"amount"`
	Currency     string              `json:"currency"`
	Cart         []domain.LineItem   `json:"cart"`
	CustomerInfo domain.CustomerInfo `json:"customer_info"`
	Receipt      string              `json:"receipt,omitempty"`
}

type verifyBody struct {
	OrderID      string              `json:"razorpay_order_id"`
	PaymentID    string              `json:"razorpay_payment_id"`
	Signature    string              `json:"razorpay_signature"`
	Cart         []domain.LineItem   `json:"cart"`
	CustomerInfo domain.CustomerInfo `json:"customer_info"`
	Receipt      string              `json:"receipt,omitempty"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	body := createOrderBody{
		Amount:       req.Amount,
		Currency:     req.Currency,
		Cart:         req.Items,
		CustomerInfo: req.Customer,
		Receipt:      req.OrderID,
	}

	var resp struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Key      string `json:"key"`
	}
	if err := g.post(ctx, "/api/create-razorpay-order", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("create order response missing id")
	}

	return &Intent{
		OrderID:        req.OrderID,
		GatewayOrderID: resp.ID,
		Amount:         resp.Amount,
		Currency:       resp.Currency,
		Key:            resp.Key,
	}, nil
}

func (g *HTTPGateway) Verify(ctx context.Context, req VerifyRequest) (Verification, error) {
	body := verifyBody{
		OrderID:      req.GatewayOrderID,
		PaymentID:    req.PaymentID,
		Signature:    req.Signature,
		Cart:         req.Items,
		CustomerInfo: req.Customer,
		Receipt:      req.OrderID,
	}

	var resp struct {
		Success bool   `json:"success"`
		OrderID string `json:"order_id"`
	}
	if err := g.post(ctx, "/api/verify-payment", body, &resp); err != nil {
		return Verification{}, err
	}
	return Verification{Success: resp.Success, OrderID: resp.OrderID}, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, body, out interface{}) error {
	_, err := circuitbreaker.Execute(g.breaker, func() (struct{}, error) {
		return struct{}{}, g.doPost(ctx, path, body, out)
	})
	if err != nil {
		return &domain.NetworkError{Op: "POST " + path, Err: err}
	}
	return nil
}

func (g *HTTPGateway) doPost(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
