package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/undhyu/internal/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultAPIBase = "https://api.razorpay.com"

// Order is the subset of a Razorpay order the checkout needs.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type CreateOrderParams struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

// Client talks to the Razorpay Orders API with basic auth.
type Client struct {
	keyID      string
	keySecret  string
	apiBaseURL string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.apiBaseURL = strings.TrimRight(u, "/") }
}

func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(keyID, keySecret string, opts ...Option) (*Client, error) {
	keyID = strings.TrimSpace(keyID)
	keySecret = strings.TrimSpace(keySecret)
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}

	c := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		apiBaseURL: defaultAPIBase,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// KeyID is the publishable key the payment widget is opened with.
func (c *Client) KeyID() string {
	return c.keyID
}

// VerifyPayment checks a widget-reported payment against this client's secret.
func (c *Client) VerifyPayment(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

// CreateOrder registers an order so the widget can collect payment for it.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("invalid amount %d", params.Amount)
	}
	if params.Currency == "" {
		params.Currency = "INR"
	}

	return circuitbreaker.Execute(c.breaker, func() (*Order, error) {
		return c.createOrder(ctx, params)
	})
}

func (c *Client) createOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	body, err := json.Marshal(map[string]interface{}{
		"amount":   params.Amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"notes":    params.Notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Order
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("razorpay response decode failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		message := strings.TrimSpace(payload.Error.Description)
		if message == "" {
			message = fmt.Sprintf("razorpay returned status %d", resp.StatusCode)
		}
		return nil, errors.New(message)
	}
	if payload.ID == "" {
		return nil, errors.New("razorpay response missing order id")
	}

	order := payload.Order
	return &order, nil
}
