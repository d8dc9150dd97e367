package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/undhyu/internal/domain"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicatePayment = errors.New("order for this payment already exists")
)

const EventOrderPlaced = "OrderPlaced"

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// VerifiedOrder is an order whose payment signature checked out.
type VerifiedOrder struct {
	ID              string              `json:"id"`
	Receipt         string              `json:"receipt"`
	RazorpayOrderID string              `json:"razorpay_order_id"`
	PaymentID       string              `json:"payment_id"`
	Amount          int64               `json:"amount"`
	Currency        string              `json:"currency"`
	Items           []domain.LineItem   `json:"items"`
	Customer        domain.CustomerInfo `json:"customer"`
	CreatedAt       time.Time           `json:"created_at"`
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type OrderRepository interface {
	SaveVerifiedOrder(ctx context.Context, order *VerifiedOrder) error
	GetOrder(ctx context.Context, id string) (*VerifiedOrder, error)
	GetOrderByPaymentID(ctx context.Context, paymentID string) (*VerifiedOrder, error)
	ListOrders(ctx context.Context, limit int) ([]*VerifiedOrder, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
