package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order is the record kept for the shopper's reference after a successful checkout.
type Order struct {
	ID       string          `json:"id"`
	Items    []LineItem      `json:"items"`
	Customer CustomerInfo    `json:"customer"`
	Total    decimal.Decimal `json:"total"`
	Date     time.Time       `json:"date"`
	Status   OrderStatus     `json:"status"`
	// PaymentID is the gateway transaction reference, kept for support inquiries.
	PaymentID string `json:"payment_id,omitempty"`
}
