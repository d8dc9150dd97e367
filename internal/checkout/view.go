package checkout

import (
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/payment"
	"github.com/shopspring/decimal"
)

// View is a read-only copy of the orchestrator state.
type View struct {
	State     domain.PaymentState `json:"state"`
	InFlight  bool                `json:"payment_in_flight"`
	Items     []domain.LineItem   `json:"items"`
	BuyNow    bool                `json:"buy_now"`
	Customer  domain.CustomerInfo `json:"customer"`
	Errors    map[string]string   `json:"errors,omitempty"`
	OrderID   string              `json:"order_id,omitempty"`
	Total     decimal.Decimal     `json:"total"`
	Amount    int64               `json:"amount"`
	Intent    *payment.Intent     `json:"intent,omitempty"`
	PaymentID string              `json:"payment_id,omitempty"`
	Message   string              `json:"message,omitempty"`
}
