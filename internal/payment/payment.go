package payment

import (
	"context"

	"github.com/fjod/undhyu/internal/domain"
)

// CreateRequest asks the gateway to prepare a payment for one checkout.
type CreateRequest struct {
	OrderID  string
	Amount   int64 // paise
	Currency string
	Items    []domain.LineItem
	Customer domain.CustomerInfo
}

// Intent is what the payment widget is opened with.
type Intent struct {
	OrderID        string `json:"order_id"`
	GatewayOrderID string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Key            string `json:"key"`
}

type ResultKind string

const (
	// ResultAuthorized means the widget reports a captured payment. It still
	// has to be verified server side.
	ResultAuthorized ResultKind = "authorized"
	// ResultDismissed means the shopper closed the widget.
	ResultDismissed ResultKind = "dismissed"
	// ResultFailed is a failure reported by the widget itself.
	ResultFailed ResultKind = "failed"
)

// Result is one event emitted by the payment widget.
type Result struct {
	Kind           ResultKind `json:"kind"`
	GatewayOrderID string     `json:"razorpay_order_id,omitempty"`
	PaymentID      string     `json:"razorpay_payment_id,omitempty"`
	Signature      string     `json:"razorpay_signature,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// VerifyRequest forwards a widget result with the original snapshot.
type VerifyRequest struct {
	OrderID        string
	GatewayOrderID string
	PaymentID      string
	Signature      string
	Items          []domain.LineItem
	Customer       domain.CustomerInfo
}

type Verification struct {
	Success bool
	OrderID string
}

// Gateway is the external payment collaborator.
type Gateway interface {
	CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error)
	Verify(ctx context.Context, req VerifyRequest) (Verification, error)
}

// ResultSource is implemented by gateways that can drive the widget themselves.
type ResultSource interface {
	Results(ctx context.Context, intent *Intent) <-chan Result
}
