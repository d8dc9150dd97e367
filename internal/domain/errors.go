package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrPaymentInFlight   = errors.New("a payment is already in progress")
	ErrIllegalTransition = errors.New("illegal transition of checkout state")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrNegativePrice     = errors.New("unit price must not be negative")
	ErrMissingProductID  = errors.New("product id is required")
	ErrProductNotFound   = errors.New("product not found")
)

// ValidationError carries one message per invalid customer field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid customer info: " + strings.Join(names, ", ")
}

// UnavailableError is returned when a product cannot be bought right now.
type UnavailableError struct {
	ProductID string
	Reason    string
}

func (e *UnavailableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("product %s is not available", e.ProductID)
	}
	return fmt.Sprintf("product %s is not available: %s", e.ProductID, e.Reason)
}

// GatewayError wraps failures of payment intent creation or of the payment widget.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// VerificationError means the server did not confirm a payment the widget
// reported as successful. PaymentID is what the shopper quotes to support.
type VerificationError struct {
	PaymentID string
	Err       error
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payment verification failed, payment id %s", e.PaymentID)
	}
	return fmt.Sprintf("payment verification failed, payment id %s: %v", e.PaymentID, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// NetworkError wraps a failed call to an external collaborator.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown customer field %q", e.Field)
}
