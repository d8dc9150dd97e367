package domain

import (
	"github.com/shopspring/decimal"
)

// KeyMode selects how line items are told apart.
type KeyMode int

const (
	// KeyByProduct keeps one line per product regardless of variant.
	KeyByProduct KeyMode = iota
	// KeyByVariant keeps one line per product variant.
	KeyByVariant
)

// ParseKeyMode maps the configuration value to a KeyMode, defaulting to KeyByProduct.
func ParseKeyMode(s string) KeyMode {
	if s == "variant" {
		return KeyByVariant
	}
	return KeyByProduct
}

func (m KeyMode) String() string {
	if m == KeyByVariant {
		return "variant"
	}
	return "product"
}

// LineKey identifies a line item in the cart.
type LineKey struct {
	ProductID string
	VariantID string
}

// Normalize drops the parts of the key the mode does not distinguish on.
func (k LineKey) Normalize(mode KeyMode) LineKey {
	if mode == KeyByProduct {
		return LineKey{ProductID: k.ProductID}
	}
	return k
}

// LineItem is one cart row. Title, price and image are captured when the
// product is added and never refreshed from the catalog.
type LineItem struct {
	ProductID string          `json:"id"`
	VariantID string          `json:"variant_id,omitempty"`
	Handle    string          `json:"handle,omitempty"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url,omitempty"`
	Quantity  int             `json:"quantity"`
}

func (l LineItem) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// Subtotal is unit price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Validate reports whether the line may exist in a cart.
func (l LineItem) Validate() error {
	if l.ProductID == "" {
		return ErrMissingProductID
	}
	if l.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// TotalOf sums unitPrice*quantity over items.
func TotalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CountOf sums quantities over items.
func CountOf(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// CloneItems returns a copy that shares nothing with the input slice.
func CloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// ToMinorUnits converts a rupee amount into paise, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
