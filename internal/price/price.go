// Package price renders rupee amounts the way the storefront displays them.
package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

const Symbol = "₹"

// Format renders amount with Indian digit grouping and at most two fraction
// digits, trailing zeros dropped: 123456.50 -> ₹1,23,456.5.
func Format(amount decimal.Decimal) string {
	s := amount.Round(2).String()
	return render(s)
}

// FormatFixed always prints two fraction digits: 3596 -> ₹3,596.00.
func FormatFixed(amount decimal.Decimal) string {
	return render(amount.StringFixed(2))
}

// FormatMinor formats an amount given in paise.
func FormatMinor(paise int64) string {
	return FormatFixed(decimal.New(paise, -2))
}

func render(s string) string {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	out := group(whole)
	if frac != "" {
		out += "." + frac
	}
	if negative {
		return "-" + Symbol + out
	}
	return Symbol + out
}

// group inserts separators after the last three digits and then every two.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]

	var b strings.Builder
	lead := len(head) % 2
	if lead > 0 {
		b.WriteString(head[:lead])
	}
	for i := lead; i < len(head); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(head[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(tail)
	return b.String()
}
