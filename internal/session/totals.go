package session

import (
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Totals aggregates priced lines only. UnpricedLines counts what was left out.
type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	PricedLines     int             `json:"priced_lines"`
	UnpricedLines   int             `json:"unpriced_lines"`
}

// ComputeTotals sums line totals and applies the discount percent.
func ComputeTotals(lines []LinePrice, unpriced int, discountPercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	discount := subtotal.Mul(discountPercent).Div(hundred)
	return Totals{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Discount:        discount,
		Total:           subtotal.Sub(discount),
		PricedLines:     len(lines),
		UnpricedLines:   unpriced,
	}
}

func validateDiscount(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeInvalidInput, "discount percent must be between 0 and 100").
			WithDetails(map[string]any{"field": "discount_percent", "value": p.String()})
	}
	return nil
}
