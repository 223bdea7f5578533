package pricing

import "github.com/shopspring/decimal"

// Presentation rounding. Nothing in the engine calls these; they are for
// DTOs and receipts only.

const (
	currencyPlaces = 2
	percentPlaces  = 2
)

func PresentCurrency(d decimal.Decimal) decimal.Decimal { return d.Round(currencyPlaces) }

func PresentPercent(d decimal.Decimal) decimal.Decimal { return d.Round(percentPlaces) }

// PresentUnitCost rounds a unit cost to a whole amount for display.
func PresentUnitCost(d decimal.Decimal) decimal.Decimal { return d.Round(0) }
