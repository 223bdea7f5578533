package session

import (
	"fmt"

	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Line is one cart entry. It only lives inside a session.
type Line struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitID    string          `json:"unit_id"`
}

// LinePrice is a priced line. TaxPercent is only set by manual entries.
type LinePrice struct {
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

// PriceLine resolves the unit price of a line under the given mode and
// channel. The channel is only consulted in automatic mode.
func PriceLine(r units.Resolver, line Line, product pricing.Product, mode enums.PricingMode, channel enums.SellingChannel) (LinePrice, error) {
	if !line.Quantity.IsPositive() {
		return LinePrice{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "line quantity must be greater than zero").
			WithDetails(map[string]any{"line_id": line.ID, "quantity": line.Quantity.String()})
	}
	unit, err := r.Resolve(line.UnitID)
	if err != nil {
		return LinePrice{}, err
	}
	if !product.SoldIn(unit.ID) {
		return LinePrice{}, notConfigured(product, unit.ID, fmt.Sprintf("product %q is not sold in unit %q", product.Name, unit.ID))
	}

	var (
		unitPrice decimal.Decimal
		tax       decimal.Decimal
	)
	switch mode {
	case enums.PricingModeManual:
		entry, err := product.Manual.Lookup(unit.ID)
		if err != nil {
			return LinePrice{}, notConfigured(product, unit.ID, fmt.Sprintf("product %q has no manual price for unit %q", product.Name, unit.ID))
		}
		unitPrice, tax = entry.Price, entry.TaxPercent
	case enums.PricingModeAutomatic:
		if !channel.IsValid() {
			return LinePrice{}, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown selling channel %q", channel))
		}
		ch, ok := product.Channel(channel)
		if !ok {
			return LinePrice{}, notConfigured(product, unit.ID, fmt.Sprintf("product %q has no %s price", product.Name, channel))
		}
		unitPrice, err = ch.PriceFor(r, unit.ID)
		if err != nil {
			return LinePrice{}, err
		}
	default:
		return LinePrice{}, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown pricing mode %q", mode))
	}

	return LinePrice{
		UnitPrice:  unitPrice,
		LineTotal:  unitPrice.Mul(line.Quantity),
		TaxPercent: tax,
	}, nil
}

func notConfigured(product pricing.Product, unitID, msg string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodePriceNotConfigured, msg).
		WithDetails(map[string]any{"product_id": product.ID, "unit_id": unitID})
}
