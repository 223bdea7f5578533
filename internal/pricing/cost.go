package pricing

import (
	"github.com/angelmondragon/branchpos-backend/internal/units"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// VendorPurchase is what the store paid a vendor: TotalPrice for Quantity of
// UnitID.
type VendorPurchase struct {
	UnitID     string          `json:"unit_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// UnitCost holds the derived costs of a purchase.
type UnitCost struct {
	CostPerBaseUnit     decimal.Decimal `json:"cost_per_base_unit"`
	CostPerPurchaseUnit decimal.Decimal `json:"cost_per_purchase_unit"`
}

// DeriveUnitCost splits the purchase total across the purchased quantity.
func DeriveUnitCost(r units.Resolver, p VendorPurchase) (UnitCost, error) {
	if p.TotalPrice.IsNegative() {
		return UnitCost{}, invalidInput("total_price", "total price cannot be negative", p.TotalPrice)
	}
	if !p.Quantity.IsPositive() {
		return UnitCost{}, invalidQuantity("quantity", "purchase quantity must be greater than zero", p.Quantity)
	}
	unit, err := r.Resolve(p.UnitID)
	if err != nil {
		return UnitCost{}, err
	}

	perPurchaseUnit := p.TotalPrice.Div(p.Quantity)
	return UnitCost{
		CostPerBaseUnit:     perPurchaseUnit.Div(unit.BaseQuantity),
		CostPerPurchaseUnit: perPurchaseUnit,
	}, nil
}

// CostInUnit expresses a per-base-unit cost as the cost of one u.
func CostInUnit(costPerBaseUnit decimal.Decimal, u units.Unit) decimal.Decimal {
	return costPerBaseUnit.Mul(u.BaseQuantity)
}

// ConvertCost re-expresses a cost per `from` as a cost per `to`.
func ConvertCost(cost decimal.Decimal, from, to units.Unit) decimal.Decimal {
	return units.ConvertPerUnit(cost, from, to)
}

func invalidInput(field, msg string, value decimal.Decimal) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidInput, msg).
		WithDetails(map[string]any{"field": field, "value": value.String()})
}

func invalidQuantity(field, msg string, value decimal.Decimal) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, msg).
		WithDetails(map[string]any{"field": field, "value": value.String()})
}
