package stock

import (
	"fmt"
	"math"

	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var maxStock = decimal.NewFromInt(math.MaxInt64)

// Purchase is the quantity side of a vendor purchase.
type Purchase struct {
	UnitID   string          `json:"unit_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Resolution is the stock a purchase produces. StockQuantity is whole
// accounting units, rounded half up.
type Resolution struct {
	BaseUnitQuantity decimal.Decimal `json:"base_unit_quantity"`
	StockQuantity    int64           `json:"stock_quantity"`
}

// ResolveStock converts a purchase into on-hand stock counted in the
// accounting unit.
func ResolveStock(r units.Resolver, p Purchase, accountingUnitID string) (Resolution, error) {
	if !p.Quantity.IsPositive() {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "purchase quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity", "value": p.Quantity.String()})
	}
	vendorUnit, err := r.Resolve(p.UnitID)
	if err != nil {
		return Resolution{}, err
	}
	accounting, err := r.Resolve(accountingUnitID)
	if err != nil {
		return Resolution{}, err
	}

	base := units.ToBase(p.Quantity, vendorUnit)
	whole := units.FromBase(base, accounting).Round(0)
	if whole.GreaterThan(maxStock) {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "resulting stock quantity is too large").
			WithDetails(map[string]any{"field": "quantity", "value": p.Quantity.String(), "stock_quantity": whole.String()})
	}
	return Resolution{
		BaseUnitQuantity: base,
		StockQuantity:    whole.IntPart(),
	}, nil
}

// Plan is the stock side of a product form for one branch.
type Plan struct {
	Mode             enums.StockMode
	Purchase         Purchase
	AccountingUnitID string
	// ManualQuantity is only read in manual mode; nil leaves stock untouched.
	ManualQuantity *decimal.Decimal
}

// Record is the stock figure to persist for a branch.
type Record struct {
	AccountingUnitID string          `json:"accounting_unit_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Derived          bool            `json:"derived"`
}

// Apply resolves the plan. ok is false when a manual plan carries no
// quantity and the stored figure must stay as it is.
func Apply(r units.Resolver, plan Plan) (rec Record, ok bool, err error) {
	if !plan.Mode.IsValid() {
		return Record{}, false, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown stock mode %q", plan.Mode))
	}
	accounting, err := r.Resolve(plan.AccountingUnitID)
	if err != nil {
		return Record{}, false, err
	}

	if plan.Mode == enums.StockModeManual {
		if plan.ManualQuantity == nil {
			return Record{}, false, nil
		}
		if plan.ManualQuantity.IsNegative() {
			return Record{}, false, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "stock quantity cannot be negative").
				WithDetails(map[string]any{"field": "stock_quantity", "value": plan.ManualQuantity.String()})
		}
		return Record{AccountingUnitID: accounting.ID, Quantity: *plan.ManualQuantity}, true, nil
	}

	res, err := ResolveStock(r, plan.Purchase, accounting.ID)
	if err != nil {
		return Record{}, false, err
	}
	return Record{
		AccountingUnitID: accounting.ID,
		Quantity:         decimal.NewFromInt(res.StockQuantity),
		Derived:          true,
	}, true, nil
}

// ToAccounting converts a sold or moved quantity into the accounting unit
// without rounding, so deductions never drift.
func ToAccounting(r units.Resolver, qty decimal.Decimal, unitID, accountingUnitID string) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity", "value": qty.String()})
	}
	return units.ConvertQuantityByID(r, qty, unitID, accountingUnitID)
}
