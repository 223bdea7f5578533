package units

import "github.com/shopspring/decimal"

// ToBase expresses qty of unit u in base units.
func ToBase(qty decimal.Decimal, u Unit) decimal.Decimal {
	return qty.Mul(u.BaseQuantity)
}

// FromBase expresses a base-unit quantity in unit u.
func FromBase(baseQty decimal.Decimal, u Unit) decimal.Decimal {
	return baseQty.Div(u.BaseQuantity)
}

// ConvertQuantity re-expresses qty from one unit in another without rounding.
func ConvertQuantity(qty decimal.Decimal, from, to Unit) decimal.Decimal {
	if from.BaseQuantity.Equal(to.BaseQuantity) {
		return qty
	}
	return FromBase(ToBase(qty, from), to)
}

// ConvertQuantityByID resolves both units before converting.
func ConvertQuantityByID(r Resolver, qty decimal.Decimal, fromID, toID string) (decimal.Decimal, error) {
	from, err := r.Resolve(fromID)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := r.Resolve(toID)
	if err != nil {
		return decimal.Zero, err
	}
	return ConvertQuantity(qty, from, to), nil
}

// ConvertPerUnit re-expresses an amount denominated per unit `from` (a cost
// or a price) as the amount per unit `to`. It is the inverse direction of
// ConvertQuantity: one carton costs 24 times one piece.
func ConvertPerUnit(amount decimal.Decimal, from, to Unit) decimal.Decimal {
	if from.BaseQuantity.Equal(to.BaseQuantity) {
		return amount
	}
	return amount.Div(from.BaseQuantity).Mul(to.BaseQuantity)
}
