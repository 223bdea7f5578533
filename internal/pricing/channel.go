package pricing

import (
	"fmt"

	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MaxMarkupPercent bounds markups so margins stay representable below 100%
// and fit the stored numeric columns.
var MaxMarkupPercent = decimal.NewFromInt(1_000_000)

// ChannelPrice is the outcome of applying a markup to a unit cost.
type ChannelPrice struct {
	SellingPrice  decimal.Decimal `json:"selling_price"`
	MarginPercent decimal.Decimal `json:"margin_percent"`
}

// DeriveChannelPrice applies markupPercent to unitCost. Margin is reported
// unclamped; with non-negative inputs it always lands in [0, 100).
func DeriveChannelPrice(unitCost, markupPercent decimal.Decimal) (ChannelPrice, error) {
	if unitCost.IsNegative() {
		return ChannelPrice{}, invalidInput("unit_cost", "unit cost cannot be negative", unitCost)
	}
	if markupPercent.IsNegative() {
		return ChannelPrice{}, invalidInput("markup_percent", "markup cannot be negative", markupPercent)
	}
	if markupPercent.GreaterThan(MaxMarkupPercent) {
		return ChannelPrice{}, invalidInput("markup_percent", "markup is too large", markupPercent)
	}
	selling := unitCost.Add(unitCost.Mul(markupPercent).Div(hundred))
	return ChannelPrice{
		SellingPrice:  selling,
		MarginPercent: Margin(unitCost, selling),
	}, nil
}

// Margin is the share of sellingPrice that is profit, in percent. Zero when
// the price is zero.
func Margin(unitCost, sellingPrice decimal.Decimal) decimal.Decimal {
	if !sellingPrice.IsPositive() {
		return decimal.Zero
	}
	return sellingPrice.Sub(unitCost).Div(sellingPrice).Mul(hundred)
}

// DeriveMarkup is the reverse edit: the operator typed a selling price and
// the markup follows. A zero cost only admits a zero price.
func DeriveMarkup(unitCost, sellingPrice decimal.Decimal) (decimal.Decimal, error) {
	if unitCost.IsNegative() {
		return decimal.Zero, invalidInput("unit_cost", "unit cost cannot be negative", unitCost)
	}
	if sellingPrice.LessThan(unitCost) {
		return decimal.Zero, invalidInput("selling_price", "selling price cannot be below unit cost", sellingPrice)
	}
	if unitCost.IsZero() {
		if sellingPrice.IsZero() {
			return decimal.Zero, nil
		}
		return decimal.Zero, invalidQuantity("unit_cost", "markup is undefined for a zero unit cost", unitCost)
	}
	markup := sellingPrice.Sub(unitCost).Div(unitCost).Mul(hundred)
	if markup.GreaterThan(MaxMarkupPercent) {
		return decimal.Zero, invalidInput("selling_price", "selling price implies a markup that is too large", sellingPrice)
	}
	return markup, nil
}

// ChannelInput is the editable part of a price channel. When SellingPrice is
// set it wins and the markup is derived from it.
type ChannelInput struct {
	Channel       enums.SellingChannel `json:"channel"`
	UnitID        string               `json:"unit_id"`
	MarkupPercent decimal.Decimal      `json:"markup_percent"`
	SellingPrice  *decimal.Decimal     `json:"selling_price,omitempty"`
}

// PriceChannel is a fully derived channel. UnitCost and SellingPrice are per
// UnitID; UnitQuantity is that unit's base quantity.
type PriceChannel struct {
	Channel       enums.SellingChannel `json:"channel"`
	UnitID        string               `json:"unit_id"`
	UnitCost      decimal.Decimal      `json:"unit_cost"`
	MarkupPercent decimal.Decimal      `json:"markup_percent"`
	SellingPrice  decimal.Decimal      `json:"selling_price"`
	MarginPercent decimal.Decimal      `json:"margin_percent"`
	UnitQuantity  decimal.Decimal      `json:"unit_quantity"`
}

// BuildPriceChannel scales the per-base-unit cost to the channel unit and
// derives the price from it.
func BuildPriceChannel(r units.Resolver, costPerBaseUnit decimal.Decimal, in ChannelInput) (PriceChannel, error) {
	if !in.Channel.IsValid() {
		return PriceChannel{}, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown selling channel %q", in.Channel)).
			WithDetails(map[string]any{"field": "channel"})
	}
	unit, err := r.Resolve(in.UnitID)
	if err != nil {
		return PriceChannel{}, err
	}

	unitCost := CostInUnit(costPerBaseUnit, unit)
	markup := in.MarkupPercent
	var price ChannelPrice
	if in.SellingPrice != nil {
		markup, err = DeriveMarkup(unitCost, *in.SellingPrice)
		if err != nil {
			return PriceChannel{}, err
		}
		price = ChannelPrice{SellingPrice: *in.SellingPrice, MarginPercent: Margin(unitCost, *in.SellingPrice)}
	} else {
		price, err = DeriveChannelPrice(unitCost, markup)
		if err != nil {
			return PriceChannel{}, err
		}
	}

	return PriceChannel{
		Channel:       in.Channel,
		UnitID:        unit.ID,
		UnitCost:      unitCost,
		MarkupPercent: markup,
		SellingPrice:  price.SellingPrice,
		MarginPercent: price.MarginPercent,
		UnitQuantity:  unit.BaseQuantity,
	}, nil
}

// Restore rebuilds a persisted channel against the cost it was saved with.
// The stored selling price is kept, floored at the recomputed unit cost to
// absorb column rounding, and markup and margin follow from it.
func (c PriceChannel) Restore(r units.Resolver, costPerBaseUnit decimal.Decimal) (PriceChannel, error) {
	unit, err := r.Resolve(c.UnitID)
	if err != nil {
		return PriceChannel{}, err
	}
	price := decimal.Max(c.SellingPrice, CostInUnit(costPerBaseUnit, unit))
	return BuildPriceChannel(r, costPerBaseUnit, ChannelInput{
		Channel:      c.Channel,
		UnitID:       c.UnitID,
		SellingPrice: &price,
	})
}

// PriceFor re-expresses the channel selling price for another unit using the
// same base-unit scaling as costs.
func (c PriceChannel) PriceFor(r units.Resolver, unitID string) (decimal.Decimal, error) {
	target, err := r.Resolve(unitID)
	if err != nil {
		return decimal.Zero, err
	}
	if target.ID == c.UnitID {
		return c.SellingPrice, nil
	}
	if !c.UnitQuantity.IsPositive() {
		return decimal.Zero, invalidQuantity("unit_quantity", "channel unit quantity must be greater than zero", c.UnitQuantity)
	}
	return c.SellingPrice.Div(c.UnitQuantity).Mul(target.BaseQuantity), nil
}
