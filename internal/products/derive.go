package product

import (
	"fmt"

	"github.com/angelmondragon/branchpos-backend/internal/branches"
	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/stock"
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// PricingInput is the editable state of the product form.
type PricingInput struct {
	Purchase         pricing.VendorPurchase
	AccountingUnitID string
	SoldUnitIDs      []string
	Channels         []pricing.ChannelInput
	ManualPrices     []pricing.ManualPriceEntry
	// StockQuantity is only honoured when the branch enters stock by hand.
	StockQuantity *decimal.Decimal
}

// Derived holds every value computed from a PricingInput.
type Derived struct {
	// SoldUnitIDs are the canonical catalog ids, in input order.
	SoldUnitIDs []string
	Cost        pricing.UnitCost
	Channels    []pricing.PriceChannel
	Manual      pricing.ManualPriceTable
	Resolution  *stock.Resolution
	Stock       *stock.Record
}

// Derive recomputes the form in dependency order: cost, then channel prices,
// then stock. Nothing is rounded.
func Derive(catalog units.Resolver, branch *branches.Branch, in PricingInput) (*Derived, error) {
	soldIDs, sold, err := resolveSoldUnits(catalog, in.SoldUnitIDs)
	if err != nil {
		return nil, err
	}

	cost, err := pricing.DeriveUnitCost(catalog, in.Purchase)
	if err != nil {
		return nil, err
	}

	channels, err := deriveChannels(catalog, branch, sold, cost.CostPerBaseUnit, in.Channels)
	if err != nil {
		return nil, err
	}

	manual, err := pricing.NewManualPriceTable(catalog, in.ManualPrices)
	if err != nil {
		return nil, err
	}
	for _, e := range manual.Entries() {
		if !sold[e.UnitID] {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("manual price for unit %q which the product is not sold in", e.UnitID)).
				WithDetails(map[string]any{"unit_id": e.UnitID})
		}
	}
	if branch.PricingMode == enums.PricingModeManual {
		for _, id := range soldIDs {
			if _, err := manual.Lookup(id); err != nil {
				return nil, err
			}
		}
	}

	out := &Derived{SoldUnitIDs: soldIDs, Cost: cost, Channels: channels, Manual: manual}

	plan := stock.Plan{
		Mode:             branch.StockMode,
		Purchase:         stock.Purchase{UnitID: in.Purchase.UnitID, Quantity: in.Purchase.Quantity},
		AccountingUnitID: in.AccountingUnitID,
		ManualQuantity:   in.StockQuantity,
	}
	rec, ok, err := stock.Apply(catalog, plan)
	if err != nil {
		return nil, err
	}
	if ok {
		out.Stock = &rec
	}
	if branch.StockMode == enums.StockModeAutomatic {
		res, err := stock.ResolveStock(catalog, plan.Purchase, in.AccountingUnitID)
		if err != nil {
			return nil, err
		}
		out.Resolution = &res
	}
	return out, nil
}

func resolveSoldUnits(catalog units.Resolver, ids []string) ([]string, map[string]bool, error) {
	if len(ids) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one selling unit is required")
	}
	ordered := make([]string, 0, len(ids))
	sold := make(map[string]bool, len(ids))
	for _, id := range ids {
		u, err := catalog.Resolve(id)
		if err != nil {
			return nil, nil, err
		}
		if sold[u.ID] {
			return nil, nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("selling unit %q listed twice", u.ID))
		}
		sold[u.ID] = true
		ordered = append(ordered, u.ID)
	}
	return ordered, sold, nil
}

// deriveChannels prices the channels the branch enables. Automatic-mode
// branches must configure all of them.
func deriveChannels(catalog units.Resolver, branch *branches.Branch, sold map[string]bool, costPerBaseUnit decimal.Decimal, inputs []pricing.ChannelInput) ([]pricing.PriceChannel, error) {
	byChannel := make(map[enums.SellingChannel]pricing.ChannelInput, len(inputs))
	for _, in := range inputs {
		if !in.Channel.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("unknown selling channel %q", in.Channel))
		}
		if _, dup := byChannel[in.Channel]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("channel %s configured twice", in.Channel))
		}
		byChannel[in.Channel] = in
	}

	var out []pricing.PriceChannel
	for _, ch := range branch.EnabledChannels() {
		in, ok := byChannel[ch]
		if !ok {
			if branch.PricingMode == enums.PricingModeAutomatic {
				return nil, pkgerrors.New(pkgerrors.CodePriceNotConfigured, fmt.Sprintf("%s price is required", ch)).
					WithDetails(map[string]any{"channel": ch})
			}
			continue
		}
		if !sold[in.UnitID] {
			if _, err := catalog.Resolve(in.UnitID); err != nil {
				return nil, err
			}
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("%s price unit %q is not a selling unit", ch, in.UnitID)).
				WithDetails(map[string]any{"channel": ch, "unit_id": in.UnitID})
		}
		pc, err := pricing.BuildPriceChannel(catalog, costPerBaseUnit, in)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}
