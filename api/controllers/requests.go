package controllers

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/branchpos-backend/api/validators"
	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	productsvc "github.com/angelmondragon/branchpos-backend/internal/products"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
)

const (
	maxSKULength  = 64
	maxNameLength = 200
)

type purchaseRequest struct {
	UnitID     string           `json:"unit_id" validate:"required"`
	TotalPrice *decimal.Decimal `json:"total_price" validate:"required"`
	Quantity   *decimal.Decimal `json:"quantity" validate:"required"`
}

func (p purchaseRequest) toVendorPurchase() pricing.VendorPurchase {
	return pricing.VendorPurchase{
		UnitID:     strings.TrimSpace(p.UnitID),
		TotalPrice: deref(p.TotalPrice),
		Quantity:   deref(p.Quantity),
	}
}

type channelRequest struct {
	Channel       string           `json:"channel" validate:"required"`
	UnitID        string           `json:"unit_id" validate:"required"`
	MarkupPercent *decimal.Decimal `json:"markup_percent"`
	SellingPrice  *decimal.Decimal `json:"selling_price,omitempty"`
}

func (c channelRequest) toInput() (pricing.ChannelInput, error) {
	if c.MarkupPercent == nil && c.SellingPrice == nil {
		return pricing.ChannelInput{}, pkgerrors.New(pkgerrors.CodeValidation, "markup_percent or selling_price is required").
			WithDetails(map[string]any{"channel": c.Channel})
	}
	return pricing.ChannelInput{
		Channel:       enums.SellingChannel(strings.ToLower(strings.TrimSpace(c.Channel))),
		UnitID:        strings.TrimSpace(c.UnitID),
		MarkupPercent: deref(c.MarkupPercent),
		SellingPrice:  c.SellingPrice,
	}, nil
}

type manualPriceRequest struct {
	UnitID     string           `json:"unit_id" validate:"required"`
	Price      *decimal.Decimal `json:"price" validate:"required"`
	TaxPercent *decimal.Decimal `json:"tax_percent,omitempty" validate:"omitempty,decimal_nonneg"`
}

// pricingRequest is the product form as sent by the client.
type pricingRequest struct {
	Purchase         purchaseRequest      `json:"purchase"`
	AccountingUnitID string               `json:"accounting_unit_id" validate:"required"`
	SoldUnitIDs      []string             `json:"sold_unit_ids" validate:"required,min=1,dive,required"`
	Channels         []channelRequest     `json:"channels,omitempty" validate:"omitempty,dive"`
	ManualPrices     []manualPriceRequest `json:"manual_prices,omitempty" validate:"omitempty,dive"`
	StockQuantity    *decimal.Decimal     `json:"stock_quantity,omitempty" validate:"omitempty,decimal_nonneg"`
}

func (p pricingRequest) toInput() (productsvc.PricingInput, error) {
	in := productsvc.PricingInput{
		Purchase:         p.Purchase.toVendorPurchase(),
		AccountingUnitID: strings.TrimSpace(p.AccountingUnitID),
		SoldUnitIDs:      make([]string, 0, len(p.SoldUnitIDs)),
		StockQuantity:    p.StockQuantity,
	}
	for _, id := range p.SoldUnitIDs {
		in.SoldUnitIDs = append(in.SoldUnitIDs, strings.TrimSpace(id))
	}
	for _, c := range p.Channels {
		ch, err := c.toInput()
		if err != nil {
			return productsvc.PricingInput{}, err
		}
		in.Channels = append(in.Channels, ch)
	}
	for _, m := range p.ManualPrices {
		in.ManualPrices = append(in.ManualPrices, pricing.ManualPriceEntry{
			UnitID:     strings.TrimSpace(m.UnitID),
			Price:      deref(m.Price),
			TaxPercent: deref(m.TaxPercent),
		})
	}
	return in, nil
}

type createProductRequest struct {
	SKU      string         `json:"sku" validate:"required"`
	Name     string         `json:"name" validate:"required"`
	IsActive *bool          `json:"is_active,omitempty"`
	Pricing  pricingRequest `json:"pricing"`
}

func (r createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	pricingInput, err := r.Pricing.toInput()
	if err != nil {
		return productsvc.CreateProductInput{}, err
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return productsvc.CreateProductInput{
		SKU:      validators.SanitizeString(r.SKU, maxSKULength),
		Name:     validators.SanitizeString(r.Name, maxNameLength),
		IsActive: active,
		Pricing:  pricingInput,
	}, nil
}

type updateProductRequest struct {
	SKU      *string         `json:"sku,omitempty"`
	Name     *string         `json:"name,omitempty"`
	IsActive *bool           `json:"is_active,omitempty"`
	Pricing  *pricingRequest `json:"pricing,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (productsvc.UpdateProductInput, error) {
	out := productsvc.UpdateProductInput{IsActive: r.IsActive}
	if r.SKU != nil {
		sku := validators.SanitizeString(*r.SKU, maxSKULength)
		out.SKU = &sku
	}
	if r.Name != nil {
		name := validators.SanitizeString(*r.Name, maxNameLength)
		out.Name = &name
	}
	if r.Pricing != nil {
		in, err := r.Pricing.toInput()
		if err != nil {
			return productsvc.UpdateProductInput{}, err
		}
		out.Pricing = &in
	}
	return out, nil
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
