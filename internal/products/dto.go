package product

import (
	"time"

	"github.com/angelmondragon/branchpos-backend/internal/pricing"
	"github.com/angelmondragon/branchpos-backend/internal/stock"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID               uuid.UUID   `json:"id"`
	StoreID          uuid.UUID   `json:"store_id"`
	SKU              string      `json:"sku"`
	Name             string      `json:"name"`
	IsActive         bool        `json:"is_active"`
	Purchase         PurchaseDTO `json:"purchase"`
	AccountingUnitID string      `json:"accounting_unit_id"`
	SoldUnitIDs      []string    `json:"sold_unit_ids"`
	Pricing          PricingDTO  `json:"pricing"`
	Stock            *StockDTO   `json:"stock,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type PurchaseDTO struct {
	UnitID     string          `json:"unit_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// PricingDTO is the derived half of the product form. Money is rounded to
// cents and percentages to two places; the stored values keep full precision.
type PricingDTO struct {
	CostPerBaseUnit     decimal.Decimal  `json:"cost_per_base_unit"`
	CostPerPurchaseUnit decimal.Decimal  `json:"cost_per_purchase_unit"`
	Channels            []ChannelDTO     `json:"channels"`
	ManualPrices        []ManualPriceDTO `json:"manual_prices"`
	Stock               *StockDTO        `json:"stock,omitempty"`
}

type ChannelDTO struct {
	Channel         string          `json:"channel"`
	UnitID          string          `json:"unit_id"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	UnitCostRounded decimal.Decimal `json:"unit_cost_rounded"`
	MarkupPercent   decimal.Decimal `json:"markup_percent"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	MarginPercent   decimal.Decimal `json:"margin_percent"`
	UnitQuantity    decimal.Decimal `json:"unit_quantity"`
}

type ManualPriceDTO struct {
	UnitID     string          `json:"unit_id"`
	Price      decimal.Decimal `json:"price"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

// StockDTO reports the branch stock. BaseUnitQuantity is only present when the
// figure was derived from the purchase.
type StockDTO struct {
	AccountingUnitID string           `json:"accounting_unit_id"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Derived          bool             `json:"derived"`
	BaseUnitQuantity *decimal.Decimal `json:"base_unit_quantity,omitempty"`
}

// NewPricingDTO presents a derivation result.
func NewPricingDTO(d *Derived) PricingDTO {
	out := PricingDTO{
		CostPerBaseUnit:     pricing.PresentCurrency(d.Cost.CostPerBaseUnit),
		CostPerPurchaseUnit: pricing.PresentCurrency(d.Cost.CostPerPurchaseUnit),
		Channels:            make([]ChannelDTO, 0, len(d.Channels)),
		ManualPrices:        make([]ManualPriceDTO, 0, d.Manual.Len()),
	}
	for _, c := range d.Channels {
		out.Channels = append(out.Channels, NewChannelDTO(c))
	}
	for _, e := range d.Manual.Entries() {
		out.ManualPrices = append(out.ManualPrices, newManualPriceDTO(e))
	}
	if d.Stock != nil {
		out.Stock = newStockDTO(*d.Stock, d.Resolution)
	}
	return out
}

// NewProductDTO builds a DTO from the persisted model and the branch stock
// record, which may be nil.
func NewProductDTO(p *models.Product, rec *models.StockRecord) *ProductDTO {
	dto := &ProductDTO{
		ID:       p.ID,
		StoreID:  p.StoreID,
		SKU:      p.SKU,
		Name:     p.Name,
		IsActive: p.IsActive,
		Purchase: PurchaseDTO{
			UnitID:     p.PurchaseUnitID.String(),
			TotalPrice: pricing.PresentCurrency(p.PurchaseTotalPrice),
			Quantity:   p.PurchaseQuantity,
		},
		AccountingUnitID: p.AccountingUnitID.String(),
		SoldUnitIDs:      make([]string, 0, len(p.SoldUnits)),
		Pricing: PricingDTO{
			CostPerBaseUnit:     pricing.PresentCurrency(p.CostPerBaseUnit),
			CostPerPurchaseUnit: pricing.PresentCurrency(p.CostPerPurchaseUnit),
			Channels:            make([]ChannelDTO, 0, len(p.Channels)),
			ManualPrices:        make([]ManualPriceDTO, 0, len(p.ManualPrices)),
		},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for _, su := range p.SoldUnits {
		dto.SoldUnitIDs = append(dto.SoldUnitIDs, su.UnitID.String())
	}
	for _, c := range p.Channels {
		dto.Pricing.Channels = append(dto.Pricing.Channels, NewChannelDTO(channelFromModel(c)))
	}
	for _, m := range p.ManualPrices {
		dto.Pricing.ManualPrices = append(dto.Pricing.ManualPrices, newManualPriceDTO(pricing.ManualPriceEntry{
			UnitID:     m.UnitID.String(),
			Price:      m.Price,
			TaxPercent: m.TaxPercent,
		}))
	}
	if rec != nil {
		dto.Stock = &StockDTO{
			AccountingUnitID: rec.AccountingUnitID.String(),
			Quantity:         rec.Quantity,
		}
	}
	return dto
}

func NewChannelDTO(c pricing.PriceChannel) ChannelDTO {
	return ChannelDTO{
		Channel:         c.Channel.String(),
		UnitID:          c.UnitID,
		UnitCost:        pricing.PresentCurrency(c.UnitCost),
		UnitCostRounded: pricing.PresentUnitCost(c.UnitCost),
		MarkupPercent:   pricing.PresentPercent(c.MarkupPercent),
		SellingPrice:    pricing.PresentCurrency(c.SellingPrice),
		MarginPercent:   pricing.PresentPercent(c.MarginPercent),
		UnitQuantity:    c.UnitQuantity,
	}
}

func newManualPriceDTO(e pricing.ManualPriceEntry) ManualPriceDTO {
	return ManualPriceDTO{
		UnitID:     e.UnitID,
		Price:      pricing.PresentCurrency(e.Price),
		TaxPercent: pricing.PresentPercent(e.TaxPercent),
	}
}

func newStockDTO(rec stock.Record, res *stock.Resolution) *StockDTO {
	out := &StockDTO{
		AccountingUnitID: rec.AccountingUnitID,
		Quantity:         rec.Quantity,
		Derived:          rec.Derived,
	}
	if res != nil {
		base := res.BaseUnitQuantity
		out.BaseUnitQuantity = &base
	}
	return out
}
