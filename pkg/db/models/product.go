package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/branchpos-backend/pkg/enums"
)

// Product stores the vendor purchase a product was priced from together with
// the derived costs. Price sources hang off it per channel and per unit.
type Product struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StoreID             uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	SKU                 string                `gorm:"column:sku;not null"`
	Name                string                `gorm:"column:name;not null"`
	PurchaseUnitID      uuid.UUID             `gorm:"column:purchase_unit_id;type:uuid;not null"`
	PurchaseTotalPrice  decimal.Decimal       `gorm:"column:purchase_total_price;type:numeric(20,6);not null"`
	PurchaseQuantity    decimal.Decimal       `gorm:"column:purchase_quantity;type:numeric(20,6);not null"`
	CostPerBaseUnit     decimal.Decimal       `gorm:"column:cost_per_base_unit;type:numeric(28,12);not null"`
	CostPerPurchaseUnit decimal.Decimal       `gorm:"column:cost_per_purchase_unit;type:numeric(28,12);not null"`
	AccountingUnitID    uuid.UUID             `gorm:"column:accounting_unit_id;type:uuid;not null"`
	IsActive            bool                  `gorm:"column:is_active;not null"`
	SoldUnits           []ProductSoldUnit     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Channels            []ProductPriceChannel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	ManualPrices        []ProductManualPrice  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// ProductSoldUnit lists a unit the product can be sold in.
type ProductSoldUnit struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	UnitID    uuid.UUID `gorm:"column:unit_id;type:uuid;primaryKey"`
	Position  int       `gorm:"column:position;not null"`
}

// ProductPriceChannel is the markup-driven price for one selling channel.
// UnitCost and SellingPrice are per UnitID.
type ProductPriceChannel struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID            `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_price_channel"`
	Channel       enums.SellingChannel `gorm:"column:channel;type:text;not null;uniqueIndex:ux_product_price_channel"`
	UnitID        uuid.UUID            `gorm:"column:unit_id;type:uuid;not null"`
	UnitCost      decimal.Decimal      `gorm:"column:unit_cost;type:numeric(28,12);not null"`
	MarkupPercent decimal.Decimal      `gorm:"column:markup_percent;type:numeric(28,12);not null"`
	SellingPrice  decimal.Decimal      `gorm:"column:selling_price;type:numeric(28,12);not null"`
	MarginPercent decimal.Decimal      `gorm:"column:margin_percent;type:numeric(28,12);not null"`
	UnitQuantity  decimal.Decimal      `gorm:"column:unit_quantity;type:numeric(20,6);not null"`
}

func (c *ProductPriceChannel) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// ProductManualPrice is a fixed per-unit price used by manual-mode branches.
type ProductManualPrice struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_manual_price"`
	UnitID     uuid.UUID       `gorm:"column:unit_id;type:uuid;not null;uniqueIndex:ux_product_manual_price"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(20,6);not null"`
	TaxPercent decimal.Decimal `gorm:"column:tax_percent;type:numeric(10,4);not null"`
}

func (m *ProductManualPrice) BeforeCreate(*gorm.DB) error {
	assignID(&m.ID)
	return nil
}
