package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/branchpos-backend/pkg/enums"
)

// Sale is a checked-out sale session.
type Sale struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	BranchID        uuid.UUID             `gorm:"column:branch_id;type:uuid;not null;index"`
	SessionID       uuid.UUID             `gorm:"column:session_id;type:uuid;not null;uniqueIndex"`
	UserID          *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	PricingMode     enums.PricingMode     `gorm:"column:pricing_mode;type:text;not null"`
	Channel         *enums.SellingChannel `gorm:"column:channel;type:text"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(28,12);not null"`
	DiscountPercent decimal.Decimal       `gorm:"column:discount_percent;type:numeric(10,4);not null"`
	Discount        decimal.Decimal       `gorm:"column:discount;type:numeric(28,12);not null"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(28,12);not null"`
	Lines           []SaleLine            `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// SaleLine records one priced line and the stock it consumed.
type SaleLine struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID           uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	Position         int             `gorm:"column:position;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	UnitID           uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(20,6);not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(28,12);not null"`
	LineTotal        decimal.Decimal `gorm:"column:line_total;type:numeric(28,12);not null"`
	TaxPercent       decimal.Decimal `gorm:"column:tax_percent;type:numeric(10,4);not null"`
	AccountingUnitID uuid.UUID       `gorm:"column:accounting_unit_id;type:uuid;not null"`
	StockQuantity    decimal.Decimal `gorm:"column:stock_quantity;type:numeric(28,12);not null"`
}

func (l *SaleLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
