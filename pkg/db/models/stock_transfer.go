package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/branchpos-backend/pkg/enums"
)

// StockTransfer moves stock between two branches of one store, valued at the
// prices of the session that produced it.
type StockTransfer struct {
	ID                  uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	StoreID             uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	SourceBranchID      uuid.UUID             `gorm:"column:source_branch_id;type:uuid;not null"`
	DestinationBranchID uuid.UUID             `gorm:"column:destination_branch_id;type:uuid;not null"`
	SessionID           uuid.UUID             `gorm:"column:session_id;type:uuid;not null;uniqueIndex"`
	UserID              *uuid.UUID            `gorm:"column:user_id;type:uuid"`
	PricingMode         enums.PricingMode     `gorm:"column:pricing_mode;type:text;not null"`
	Channel             *enums.SellingChannel `gorm:"column:channel;type:text"`
	Total               decimal.Decimal       `gorm:"column:total;type:numeric(28,12);not null"`
	Lines               []StockTransferLine   `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (t *StockTransfer) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}

type StockTransferLine struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TransferID       uuid.UUID       `gorm:"column:transfer_id;type:uuid;not null;index"`
	Position         int             `gorm:"column:position;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	UnitID           uuid.UUID       `gorm:"column:unit_id;type:uuid;not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(20,6);not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(28,12);not null"`
	LineTotal        decimal.Decimal `gorm:"column:line_total;type:numeric(28,12);not null"`
	AccountingUnitID uuid.UUID       `gorm:"column:accounting_unit_id;type:uuid;not null"`
	StockQuantity    decimal.Decimal `gorm:"column:stock_quantity;type:numeric(28,12);not null"`
}

func (l *StockTransferLine) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
