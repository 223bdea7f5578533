package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRecord is the on-hand quantity of a product at a branch, counted in
// AccountingUnitID.
type StockRecord struct {
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	BranchID         uuid.UUID       `gorm:"column:branch_id;type:uuid;primaryKey"`
	AccountingUnitID uuid.UUID       `gorm:"column:accounting_unit_id;type:uuid;not null"`
	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(20,6);not null"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
