package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Unit is a store-wide unit of measure. BaseQuantity is how many base units
// one of it holds.
type Unit struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID      uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	BaseQuantity decimal.Decimal `gorm:"column:base_quantity;type:numeric(20,6);not null"`
	Position     int             `gorm:"column:position;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (u *Unit) BeforeCreate(*gorm.DB) error {
	assignID(&u.ID)
	return nil
}
