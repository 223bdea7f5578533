package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/branchpos-backend/pkg/enums"
)

// Branch is a store location with its own pricing and stock configuration.
type Branch struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	StoreID          uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index"`
	Name             string            `gorm:"column:name;not null"`
	PricingMode      enums.PricingMode `gorm:"column:pricing_mode;type:text;not null"`
	RetailEnabled    bool              `gorm:"column:retail_enabled;not null"`
	WholesaleEnabled bool              `gorm:"column:wholesale_enabled;not null"`
	StockMode        enums.StockMode   `gorm:"column:stock_mode;type:text;not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Branch) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}
