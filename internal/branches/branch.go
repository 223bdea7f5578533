package branches

import (
	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/db/models"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	"github.com/google/uuid"
)

// Branch is the pricing and stock configuration of one location. It is
// read-only to everything downstream.
type Branch struct {
	ID               uuid.UUID         `json:"id"`
	StoreID          uuid.UUID         `json:"store_id"`
	Name             string            `json:"name"`
	PricingMode      enums.PricingMode `json:"pricing_mode"`
	RetailEnabled    bool              `json:"retail_enabled"`
	WholesaleEnabled bool              `json:"wholesale_enabled"`
	StockMode        enums.StockMode   `json:"stock_mode"`
}

// EnabledChannels lists the channels this branch prices, retail first.
func (b Branch) EnabledChannels() []enums.SellingChannel {
	out := make([]enums.SellingChannel, 0, 2)
	if b.RetailEnabled {
		out = append(out, enums.SellingChannelRetail)
	}
	if b.WholesaleEnabled {
		out = append(out, enums.SellingChannelWholesale)
	}
	return out
}

func (b Branch) ChannelEnabled(ch enums.SellingChannel) bool {
	for _, enabled := range b.EnabledChannels() {
		if enabled == ch {
			return true
		}
	}
	return false
}

// DefaultChannel is the channel a new session starts on. Manual-mode
// branches do not need one.
func (b Branch) DefaultChannel() enums.SellingChannel {
	if b.PricingMode == enums.PricingModeManual {
		return ""
	}
	if channels := b.EnabledChannels(); len(channels) > 0 {
		return channels[0]
	}
	return ""
}

func branchFromModel(m *models.Branch) *Branch {
	return &Branch{
		ID:               m.ID,
		StoreID:          m.StoreID,
		Name:             m.Name,
		PricingMode:      m.PricingMode,
		RetailEnabled:    m.RetailEnabled,
		WholesaleEnabled: m.WholesaleEnabled,
		StockMode:        m.StockMode,
	}
}

func unitFromModel(m models.Unit) units.Unit {
	return units.Unit{
		ID:           m.ID.String(),
		Name:         m.Name,
		BaseQuantity: m.BaseQuantity,
	}
}
