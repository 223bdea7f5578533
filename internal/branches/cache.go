package branches

import (
	"fmt"

	"github.com/angelmondragon/branchpos-backend/internal/units"
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Cached payloads carry decimals as strings so a decode never loses scale.

type cachedUnit struct {
	ID           string `msgpack:"id"`
	Name         string `msgpack:"name"`
	BaseQuantity string `msgpack:"bq"`
}

type cachedCatalog struct {
	Units []cachedUnit `msgpack:"units"`
}

type cachedBranch struct {
	ID               string `msgpack:"id"`
	StoreID          string `msgpack:"store_id"`
	Name             string `msgpack:"name"`
	PricingMode      string `msgpack:"pricing_mode"`
	RetailEnabled    bool   `msgpack:"retail"`
	WholesaleEnabled bool   `msgpack:"wholesale"`
	StockMode        string `msgpack:"stock_mode"`
}

func encodeCatalog(list []units.Unit) ([]byte, error) {
	payload := cachedCatalog{Units: make([]cachedUnit, 0, len(list))}
	for _, u := range list {
		payload.Units = append(payload.Units, cachedUnit{
			ID:           u.ID,
			Name:         u.Name,
			BaseQuantity: u.BaseQuantity.String(),
		})
	}
	return msgpack.Marshal(&payload)
}

func decodeCatalog(raw []byte) (*units.Catalog, error) {
	var payload cachedCatalog
	if err := msgpack.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	list := make([]units.Unit, 0, len(payload.Units))
	for _, u := range payload.Units {
		bq, err := decimal.NewFromString(u.BaseQuantity)
		if err != nil {
			return nil, fmt.Errorf("decode unit %s: %w", u.ID, err)
		}
		list = append(list, units.Unit{ID: u.ID, Name: u.Name, BaseQuantity: bq})
	}
	return units.NewCatalog(list)
}

func encodeBranch(b *Branch) ([]byte, error) {
	return msgpack.Marshal(&cachedBranch{
		ID:               b.ID.String(),
		StoreID:          b.StoreID.String(),
		Name:             b.Name,
		PricingMode:      b.PricingMode.String(),
		RetailEnabled:    b.RetailEnabled,
		WholesaleEnabled: b.WholesaleEnabled,
		StockMode:        b.StockMode.String(),
	})
}

func decodeBranch(raw []byte) (*Branch, error) {
	var payload cachedBranch
	if err := msgpack.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode branch: %w", err)
	}
	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return nil, fmt.Errorf("decode branch id: %w", err)
	}
	storeID, err := uuid.Parse(payload.StoreID)
	if err != nil {
		return nil, fmt.Errorf("decode branch store id: %w", err)
	}
	mode, err := enums.ParsePricingMode(payload.PricingMode)
	if err != nil {
		return nil, err
	}
	stockMode, err := enums.ParseStockMode(payload.StockMode)
	if err != nil {
		return nil, err
	}
	return &Branch{
		ID:               id,
		StoreID:          storeID,
		Name:             payload.Name,
		PricingMode:      mode,
		RetailEnabled:    payload.RetailEnabled,
		WholesaleEnabled: payload.WholesaleEnabled,
		StockMode:        stockMode,
	}, nil
}
