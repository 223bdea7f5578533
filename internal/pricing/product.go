package pricing

import (
	"github.com/angelmondragon/branchpos-backend/pkg/enums"
)

// Product is the priced view of a product that line pricing reads: the units
// it is sold in plus both price sources. Either source may be empty.
type Product struct {
	ID          string
	Name        string
	SoldUnitIDs []string
	Channels    map[enums.SellingChannel]PriceChannel
	Manual      ManualPriceTable
}

// SoldIn reports whether unitID is one of the product's selling units. A
// product without an explicit list is sold in every catalog unit.
func (p Product) SoldIn(unitID string) bool {
	if len(p.SoldUnitIDs) == 0 {
		return true
	}
	for _, id := range p.SoldUnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}

// Channel returns the configured channel, if any.
func (p Product) Channel(ch enums.SellingChannel) (PriceChannel, bool) {
	c, ok := p.Channels[ch]
	return c, ok
}
