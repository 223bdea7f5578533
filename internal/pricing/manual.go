package pricing

import (
	"fmt"

	"github.com/angelmondragon/branchpos-backend/internal/units"
	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// ManualPriceEntry is a fixed price for one unit. TaxPercent is carried to
// checkout untouched.
type ManualPriceEntry struct {
	UnitID     string          `json:"unit_id"`
	Price      decimal.Decimal `json:"price"`
	TaxPercent decimal.Decimal `json:"tax_percent"`
}

// ManualPriceTable holds at most one entry per unit.
type ManualPriceTable struct {
	entries []ManualPriceEntry
	byUnit  map[string]int
}

func NewManualPriceTable(r units.Resolver, entries []ManualPriceEntry) (ManualPriceTable, error) {
	t := ManualPriceTable{
		entries: make([]ManualPriceEntry, 0, len(entries)),
		byUnit:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		u, err := r.Resolve(e.UnitID)
		if err != nil {
			return ManualPriceTable{}, err
		}
		if e.Price.IsNegative() {
			return ManualPriceTable{}, invalidInput("price", "manual price cannot be negative", e.Price)
		}
		if e.TaxPercent.IsNegative() {
			return ManualPriceTable{}, invalidInput("tax_percent", "tax percent cannot be negative", e.TaxPercent)
		}
		if _, dup := t.byUnit[u.ID]; dup {
			return ManualPriceTable{}, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("duplicate manual price for unit %q", u.ID)).
				WithDetails(map[string]any{"unit_id": u.ID})
		}
		e.UnitID = u.ID
		t.byUnit[u.ID] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Lookup returns the entry for unitID or PRICE_NOT_CONFIGURED.
func (t ManualPriceTable) Lookup(unitID string) (ManualPriceEntry, error) {
	if idx, ok := t.byUnit[unitID]; ok {
		return t.entries[idx], nil
	}
	return ManualPriceEntry{}, pkgerrors.New(pkgerrors.CodePriceNotConfigured, fmt.Sprintf("no manual price for unit %q", unitID)).
		WithDetails(map[string]any{"unit_id": unitID})
}

func (t ManualPriceTable) Entries() []ManualPriceEntry {
	out := make([]ManualPriceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t ManualPriceTable) Len() int { return len(t.entries) }
