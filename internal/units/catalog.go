package units

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/branchpos-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Unit is a unit of measure expressed as a multiple of the product base unit.
type Unit struct {
	ID           string          `json:"id" msgpack:"id"`
	Name         string          `json:"name" msgpack:"name"`
	BaseQuantity decimal.Decimal `json:"base_quantity" msgpack:"base_quantity"`
}

// Resolver is the lookup surface every conversion depends on.
type Resolver interface {
	Resolve(id string) (Unit, error)
}

// Catalog is the read-only unit table of one store. Safe for concurrent reads.
type Catalog struct {
	ordered []Unit
	byID    map[string]Unit
}

// NewCatalog validates and indexes the given units, preserving their order.
func NewCatalog(list []Unit) (*Catalog, error) {
	c := &Catalog{
		ordered: make([]Unit, 0, len(list)),
		byID:    make(map[string]Unit, len(list)),
	}
	for _, u := range list {
		id := strings.TrimSpace(u.ID)
		if id == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "unit id is required")
		}
		if !u.BaseQuantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, fmt.Sprintf("unit %q must have a positive base quantity", id)).
				WithDetails(map[string]any{"unit_id": id, "base_quantity": u.BaseQuantity.String()})
		}
		if _, dup := c.byID[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, fmt.Sprintf("duplicate unit %q", id)).
				WithDetails(map[string]any{"unit_id": id})
		}
		u.ID = id
		c.ordered = append(c.ordered, u)
		c.byID[id] = u
	}
	return c, nil
}

// MustCatalog is NewCatalog for static fixtures; it panics on invalid input.
func MustCatalog(list ...Unit) *Catalog {
	c, err := NewCatalog(list)
	if err != nil {
		panic(err)
	}
	return c
}

// Resolve returns the unit or a UNIT_NOT_FOUND error. It never falls back to a
// default factor.
func (c *Catalog) Resolve(id string) (Unit, error) {
	if c != nil {
		if u, ok := c.byID[strings.TrimSpace(id)]; ok {
			return u, nil
		}
	}
	return Unit{}, NotFound(id)
}

// Units returns the catalog in configured order.
func (c *Catalog) Units() []Unit {
	if c == nil {
		return nil
	}
	out := make([]Unit, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ordered)
}

// Subset builds the catalog of units a product is sold in. Every id must
// resolve in c.
func (c *Catalog) Subset(ids []string) (*Catalog, error) {
	list := make([]Unit, 0, len(ids))
	for _, id := range ids {
		u, err := c.Resolve(id)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return NewCatalog(list)
}

// NotFound builds the canonical unresolved-unit error.
func NotFound(id string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeUnitNotFound, fmt.Sprintf("unit %q not found", id)).
		WithDetails(map[string]any{"unit_id": id})
}
