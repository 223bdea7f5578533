package enums

import "fmt"

// StockMode selects whether on-hand stock is derived from the vendor purchase or entered by hand.
type StockMode string

const (
	StockModeManual    StockMode = "manual"
	StockModeAutomatic StockMode = "automatic"
)

var validStockModes = []StockMode{
	StockModeManual,
	StockModeAutomatic,
}

// String implements fmt.Stringer.
func (v StockMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known StockMode.
func (v StockMode) IsValid() bool {
	for _, candidate := range validStockModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseStockMode converts raw input into a StockMode.
func ParseStockMode(value string) (StockMode, error) {
	for _, candidate := range validStockModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock mode %q", value)
}
