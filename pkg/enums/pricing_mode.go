package enums

import "fmt"

// PricingMode selects whether a branch prices lines from the manual price table or from markup-derived channels.
type PricingMode string

const (
	PricingModeManual    PricingMode = "manual"
	PricingModeAutomatic PricingMode = "automatic"
)

var validPricingModes = []PricingMode{
	PricingModeManual,
	PricingModeAutomatic,
}

// String implements fmt.Stringer.
func (v PricingMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PricingMode.
func (v PricingMode) IsValid() bool {
	for _, candidate := range validPricingModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePricingMode converts raw input into a PricingMode.
func ParsePricingMode(value string) (PricingMode, error) {
	for _, candidate := range validPricingModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing mode %q", value)
}
