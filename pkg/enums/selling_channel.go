package enums

import "fmt"

// SellingChannel names the price channel a session sells through when pricing is automatic.
type SellingChannel string

const (
	SellingChannelRetail    SellingChannel = "retail"
	SellingChannelWholesale SellingChannel = "wholesale"
)

var validSellingChannels = []SellingChannel{
	SellingChannelRetail,
	SellingChannelWholesale,
}

// String implements fmt.Stringer.
func (v SellingChannel) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SellingChannel.
func (v SellingChannel) IsValid() bool {
	for _, candidate := range validSellingChannels {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSellingChannel converts raw input into a SellingChannel.
func ParseSellingChannel(value string) (SellingChannel, error) {
	for _, candidate := range validSellingChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid selling channel %q", value)
}
