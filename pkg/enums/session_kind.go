package enums

import "fmt"

// SessionKind distinguishes point-of-sale sessions from inter-branch stock transfers.
type SessionKind string

const (
	SessionKindSale     SessionKind = "sale"
	SessionKindTransfer SessionKind = "transfer"
)

var validSessionKinds = []SessionKind{
	SessionKindSale,
	SessionKindTransfer,
}

// String implements fmt.Stringer.
func (v SessionKind) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SessionKind.
func (v SessionKind) IsValid() bool {
	for _, candidate := range validSessionKinds {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSessionKind converts raw input into a SessionKind.
func ParseSessionKind(value string) (SessionKind, error) {
	for _, candidate := range validSessionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session kind %q", value)
}
