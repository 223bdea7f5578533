package enums

import "fmt"

// SessionStatus tracks the lifecycle of a sale or transfer session.
type SessionStatus string

const (
	SessionStatusEmpty      SessionStatus = "empty"
	SessionStatusPopulated  SessionStatus = "populated"
	SessionStatusCheckedOut SessionStatus = "checked_out"
	SessionStatusAbandoned  SessionStatus = "abandoned"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusEmpty,
	SessionStatusPopulated,
	SessionStatusCheckedOut,
	SessionStatusAbandoned,
}

// String implements fmt.Stringer.
func (v SessionStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known SessionStatus.
func (v SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}

// IsTerminal reports whether no further mutation is allowed in this status.
func (v SessionStatus) IsTerminal() bool {
	return v == SessionStatusCheckedOut || v == SessionStatusAbandoned
}
