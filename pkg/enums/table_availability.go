package enums

import "fmt"

// TableAvailability is the physical state of a dining table.
type TableAvailability string

const (
	TableAvailable TableAvailability = "available"
	TableOccupied  TableAvailability = "occupied"
	TableReserved  TableAvailability = "reserved"
)

var validTableAvailabilities = []TableAvailability{
	TableAvailable,
	TableOccupied,
	TableReserved,
}

// String implements fmt.Stringer.
func (t TableAvailability) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TableAvailability.
func (t TableAvailability) IsValid() bool {
	for _, candidate := range validTableAvailabilities {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTableAvailability converts raw input into a TableAvailability.
func ParseTableAvailability(value string) (TableAvailability, error) {
	for _, candidate := range validTableAvailabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table availability %q", value)
}
