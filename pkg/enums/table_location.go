package enums

import "fmt"

// TableLocation is the dining area a table belongs to.
type TableLocation string

const (
	TableLocationIndoor  TableLocation = "indoor"
	TableLocationOutdoor TableLocation = "outdoor"
	TableLocationTerrace TableLocation = "terrace"
	TableLocationVIP     TableLocation = "vip"
)

var validTableLocations = []TableLocation{
	TableLocationIndoor,
	TableLocationOutdoor,
	TableLocationTerrace,
	TableLocationVIP,
}

// String implements fmt.Stringer.
func (t TableLocation) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TableLocation.
func (t TableLocation) IsValid() bool {
	for _, candidate := range validTableLocations {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTableLocation converts raw input into a TableLocation.
func ParseTableLocation(value string) (TableLocation, error) {
	for _, candidate := range validTableLocations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table location %q", value)
}
