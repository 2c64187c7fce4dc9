package enums

import "fmt"

// InventoryUnit is the unit of measure for a ledger stock row.
type InventoryUnit string

const (
	UnitKilogram   InventoryUnit = "kg"
	UnitGram       InventoryUnit = "g"
	UnitLiter      InventoryUnit = "l"
	UnitMilliliter InventoryUnit = "ml"
	UnitPiece      InventoryUnit = "unit"
)

var validInventoryUnits = []InventoryUnit{
	UnitKilogram,
	UnitGram,
	UnitLiter,
	UnitMilliliter,
	UnitPiece,
}

// String implements fmt.Stringer.
func (u InventoryUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known InventoryUnit.
func (u InventoryUnit) IsValid() bool {
	for _, candidate := range validInventoryUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseInventoryUnit converts raw input into an InventoryUnit.
func ParseInventoryUnit(value string) (InventoryUnit, error) {
	for _, candidate := range validInventoryUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory unit %q", value)
}
