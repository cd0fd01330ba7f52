package enums

import "fmt"

// InventoryAction describes how a maintenance ticket holds inventory while
// work is underway.
type InventoryAction string

const (
	// InventoryActionDeduct removes units from the on-hand quantity.
	InventoryActionDeduct InventoryAction = "deduct"
	// InventoryActionStatusOnly marks units as in maintenance without
	// touching the on-hand quantity.
	InventoryActionStatusOnly InventoryAction = "status_only"
	// InventoryActionNone leaves inventory untouched.
	InventoryActionNone InventoryAction = "none"
)

var validInventoryActions = []InventoryAction{
	InventoryActionDeduct,
	InventoryActionStatusOnly,
	InventoryActionNone,
}

// String implements fmt.Stringer.
func (a InventoryAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known InventoryAction.
func (a InventoryAction) IsValid() bool {
	for _, candidate := range validInventoryActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseInventoryAction converts raw input into an InventoryAction.
func ParseInventoryAction(value string) (InventoryAction, error) {
	for _, candidate := range validInventoryActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory action %q", value)
}
