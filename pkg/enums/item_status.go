package enums

import "fmt"

// ItemStatus is the derived availability state of an inventory item.
type ItemStatus string

const (
	ItemStatusAvailable     ItemStatus = "available"
	ItemStatusLowStock      ItemStatus = "low_stock"
	ItemStatusOutOfStock    ItemStatus = "out_of_stock"
	ItemStatusInMaintenance ItemStatus = "in_maintenance"
	ItemStatusDiscontinued  ItemStatus = "discontinued"
)

var validItemStatuses = []ItemStatus{
	ItemStatusAvailable,
	ItemStatusLowStock,
	ItemStatusOutOfStock,
	ItemStatusInMaintenance,
	ItemStatusDiscontinued,
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into an ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
