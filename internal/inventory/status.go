package inventory

import "github.com/rmaldonado/equiptrack-backend/pkg/enums"

// DeriveStatus is the single status derivation rule for inventory items.
// Every component that mutates quantities goes through this function; call
// sites must never re-implement the branch order.
//
// Discontinued is an administrative override, never derived from quantities.
func DeriveStatus(quantity, minimumStock, inMaintenanceQuantity int, discontinued bool) enums.ItemStatus {
	if discontinued {
		return enums.ItemStatusDiscontinued
	}
	if quantity == 0 {
		return enums.ItemStatusOutOfStock
	}
	if inMaintenanceQuantity > 0 && inMaintenanceQuantity >= quantity {
		return enums.ItemStatusInMaintenance
	}
	if quantity <= minimumStock {
		return enums.ItemStatusLowStock
	}
	return enums.ItemStatusAvailable
}

// StockAlertWorthy reports whether moving from prev to next crosses into a
// state that should fire a one-shot stock alert. Staying low does not
// re-alert.
func StockAlertWorthy(prev, next enums.ItemStatus) bool {
	if prev == next {
		return false
	}
	return next == enums.ItemStatusLowStock || next == enums.ItemStatusOutOfStock
}
