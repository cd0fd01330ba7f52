package enums

import "fmt"

// ItemAction records the provenance of the most recent quantity mutation on
// an inventory item.
type ItemAction string

const (
	ItemActionReceived           ItemAction = "received"
	ItemActionCheckedOut         ItemAction = "checked_out"
	ItemActionCheckedIn          ItemAction = "checked_in"
	ItemActionMaintenanceHold    ItemAction = "maintenance_hold"
	ItemActionMaintenanceRelease ItemAction = "maintenance_release"
	ItemActionAdjusted           ItemAction = "adjusted"
)

var validItemActions = []ItemAction{
	ItemActionReceived,
	ItemActionCheckedOut,
	ItemActionCheckedIn,
	ItemActionMaintenanceHold,
	ItemActionMaintenanceRelease,
	ItemActionAdjusted,
}

// IsValid reports whether the value is a known ItemAction.
func (a ItemAction) IsValid() bool {
	for _, candidate := range validItemActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseItemAction converts raw input into an ItemAction.
func ParseItemAction(value string) (ItemAction, error) {
	for _, candidate := range validItemActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item action %q", value)
}
