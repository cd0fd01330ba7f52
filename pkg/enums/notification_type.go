package enums

import "fmt"

// NotificationType classifies feed entries written by the dispatcher.
type NotificationType string

const (
	NotificationTypeLowStock            NotificationType = "low_stock"
	NotificationTypeOutOfStock          NotificationType = "out_of_stock"
	NotificationTypeCheckoutCreated     NotificationType = "checkout_created"
	NotificationTypeMaintenanceReminder NotificationType = "maintenance_reminder"
	NotificationTypeOverdueAlert        NotificationType = "overdue_alert"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeLowStock,
	NotificationTypeOutOfStock,
	NotificationTypeCheckoutCreated,
	NotificationTypeMaintenanceReminder,
	NotificationTypeOverdueAlert,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
