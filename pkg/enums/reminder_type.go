package enums

import "fmt"

// ReminderType identifies which threshold a maintenance reminder covers.
type ReminderType string

const (
	ReminderTypeTwoWeeks ReminderType = "14_day"
	ReminderTypeOneWeek  ReminderType = "7_day"
	ReminderTypeOneDay   ReminderType = "1_day"
	ReminderTypeOverdue  ReminderType = "overdue"
)

var validReminderTypes = []ReminderType{
	ReminderTypeTwoWeeks,
	ReminderTypeOneWeek,
	ReminderTypeOneDay,
	ReminderTypeOverdue,
}

// String implements fmt.Stringer.
func (r ReminderType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReminderType.
func (r ReminderType) IsValid() bool {
	for _, candidate := range validReminderTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReminderType converts raw input into a ReminderType.
func ParseReminderType(value string) (ReminderType, error) {
	for _, candidate := range validReminderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder type %q", value)
}
