package enums

import "fmt"

// CheckoutStatus tracks a checkout record through its return cycle. The
// string values are part of the wire contract consumed by the UI.
type CheckoutStatus string

const (
	CheckoutStatusCheckedOut    CheckoutStatus = "checked-out"
	CheckoutStatusPartialReturn CheckoutStatus = "partial-return"
	CheckoutStatusReturned      CheckoutStatus = "returned"
	CheckoutStatusOverdue       CheckoutStatus = "overdue"
	CheckoutStatusReceived      CheckoutStatus = "received"
)

var validCheckoutStatuses = []CheckoutStatus{
	CheckoutStatusCheckedOut,
	CheckoutStatusPartialReturn,
	CheckoutStatusReturned,
	CheckoutStatusOverdue,
	CheckoutStatusReceived,
}

// String implements fmt.Stringer.
func (s CheckoutStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutStatus.
func (s CheckoutStatus) IsValid() bool {
	for _, candidate := range validCheckoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Outstanding reports whether the record still has units out in the field.
func (s CheckoutStatus) Outstanding() bool {
	return s == CheckoutStatusCheckedOut || s == CheckoutStatusPartialReturn
}

// ParseCheckoutStatus converts raw input into a CheckoutStatus.
func ParseCheckoutStatus(value string) (CheckoutStatus, error) {
	for _, candidate := range validCheckoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout status %q", value)
}
