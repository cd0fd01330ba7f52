package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
)

// GroupStatus is the derived state of a whole master-barcode group. It is
// computed from the roll-up counters on every read and never persisted.
type GroupStatus string

const (
	GroupStatusFullyReturned GroupStatus = "fully-returned"
	GroupStatusPartialReturn GroupStatus = "partial-return"
	GroupStatusOverdue       GroupStatus = "overdue"
	GroupStatusActive        GroupStatus = "active"
)

// GroupView aggregates every checkout record sharing a master barcode into
// one logical checkout with roll-up counters.
type GroupView struct {
	MasterBarcode      string                  `json:"master_barcode"`
	UserID             uuid.UUID               `json:"user_id"`
	UserName           string                  `json:"user_name"`
	CheckoutDate       time.Time               `json:"checkout_date"`
	ExpectedReturnDate *time.Time              `json:"expected_return_date,omitempty"`
	TotalItems         int                     `json:"total_items"`
	ReturnedItems      int                     `json:"returned_items"`
	RemainingItems     int                     `json:"remaining_items"`
	Status             GroupStatus             `json:"status"`
	Records            []models.CheckoutRecord `json:"records"`
}

// BuildGroupView rolls the records of one master barcode up into a group
// view. Records must be non-empty and already share a barcode.
func BuildGroupView(records []models.CheckoutRecord, now time.Time) GroupView {
	first := records[0]
	view := GroupView{
		MasterBarcode:      first.MasterBarcode,
		UserID:             first.UserID,
		UserName:           first.UserName,
		CheckoutDate:       first.CheckoutDate,
		ExpectedReturnDate: first.ExpectedReturnDate,
		Records:            records,
	}
	for _, record := range records {
		view.TotalItems += record.Quantity
		view.ReturnedItems += record.ReturnedQuantity
	}
	view.RemainingItems = view.TotalItems - view.ReturnedItems
	if view.RemainingItems < 0 {
		view.RemainingItems = 0
	}
	view.Status = deriveGroupStatus(view, now)
	return view
}

func deriveGroupStatus(view GroupView, now time.Time) GroupStatus {
	if view.RemainingItems == 0 {
		return GroupStatusFullyReturned
	}
	if view.ExpectedReturnDate != nil && view.ExpectedReturnDate.Before(now) {
		return GroupStatusOverdue
	}
	if view.ReturnedItems > 0 {
		return GroupStatusPartialReturn
	}
	return GroupStatusActive
}
