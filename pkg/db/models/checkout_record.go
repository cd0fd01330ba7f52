package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
)

// CheckoutRecord is one line item of a checkout transaction. Every record
// created in the same transaction shares a master barcode; intake writes a
// received record whose returned quantity already equals its quantity.
type CheckoutRecord struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MasterBarcode string    `gorm:"column:master_barcode;index;not null"`
	ItemID        uuid.UUID `gorm:"column:item_id;type:uuid;index;not null"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;index;not null"`
	UserName      string    `gorm:"column:user_name"`

	Quantity         int `gorm:"column:quantity;not null"`
	ReturnedQuantity int `gorm:"column:returned_quantity;not null;default:0"`

	Status enums.CheckoutStatus `gorm:"column:status;not null"`

	CheckoutDate       time.Time  `gorm:"column:checkout_date;not null"`
	ExpectedReturnDate *time.Time `gorm:"column:expected_return_date"`
	ActualReturnDate   *time.Time `gorm:"column:actual_return_date"`

	Notes *string `gorm:"column:notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Outstanding returns the units still checked out on this record.
func (c CheckoutRecord) Outstanding() int {
	remaining := c.Quantity - c.ReturnedQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}
