package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
)

// Notification is one entry of the in-app alert feed. Rows are written by
// the dispatcher as a side channel; failures writing them never block the
// operation that triggered them.
type Notification struct {
	ID   uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type enums.NotificationType `gorm:"column:type;index;not null"`

	Title   string `gorm:"column:title;not null"`
	Message string `gorm:"column:message;not null"`

	ItemID        *uuid.UUID `gorm:"column:item_id;type:uuid;index"`
	ScheduleID    *uuid.UUID `gorm:"column:schedule_id;type:uuid"`
	MasterBarcode *string    `gorm:"column:master_barcode"`

	ReadAt *time.Time `gorm:"column:read_at"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
