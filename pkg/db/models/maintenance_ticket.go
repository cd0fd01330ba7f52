package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
)

// MaintenanceTicket records a repair/service request against an item and the
// inventory hold taken on its behalf. InventoryRestored is a one-shot flag:
// once true the hold can never be credited back again.
type MaintenanceTicket struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;index;not null"`
	ReporterID uuid.UUID `gorm:"column:reporter_id;type:uuid;not null"`

	Title       string  `gorm:"column:title;not null"`
	Description *string `gorm:"column:description"`

	Priority enums.TicketPriority `gorm:"column:priority;not null"`
	Status   enums.TicketStatus   `gorm:"column:status;not null"`

	InventoryAction   enums.InventoryAction `gorm:"column:inventory_action;not null;default:'none'"`
	QuantityDeducted  int                   `gorm:"column:quantity_deducted;not null;default:0"`
	InventoryRestored bool                  `gorm:"column:inventory_restored;not null;default:false"`

	ScheduleID *uuid.UUID `gorm:"column:schedule_id;type:uuid;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
