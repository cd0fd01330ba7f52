package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
)

// ScheduledMaintenance is a planned service date for an item. The reminder
// flags only ever flip false to true, which is what makes the daily reminder
// scan safe to re-run.
type ScheduledMaintenance struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID uuid.UUID `gorm:"column:item_id;type:uuid;index;not null"`

	Title       string  `gorm:"column:title;not null"`
	Description *string `gorm:"column:description"`

	ScheduledDate time.Time  `gorm:"column:scheduled_date;index;not null"`
	IsCompleted   bool       `gorm:"column:is_completed;not null;default:false"`
	CompletedDate *time.Time `gorm:"column:completed_date"`
	CompletedBy   *string    `gorm:"column:completed_by"`

	Reminder14Sent bool `gorm:"column:reminder_14_sent;not null;default:false"`
	Reminder7Sent  bool `gorm:"column:reminder_7_sent;not null;default:false"`
	Reminder1Sent  bool `gorm:"column:reminder_1_sent;not null;default:false"`

	InventoryAction  enums.InventoryAction `gorm:"column:inventory_action;not null;default:'none'"`
	QuantityAffected int                   `gorm:"column:quantity_affected;not null;default:0"`

	TicketID *uuid.UUID `gorm:"column:ticket_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the singular table name used by the migrations.
func (ScheduledMaintenance) TableName() string {
	return "scheduled_maintenance"
}
