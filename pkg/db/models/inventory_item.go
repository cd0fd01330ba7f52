package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// InventoryItem is the persisted quantity/status ledger for a piece of
// equipment. Status is always derived; only discontinued is set by hand.
type InventoryItem struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU     string    `gorm:"column:sku;uniqueIndex;not null"`
	Name    string    `gorm:"column:name;not null"`
	Barcode *string   `gorm:"column:barcode;index"`

	Quantity              int `gorm:"column:quantity;not null;default:0"`
	MinimumStock          int `gorm:"column:minimum_stock;not null;default:0"`
	InMaintenanceQuantity int `gorm:"column:in_maintenance_quantity;not null;default:0"`

	Status       enums.ItemStatus `gorm:"column:status;not null"`
	Discontinued bool             `gorm:"column:discontinued;not null;default:false"`

	UnitCost *decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2)"`

	LastAction     enums.ItemAction `gorm:"column:last_action"`
	LastActionDate *time.Time       `gorm:"column:last_action_date"`
	LastActionBy   *string          `gorm:"column:last_action_by"`

	NextMaintenanceDate *time.Time `gorm:"column:next_maintenance_date"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
