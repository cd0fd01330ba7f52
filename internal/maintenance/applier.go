package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rmaldonado/equiptrack-backend/internal/inventory"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/types"
	"gorm.io/gorm"
)

// Applier holds and releases inventory on behalf of maintenance work. It
// edits item quantities directly rather than going through the checkout
// adjustment path, but always re-derives status through the same rule.
type Applier interface {
	WithTx(tx *gorm.DB) Applier
	Apply(ctx context.Context, ticket *models.MaintenanceTicket, requested int, actor types.Actor) error
	Restore(ctx context.Context, ticket *models.MaintenanceTicket, actor types.Actor) error
}

type applier struct {
	items inventory.Repository
	now   func() time.Time
}

// NewApplier builds the inventory action applier.
func NewApplier(items inventory.Repository) (Applier, error) {
	if items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &applier{items: items, now: time.Now}, nil
}

func (a *applier) WithTx(tx *gorm.DB) Applier {
	if tx == nil {
		return a
	}
	clone := *a
	clone.items = a.items.WithTx(tx)
	return &clone
}

// Apply takes the ticket's inventory hold and records the held amount on the
// ticket. The caller persists the ticket itself.
func (a *applier) Apply(ctx context.Context, ticket *models.MaintenanceTicket, requested int, actor types.Actor) error {
	if ticket.InventoryAction == enums.InventoryActionNone {
		return nil
	}
	if requested <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	item, err := a.loadItem(ctx, ticket)
	if err != nil {
		return err
	}

	switch ticket.InventoryAction {
	case enums.InventoryActionDeduct:
		if item.Quantity < requested {
			return pkgerrors.New(pkgerrors.CodeInsufficientQuantity, "not enough stock available").WithDetails(map[string]any{
				"item_id":   item.ID,
				"sku":       item.SKU,
				"requested": requested,
				"available": item.Quantity,
			})
		}
		item.Quantity -= requested
	case enums.InventoryActionStatusOnly:
		item.InMaintenanceQuantity += requested
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory action")
	}

	ticket.QuantityDeducted = requested
	a.stamp(item, enums.ItemActionMaintenanceHold, actor)
	item.Status = inventory.DeriveStatus(item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Discontinued)
	if err := a.items.Save(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inventory item")
	}
	return nil
}

// Restore credits the hold back at most once. A ticket that has already been
// restored, or that never held anything, is a no-op.
func (a *applier) Restore(ctx context.Context, ticket *models.MaintenanceTicket, actor types.Actor) error {
	if ticket.InventoryRestored || ticket.InventoryAction == enums.InventoryActionNone {
		return nil
	}

	item, err := a.loadItem(ctx, ticket)
	if err != nil {
		return err
	}

	switch ticket.InventoryAction {
	case enums.InventoryActionDeduct:
		item.Quantity += ticket.QuantityDeducted
	case enums.InventoryActionStatusOnly:
		item.InMaintenanceQuantity -= ticket.QuantityDeducted
		if item.InMaintenanceQuantity < 0 {
			item.InMaintenanceQuantity = 0
		}
	}

	a.stamp(item, enums.ItemActionMaintenanceRelease, actor)
	item.Status = inventory.DeriveStatus(item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Discontinued)
	if err := a.items.Save(ctx, item); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inventory item")
	}
	ticket.InventoryRestored = true
	return nil
}

func (a *applier) loadItem(ctx context.Context, ticket *models.MaintenanceTicket) (*models.InventoryItem, error) {
	item, err := a.items.FindByID(ctx, ticket.ItemID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}
	return item, nil
}

func (a *applier) stamp(item *models.InventoryItem, action enums.ItemAction, actor types.Actor) {
	now := a.now().UTC()
	name := actor.Display()
	item.LastAction = action
	item.LastActionDate = &now
	item.LastActionBy = &name
}
