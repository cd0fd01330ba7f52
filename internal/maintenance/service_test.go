package maintenance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/internal/inventory"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db    *gorm.DB
	svc   Service
	actor types.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:maintenance_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InventoryItem{}, &models.MaintenanceTicket{}))

	items := inventory.NewRepository(db)
	applier, err := NewApplier(items)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(db),
		Items:   items,
		Applier: applier,
		Tx:      gormTxRunner{db: db},
	})
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, actor: types.Actor{ID: uuid.New(), Name: "Noor"}}
}

func (f *fixture) seedItem(t *testing.T, sku string, quantity, minimum int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		ID:           uuid.New(),
		SKU:          sku,
		Name:         "Tool " + sku,
		Quantity:     quantity,
		MinimumStock: minimum,
		Status:       inventory.DeriveStatus(quantity, minimum, 0, false),
	}
	require.NoError(t, f.db.Create(item).Error)
	return item
}

func (f *fixture) reloadItem(t *testing.T, id uuid.UUID) *models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, f.db.First(&item, "id = ?", id).Error)
	return &item
}

func TestDeductHoldAndAtMostOnceRestore(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "PMP-1", 5, 0)

	ticket, err := f.svc.Create(ctx, CreateTicketInput{
		Ref:             "PMP-1",
		Title:           "Seal replacement",
		Priority:        enums.TicketPriorityHigh,
		InventoryAction: enums.InventoryActionDeduct,
		Quantity:        2,
		Actor:           f.actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ticket.QuantityDeducted)
	assert.False(t, ticket.InventoryRestored)
	assert.Equal(t, 3, f.reloadItem(t, item.ID).Quantity)

	resolved := enums.TicketStatusResolved
	ticket, err = f.svc.Update(ctx, ticket.ID, UpdateTicketInput{Status: &resolved}, f.actor)
	require.NoError(t, err)
	assert.True(t, ticket.InventoryRestored)
	assert.Equal(t, 5, f.reloadItem(t, item.ID).Quantity)

	// editing a terminal ticket again must not credit the hold twice
	closed := enums.TicketStatusClosed
	ticket, err = f.svc.Update(ctx, ticket.ID, UpdateTicketInput{Status: &closed}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 5, f.reloadItem(t, item.ID).Quantity)

	reopened := enums.TicketStatusResolved
	_, err = f.svc.Update(ctx, ticket.ID, UpdateTicketInput{Status: &reopened}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 5, f.reloadItem(t, item.ID).Quantity)
}

func TestDeductRejectsInsufficientStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "GEN-1", 1, 0)

	_, err := f.svc.Create(ctx, CreateTicketInput{
		Ref:             "GEN-1",
		Title:           "Overhaul",
		Priority:        enums.TicketPriorityMedium,
		InventoryAction: enums.InventoryActionDeduct,
		Quantity:        3,
		Actor:           f.actor,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientQuantity, pkgerrors.As(err).Code())
	assert.Equal(t, 1, f.reloadItem(t, item.ID).Quantity)

	var count int64
	require.NoError(t, f.db.Model(&models.MaintenanceTicket{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStatusOnlyHoldDrivesInMaintenance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "CMP-1", 2, 0)

	ticket, err := f.svc.Create(ctx, CreateTicketInput{
		Ref:             "CMP-1",
		Title:           "Calibration",
		Priority:        enums.TicketPriorityLow,
		InventoryAction: enums.InventoryActionStatusOnly,
		Quantity:        2,
		Actor:           f.actor,
	})
	require.NoError(t, err)

	current := f.reloadItem(t, item.ID)
	assert.Equal(t, 2, current.Quantity)
	assert.Equal(t, 2, current.InMaintenanceQuantity)
	assert.Equal(t, enums.ItemStatusInMaintenance, current.Status)

	resolved := enums.TicketStatusResolved
	_, err = f.svc.Update(ctx, ticket.ID, UpdateTicketInput{Status: &resolved}, f.actor)
	require.NoError(t, err)

	current = f.reloadItem(t, item.ID)
	assert.Equal(t, 0, current.InMaintenanceQuantity)
	assert.Equal(t, enums.ItemStatusAvailable, current.Status)
}

func TestRestoreFloorsMaintenanceQuantityAtZero(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "HST-1", 4, 0)

	ticket := &models.MaintenanceTicket{
		ID:               uuid.New(),
		ItemID:           item.ID,
		ReporterID:       f.actor.ID,
		Title:            "Cable swap",
		Priority:         enums.TicketPriorityMedium,
		Status:           enums.TicketStatusInProgress,
		InventoryAction:  enums.InventoryActionStatusOnly,
		QuantityDeducted: 3,
	}
	require.NoError(t, f.db.Create(ticket).Error)
	// the hold on the item was already zeroed out of band
	require.NoError(t, f.db.Model(item).Update("in_maintenance_quantity", 1).Error)

	resolved := enums.TicketStatusResolved
	_, err := f.svc.Update(ctx, ticket.ID, UpdateTicketInput{Status: &resolved}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 0, f.reloadItem(t, item.ID).InMaintenanceQuantity)
}

func TestTicketWithoutActionLeavesInventoryAlone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "LGT-1", 3, 0)

	ticket, err := f.svc.Create(ctx, CreateTicketInput{
		Ref:             "LGT-1",
		Title:           "Flickering",
		Priority:        enums.TicketPriorityLow,
		InventoryAction: enums.InventoryActionNone,
		Actor:           f.actor,
	})
	require.NoError(t, err)
	assert.Zero(t, ticket.QuantityDeducted)
	assert.Equal(t, 3, f.reloadItem(t, item.ID).Quantity)

	resolved := enums.TicketStatusResolved
	_, err = f.svc.Update(ctx, ticket.ID, UpdateTicketInput{Status: &resolved}, f.actor)
	require.NoError(t, err)
	assert.Equal(t, 3, f.reloadItem(t, item.ID).Quantity)
}

func TestDeleteRestoresOutstandingHold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "FAN-1", 6, 0)

	ticket, err := f.svc.Create(ctx, CreateTicketInput{
		Ref:             "FAN-1",
		Title:           "Bearing noise",
		Priority:        enums.TicketPriorityMedium,
		InventoryAction: enums.InventoryActionDeduct,
		Quantity:        2,
		Actor:           f.actor,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, f.reloadItem(t, item.ID).Quantity)

	require.NoError(t, f.svc.Delete(ctx, ticket.ID, f.actor))
	assert.Equal(t, 6, f.reloadItem(t, item.ID).Quantity)

	_, err = f.svc.Get(ctx, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestListFiltersByStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedItem(t, "MIX-1", 5, 0)

	open, err := f.svc.Create(ctx, CreateTicketInput{
		Ref: "MIX-1", Title: "A", Priority: enums.TicketPriorityLow,
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)
	other, err := f.svc.Create(ctx, CreateTicketInput{
		Ref: "MIX-1", Title: "B", Priority: enums.TicketPriorityLow,
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)

	resolved := enums.TicketStatusResolved
	_, err = f.svc.Update(ctx, other.ID, UpdateTicketInput{Status: &resolved}, f.actor)
	require.NoError(t, err)

	status := enums.TicketStatusOpen
	tickets, err := f.svc.List(ctx, TicketFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, open.ID, tickets[0].ID)
}
