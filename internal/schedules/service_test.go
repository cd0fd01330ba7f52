package schedules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/internal/inventory"
	"github.com/rmaldonado/equiptrack-backend/internal/maintenance"
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
	dsn := "file:schedules_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.InventoryItem{},
		&models.MaintenanceTicket{},
		&models.ScheduledMaintenance{},
	))

	items := inventory.NewRepository(db)
	invSvc, err := inventory.NewService(inventory.ServiceParams{
		Repo: items,
		Tx:   gormTxRunner{db: db},
	})
	require.NoError(t, err)

	applier, err := maintenance.NewApplier(items)
	require.NoError(t, err)
	ticketSvc, err := maintenance.NewService(maintenance.ServiceParams{
		Repo:    maintenance.NewRepository(db),
		Items:   items,
		Applier: applier,
		Tx:      gormTxRunner{db: db},
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(db),
		Items:   items,
		Dates:   invSvc,
		Tickets: ticketSvc,
		Tx:      gormTxRunner{db: db},
	})
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, actor: types.Actor{ID: uuid.New(), Name: "Iris"}}
}

func (f *fixture) seedItem(t *testing.T, sku string, quantity int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		ID:       uuid.New(),
		SKU:      sku,
		Name:     "Tool " + sku,
		Quantity: quantity,
		Status:   enums.ItemStatusAvailable,
	}
	require.NoError(t, f.db.Create(item).Error)
	return item
}

func (f *fixture) nextDate(t *testing.T, itemID uuid.UUID) *time.Time {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, f.db.First(&item, "id = ?", itemID).Error)
	return item.NextMaintenanceDate
}

func inDays(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, days).Truncate(time.Second)
}

func TestCreateTracksNextMaintenanceDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "CRN-1", 3)

	later := inDays(20)
	_, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "CRN-1", Title: "Annual inspection", ScheduledDate: later,
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)

	sooner := inDays(5)
	soonerSchedule, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "CRN-1", Title: "Rope check", ScheduledDate: sooner,
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)

	next := f.nextDate(t, item.ID)
	require.NotNil(t, next)
	assert.WithinDuration(t, sooner, *next, time.Second)

	// deleting the nearest schedule rolls the due date forward
	require.NoError(t, f.svc.Delete(ctx, soonerSchedule.ID, f.actor))
	next = f.nextDate(t, item.ID)
	require.NotNil(t, next)
	assert.WithinDuration(t, later, *next, time.Second)
}

func TestCompleteClearsNextDateWhenNothingRemains(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "LFT-1", 2)

	schedule, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "LFT-1", Title: "Hydraulic check", ScheduledDate: inDays(3),
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)
	require.NotNil(t, f.nextDate(t, item.ID))

	completed, err := f.svc.Complete(ctx, schedule.ID, f.actor)
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	require.NotNil(t, completed.CompletedDate)
	require.NotNil(t, completed.CompletedBy)
	assert.Equal(t, "Iris", *completed.CompletedBy)
	assert.Nil(t, f.nextDate(t, item.ID))

	_, err = f.svc.Complete(ctx, schedule.ID, f.actor)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCompletedSchedulesAreImmutable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedItem(t, "PWR-1", 2)

	schedule, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "PWR-1", Title: "Filter change", ScheduledDate: inDays(2),
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, schedule.ID, f.actor)
	require.NoError(t, err)

	title := "Renamed"
	_, err = f.svc.Update(ctx, schedule.ID, UpdateScheduleInput{Title: &title}, f.actor)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	err = f.svc.Delete(ctx, schedule.ID, f.actor)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCreateTicketOncePerSchedule(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "WLD-1", 5)

	schedule, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "WLD-1", Title: "Torch service", ScheduledDate: inDays(4),
		InventoryAction: enums.InventoryActionDeduct, QuantityAffected: 2,
		Actor: f.actor,
	})
	require.NoError(t, err)

	ticket, err := f.svc.CreateTicket(ctx, schedule.ID, f.actor)
	require.NoError(t, err)
	require.NotNil(t, ticket.ScheduleID)
	assert.Equal(t, schedule.ID, *ticket.ScheduleID)
	assert.Equal(t, 2, ticket.QuantityDeducted)

	// the deduct hold landed on the item immediately
	var current models.InventoryItem
	require.NoError(t, f.db.First(&current, "id = ?", item.ID).Error)
	assert.Equal(t, 3, current.Quantity)

	_, err = f.svc.CreateTicket(ctx, schedule.ID, f.actor)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

type flakySaveRepo struct {
	Repository
	failSave *bool
}

func (r *flakySaveRepo) WithTx(tx *gorm.DB) Repository {
	return &flakySaveRepo{Repository: r.Repository.WithTx(tx), failSave: r.failSave}
}

func (r *flakySaveRepo) Save(ctx context.Context, schedule *models.ScheduledMaintenance) error {
	if *r.failSave {
		return errors.New("save rejected")
	}
	return r.Repository.Save(ctx, schedule)
}

func TestCreateTicketRollsBackWhenLinkFails(t *testing.T) {
	t.Parallel()

	dsn := "file:schedules_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.InventoryItem{},
		&models.MaintenanceTicket{},
		&models.ScheduledMaintenance{},
	))

	items := inventory.NewRepository(db)
	invSvc, err := inventory.NewService(inventory.ServiceParams{
		Repo: items,
		Tx:   gormTxRunner{db: db},
	})
	require.NoError(t, err)

	applier, err := maintenance.NewApplier(items)
	require.NoError(t, err)
	ticketSvc, err := maintenance.NewService(maintenance.ServiceParams{
		Repo:    maintenance.NewRepository(db),
		Items:   items,
		Applier: applier,
		Tx:      gormTxRunner{db: db},
	})
	require.NoError(t, err)

	failSave := false
	repo := &flakySaveRepo{Repository: NewRepository(db), failSave: &failSave}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Items:   items,
		Dates:   invSvc,
		Tickets: ticketSvc,
		Tx:      gormTxRunner{db: db},
	})
	require.NoError(t, err)

	actor := types.Actor{ID: uuid.New(), Name: "Iris"}
	item := &models.InventoryItem{
		ID:       uuid.New(),
		SKU:      "WLD-2",
		Name:     "Tool WLD-2",
		Quantity: 5,
		Status:   enums.ItemStatusAvailable,
	}
	require.NoError(t, db.Create(item).Error)

	ctx := context.Background()
	schedule, err := svc.Create(ctx, CreateScheduleInput{
		Ref: "WLD-2", Title: "Torch service", ScheduledDate: inDays(4),
		InventoryAction: enums.InventoryActionDeduct, QuantityAffected: 2,
		Actor: actor,
	})
	require.NoError(t, err)

	failSave = true
	_, err = svc.CreateTicket(ctx, schedule.ID, actor)
	require.Error(t, err)

	// no orphan ticket and no hold survive the rollback
	var tickets int64
	require.NoError(t, db.Model(&models.MaintenanceTicket{}).Count(&tickets).Error)
	assert.Zero(t, tickets)
	var current models.InventoryItem
	require.NoError(t, db.First(&current, "id = ?", item.ID).Error)
	assert.Equal(t, 5, current.Quantity)

	// the schedule is untouched and still produces its ticket
	failSave = false
	ticket, err := svc.CreateTicket(ctx, schedule.ID, actor)
	require.NoError(t, err)
	require.NotNil(t, ticket.ScheduleID)
	assert.Equal(t, schedule.ID, *ticket.ScheduleID)
}

func TestUpcomingOverdueAndStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "GRD-1", 2)

	past := &models.ScheduledMaintenance{
		ID:            uuid.New(),
		ItemID:        item.ID,
		Title:         "Missed",
		ScheduledDate: time.Now().UTC().AddDate(0, 0, -3),
	}
	require.NoError(t, f.db.Create(past).Error)

	// due today counts on both sides of the day boundary
	dueToday := &models.ScheduledMaintenance{
		ID:            uuid.New(),
		ItemID:        item.ID,
		Title:         "Due today",
		ScheduledDate: startOfDay(time.Now().UTC()),
	}
	require.NoError(t, f.db.Create(dueToday).Error)

	_, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "GRD-1", Title: "Soon", ScheduledDate: inDays(5),
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)

	done, err := f.svc.Create(ctx, CreateScheduleInput{
		Ref: "GRD-1", Title: "Done", ScheduledDate: inDays(1),
		InventoryAction: enums.InventoryActionNone, Actor: f.actor,
	})
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, done.ID, f.actor)
	require.NoError(t, err)

	upcoming, err := f.svc.Upcoming(ctx, 30)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "Due today", upcoming[0].Title)
	assert.Equal(t, "Soon", upcoming[1].Title)

	overdue, err := f.svc.Overdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "Missed", overdue[0].Title)
	assert.Equal(t, "Due today", overdue[1].Title)

	// the counters agree with the listings above
	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(2), stats.Upcoming)
	assert.Equal(t, int64(2), stats.Overdue)
	assert.Equal(t, int64(1), stats.CompletedThisMonth)
}
