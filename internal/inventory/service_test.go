package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubAlerter struct {
	calls []models.InventoryItem
	err   error
}

func (s *stubAlerter) NotifyLowStock(_ context.Context, item models.InventoryItem) error {
	s.calls = append(s.calls, item)
	return s.err
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InventoryItem{}, &models.CheckoutRecord{}))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, alerts *stubAlerter, strict bool) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Tx:     gormTxRunner{db: db},
		Alerts: alerts,
		Strict: strict,
	})
	require.NoError(t, err)
	return svc
}

func seedItem(t *testing.T, db *gorm.DB, quantity, minimum int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		ID:           uuid.New(),
		SKU:          "SKU-" + uuid.NewString()[:8],
		Name:         "Impact Driver",
		Quantity:     quantity,
		MinimumStock: minimum,
		Status:       DeriveStatus(quantity, minimum, 0, false),
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func TestIntakeCreatesItemAndReceipt(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil, false)
	ctx := context.Background()
	actor := types.Actor{ID: uuid.New(), Name: "Priya"}

	item, err := svc.Intake(ctx, IntakeInput{
		SKU:          "DRL-100",
		Name:         "Hammer Drill",
		Quantity:     6,
		MinimumStock: 2,
		Actor:        actor,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusAvailable, item.Status)
	assert.Equal(t, enums.ItemActionReceived, item.LastAction)
	require.NotNil(t, item.LastActionBy)
	assert.Equal(t, "Priya", *item.LastActionBy)

	var receipt models.CheckoutRecord
	require.NoError(t, db.First(&receipt, "item_id = ?", item.ID).Error)
	assert.Equal(t, enums.CheckoutStatusReceived, receipt.Status)
	assert.Equal(t, 6, receipt.Quantity)
	assert.Equal(t, 6, receipt.ReturnedQuantity)
	assert.Zero(t, receipt.Outstanding())
}

func TestIntakeValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t), nil, false)
	ctx := context.Background()

	_, err := svc.Intake(ctx, IntakeInput{Name: "No SKU", Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Intake(ctx, IntakeInput{SKU: "X", Name: "Negative", Quantity: -1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDecreaseLowStockAlertFiresOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alerts := &stubAlerter{}
	svc := newTestService(t, db, alerts, false)
	ctx := context.Background()
	item := seedItem(t, db, 10, 3)
	actor := types.Actor{ID: uuid.New(), Name: "Marcus"}

	updated, err := svc.Decrease(ctx, AdjustInput{Ref: item.SKU, Amount: 8, Actor: actor, Action: enums.ItemActionCheckedOut})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Quantity)
	assert.Equal(t, enums.ItemStatusLowStock, updated.Status)
	require.Len(t, alerts.calls, 1)

	// staying low must not re-alert
	updated, err = svc.Decrease(ctx, AdjustInput{Ref: item.SKU, Amount: 1, Actor: actor, Action: enums.ItemActionCheckedOut})
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusLowStock, updated.Status)
	assert.Len(t, alerts.calls, 1)

	// attempting to take 3 when 1 remains leaves state untouched
	_, err = svc.Decrease(ctx, AdjustInput{Ref: item.SKU, Amount: 3, Actor: actor, Action: enums.ItemActionCheckedOut})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientQuantity, pkgerrors.As(err).Code())

	var current models.InventoryItem
	require.NoError(t, db.First(&current, "id = ?", item.ID).Error)
	assert.Equal(t, 1, current.Quantity)
}

func TestTxBoundAlertsWaitForCommit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	alerts := &stubAlerter{}
	svc := newTestService(t, db, alerts, false)
	ctx := context.Background()
	item := seedItem(t, db, 10, 3)
	actor := types.Actor{ID: uuid.New(), Name: "Marcus"}
	runner := gormTxRunner{db: db}

	// a rolled-back transaction leaves no alert behind
	err := runner.WithTx(ctx, func(tx *gorm.DB) error {
		inv := svc.WithTx(tx)
		if _, err := inv.Decrease(ctx, AdjustInput{Ref: item.SKU, Amount: 8, Actor: actor, Action: enums.ItemActionCheckedOut}); err != nil {
			return err
		}
		return errors.New("later write failed")
	})
	require.Error(t, err)
	assert.Empty(t, alerts.calls)

	var current models.InventoryItem
	require.NoError(t, db.First(&current, "id = ?", item.ID).Error)
	assert.Equal(t, 10, current.Quantity)

	// alerts queue on the clone until the caller flushes after commit
	var inv Service
	err = runner.WithTx(ctx, func(tx *gorm.DB) error {
		inv = svc.WithTx(tx)
		_, err := inv.Decrease(ctx, AdjustInput{Ref: item.SKU, Amount: 8, Actor: actor, Action: enums.ItemActionCheckedOut})
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, alerts.calls)

	inv.FlushAlerts(ctx)
	require.Len(t, alerts.calls, 1)
	assert.Equal(t, enums.ItemStatusLowStock, alerts.calls[0].Status)
}

func TestDecreaseNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t), nil, false)
	_, err := svc.Decrease(context.Background(), AdjustInput{
		Ref: "missing-sku", Amount: 1, Action: enums.ItemActionCheckedOut,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestIncreaseHasNoUpperBound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil, false)
	item := seedItem(t, db, 1, 0)

	updated, err := svc.Increase(context.Background(), AdjustInput{
		Ref: item.SKU, Amount: 100, Action: enums.ItemActionCheckedIn,
	})
	require.NoError(t, err)
	assert.Equal(t, 101, updated.Quantity)
	assert.Equal(t, enums.ItemStatusAvailable, updated.Status)
}

func TestQuantityConservation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil, false)
	ctx := context.Background()
	item := seedItem(t, db, 20, 0)

	moves := []struct {
		amount int
		up     bool
	}{{5, false}, {3, false}, {2, true}, {4, false}, {6, true}}

	net := 0
	for _, m := range moves {
		var err error
		if m.up {
			_, err = svc.Increase(ctx, AdjustInput{Ref: item.SKU, Amount: m.amount, Action: enums.ItemActionCheckedIn})
			net -= m.amount
		} else {
			_, err = svc.Decrease(ctx, AdjustInput{Ref: item.SKU, Amount: m.amount, Action: enums.ItemActionCheckedOut})
			net += m.amount
		}
		require.NoError(t, err)
	}

	var current models.InventoryItem
	require.NoError(t, db.First(&current, "id = ?", item.ID).Error)
	assert.Equal(t, 20-net, current.Quantity)
}

func TestDecreaseStrictModeGuards(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil, true)
	ctx := context.Background()
	item := seedItem(t, db, 5, 0)

	updated, err := svc.Decrease(ctx, AdjustInput{Ref: item.ID.String(), Amount: 5, Action: enums.ItemActionCheckedOut})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, enums.ItemStatusOutOfStock, updated.Status)

	_, err = svc.Decrease(ctx, AdjustInput{Ref: item.ID.String(), Amount: 1, Action: enums.ItemActionCheckedOut})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientQuantity, pkgerrors.As(err).Code())
}

func TestFindByRefResolvesAllIdentifiers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	barcode := "EQ-777"
	item := &models.InventoryItem{
		ID:       uuid.New(),
		SKU:      "REF-1",
		Name:     "Torque Wrench",
		Barcode:  &barcode,
		Quantity: 1,
		Status:   enums.ItemStatusAvailable,
	}
	require.NoError(t, db.Create(item).Error)

	byID, err := repo.FindByRef(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, item.ID, byID.ID)

	bySKU, err := repo.FindByRef(ctx, "REF-1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, bySKU.ID)

	byBarcode, err := repo.FindByRef(ctx, "EQ-777")
	require.NoError(t, err)
	assert.Equal(t, item.ID, byBarcode.ID)

	_, err = repo.FindByRef(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetNextMaintenanceDate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil, false)
	ctx := context.Background()
	item := seedItem(t, db, 2, 0)

	due := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	require.NoError(t, svc.SetNextMaintenanceDate(ctx, item.ID, &due))

	var current models.InventoryItem
	require.NoError(t, db.First(&current, "id = ?", item.ID).Error)
	require.NotNil(t, current.NextMaintenanceDate)
	assert.WithinDuration(t, due, *current.NextMaintenanceDate, time.Second)

	require.NoError(t, svc.SetNextMaintenanceDate(ctx, item.ID, nil))
	require.NoError(t, db.First(&current, "id = ?", item.ID).Error)
	assert.Nil(t, current.NextMaintenanceDate)
}

func TestAdminUpdateDiscontinue(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db, nil, false)
	ctx := context.Background()
	item := seedItem(t, db, 10, 2)

	discontinued := true
	updated, err := svc.AdminUpdate(ctx, item.ID, AdminUpdateInput{Discontinued: &discontinued}, types.Actor{Name: "admin"})
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusDiscontinued, updated.Status)
	assert.True(t, updated.Discontinued)

	// flipping back re-derives from quantities
	discontinued = false
	updated, err = svc.AdminUpdate(ctx, item.ID, AdminUpdateInput{Discontinued: &discontinued}, types.Actor{Name: "admin"})
	require.NoError(t, err)
	assert.Equal(t, enums.ItemStatusAvailable, updated.Status)
}
