package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	checkoutsvc "github.com/rmaldonado/equiptrack-backend/internal/checkout"
	inventorysvc "github.com/rmaldonado/equiptrack-backend/internal/inventory"
	maintenancesvc "github.com/rmaldonado/equiptrack-backend/internal/maintenance"
	"github.com/rmaldonado/equiptrack-backend/internal/notifications"
	schedulesvc "github.com/rmaldonado/equiptrack-backend/internal/schedules"
	pkgAuth "github.com/rmaldonado/equiptrack-backend/pkg/auth"
	"github.com/rmaldonado/equiptrack-backend/pkg/config"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubReminderRunner struct {
	runs int
}

func (s *stubReminderRunner) RunNow(context.Context) error {
	s.runs++
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type routerFixture struct {
	handler  http.Handler
	token    string
	reminder *stubReminderRunner
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.InventoryItem{},
		&models.CheckoutRecord{},
		&models.MaintenanceTicket{},
		&models.ScheduledMaintenance{},
		&models.Notification{},
	))

	logg := logger.New(logger.Options{ServiceName: "routes-test"})
	tx := gormTxRunner{db: db}

	notificationService, err := notifications.NewService(notifications.NewRepository(db), logg)
	require.NoError(t, err)

	inventoryService, err := inventorysvc.NewService(inventorysvc.ServiceParams{
		Repo:   inventorysvc.NewRepository(db),
		Tx:     tx,
		Alerts: notificationService,
		Logger: logg,
	})
	require.NoError(t, err)

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Repo:      checkoutsvc.NewRepository(db),
		Inventory: inventoryService,
		Tx:        tx,
		Notifier:  notificationService,
		Logger:    logg,
	})
	require.NoError(t, err)

	applier, err := maintenancesvc.NewApplier(inventorysvc.NewRepository(db))
	require.NoError(t, err)

	maintenanceService, err := maintenancesvc.NewService(maintenancesvc.ServiceParams{
		Repo:    maintenancesvc.NewRepository(db),
		Items:   inventorysvc.NewRepository(db),
		Applier: applier,
		Tx:      tx,
		Logger:  logg,
	})
	require.NoError(t, err)

	scheduleService, err := schedulesvc.NewService(schedulesvc.ServiceParams{
		Repo:    schedulesvc.NewRepository(db),
		Items:   inventorysvc.NewRepository(db),
		Dates:   inventoryService,
		Tickets: maintenanceService,
		Tx:      tx,
		Logger:  logg,
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "router-test-secret", Issuer: "equiptrack-test", ExpirationMinutes: 5}

	reminder := &stubReminderRunner{}

	handler := NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		inventoryService,
		checkoutService,
		maintenanceService,
		scheduleService,
		notificationService,
		reminder,
	)

	token, err := pkgAuth.MintActorToken(cfg.JWT, time.Now(), pkgAuth.ActorPayload{UserID: uuid.New(), Name: "Dana"})
	require.NoError(t, err)

	return &routerFixture{handler: handler, token: token, reminder: reminder}
}

func (f *routerFixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	f := newRouterFixture(t)

	live := f.do(t, http.MethodGet, "/health/live", nil, false)
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "test", live.Header().Get("X-EquipTrack-Env"))

	ready := f.do(t, http.MethodGet, "/health/ready", nil, false)
	assert.Equal(t, http.StatusOK, ready.Code)
}

func TestMutatingRoutesRequireAuth(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/inventory", map[string]any{
		"sku": "DRL-100", "name": "Drill", "quantity": 5,
	}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/schedules/stats", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInventoryLifecycleOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	created := f.do(t, http.MethodPost, "/api/v1/inventory", map[string]any{
		"sku":           "DRL-100",
		"name":          "Cordless Drill",
		"quantity":      10,
		"minimum_stock": 3,
	}, true)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	fetched := f.do(t, http.MethodGet, "/api/v1/inventory/DRL-100", nil, true)
	require.Equal(t, http.StatusOK, fetched.Code)

	var envelope struct {
		Data struct {
			ID       uuid.UUID
			SKU      string
			Quantity int
		}
	}
	require.NoError(t, json.Unmarshal(fetched.Body.Bytes(), &envelope))
	assert.Equal(t, "DRL-100", envelope.Data.SKU)
	assert.Equal(t, 10, envelope.Data.Quantity)

	missing := f.do(t, http.MethodGet, "/api/v1/inventory/NOPE-1", nil, true)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestCheckoutAndCheckinOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	created := f.do(t, http.MethodPost, "/api/v1/inventory", map[string]any{
		"sku": "SAW-200", "name": "Circular Saw", "quantity": 6,
	}, true)
	require.Equal(t, http.StatusCreated, created.Code)

	out := f.do(t, http.MethodPost, "/api/v1/checkouts", map[string]any{
		"ref": "SAW-200", "quantity": 2,
	}, true)
	require.Equal(t, http.StatusCreated, out.Code, out.Body.String())

	var envelope struct {
		Data struct {
			MasterBarcode  string `json:"master_barcode"`
			TotalItems     int    `json:"total_items"`
			RemainingItems int    `json:"remaining_items"`
		}
	}
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.MasterBarcode)
	assert.Equal(t, 2, envelope.Data.TotalItems)

	group := f.do(t, http.MethodGet, "/api/v1/checkouts/"+envelope.Data.MasterBarcode, nil, true)
	assert.Equal(t, http.StatusOK, group.Code)

	in := f.do(t, http.MethodPost, "/api/v1/checkins", map[string]any{
		"ref": "SAW-200", "quantity": 2,
	}, true)
	assert.Equal(t, http.StatusOK, in.Code, in.Body.String())

	over := f.do(t, http.MethodPost, "/api/v1/checkins", map[string]any{
		"ref": "SAW-200", "quantity": 1,
	}, true)
	assert.Equal(t, http.StatusNotFound, over.Code)
}

func TestInsufficientQuantitySurfacesDetails(t *testing.T) {
	f := newRouterFixture(t)

	created := f.do(t, http.MethodPost, "/api/v1/inventory", map[string]any{
		"sku": "LAD-300", "name": "Ladder", "quantity": 1,
	}, true)
	require.Equal(t, http.StatusCreated, created.Code)

	rec := f.do(t, http.MethodPost, "/api/v1/checkouts", map[string]any{
		"ref": "LAD-300", "quantity": 5,
	}, true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var envelope struct {
		Error struct {
			Code    string
			Details map[string]any
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INSUFFICIENT_QUANTITY", envelope.Error.Code)
	assert.NotEmpty(t, envelope.Error.Details)
}

func TestReminderSweepTrigger(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/schedules/reminders/run", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.reminder.runs)
}

func TestScheduleRoutesOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	created := f.do(t, http.MethodPost, "/api/v1/inventory", map[string]any{
		"sku": "GEN-400", "name": "Generator", "quantity": 2,
	}, true)
	require.Equal(t, http.StatusCreated, created.Code)

	date := time.Now().AddDate(0, 0, 10).UTC().Format(time.RFC3339)
	schedule := f.do(t, http.MethodPost, "/api/v1/schedules", map[string]any{
		"ref":            "GEN-400",
		"title":          "Oil change",
		"scheduled_date": date,
	}, true)
	require.Equal(t, http.StatusCreated, schedule.Code, schedule.Body.String())

	var envelope struct {
		Data struct {
			ID uuid.UUID
		}
	}
	require.NoError(t, json.Unmarshal(schedule.Body.Bytes(), &envelope))

	upcoming := f.do(t, http.MethodGet, "/api/v1/schedules/upcoming?days=30", nil, true)
	assert.Equal(t, http.StatusOK, upcoming.Code)

	ticket := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/schedules/%s/create-ticket", envelope.Data.ID), nil, true)
	require.Equal(t, http.StatusCreated, ticket.Code, ticket.Body.String())

	again := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/schedules/%s/create-ticket", envelope.Data.ID), nil, true)
	assert.Equal(t, http.StatusConflict, again.Code)

	complete := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/schedules/%s/complete", envelope.Data.ID), nil, true)
	assert.Equal(t, http.StatusOK, complete.Code)

	stats := f.do(t, http.MethodGet, "/api/v1/schedules/stats", nil, true)
	assert.Equal(t, http.StatusOK, stats.Code)
}
