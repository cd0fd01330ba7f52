package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/rmaldonado/equiptrack-backend/api/routes"
	checkoutsvc "github.com/rmaldonado/equiptrack-backend/internal/checkout"
	"github.com/rmaldonado/equiptrack-backend/internal/cron"
	inventorysvc "github.com/rmaldonado/equiptrack-backend/internal/inventory"
	maintenancesvc "github.com/rmaldonado/equiptrack-backend/internal/maintenance"
	"github.com/rmaldonado/equiptrack-backend/internal/notifications"
	schedulesvc "github.com/rmaldonado/equiptrack-backend/internal/schedules"
	"github.com/rmaldonado/equiptrack-backend/pkg/config"
	"github.com/rmaldonado/equiptrack-backend/pkg/db"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/rmaldonado/equiptrack-backend/pkg/metrics"
	"github.com/rmaldonado/equiptrack-backend/pkg/migrate"
	"github.com/rmaldonado/equiptrack-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	inventoryService, err := inventorysvc.NewService(inventorysvc.ServiceParams{
		Repo:   inventorysvc.NewRepository(gormDB),
		Tx:     dbClient,
		Alerts: notificationService,
		Logger: logg,
		Strict: cfg.Inventory.StrictConsistency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Repo:      checkoutsvc.NewRepository(gormDB),
		Inventory: inventoryService,
		Tx:        dbClient,
		Notifier:  notificationService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	applier, err := maintenancesvc.NewApplier(inventorysvc.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory applier", err)
		os.Exit(1)
	}

	maintenanceService, err := maintenancesvc.NewService(maintenancesvc.ServiceParams{
		Repo:    maintenancesvc.NewRepository(gormDB),
		Items:   inventorysvc.NewRepository(gormDB),
		Applier: applier,
		Tx:      dbClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create maintenance service", err)
		os.Exit(1)
	}

	scheduleService, err := schedulesvc.NewService(schedulesvc.ServiceParams{
		Repo:    schedulesvc.NewRepository(gormDB),
		Items:   inventorysvc.NewRepository(gormDB),
		Dates:   inventoryService,
		Tickets: maintenanceService,
		Tx:      dbClient,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create schedule service", err)
		os.Exit(1)
	}

	reminderService, err := buildReminderService(cfg, logg, gormDB, redisClient, notificationService)
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			inventoryService,
			checkoutService,
			maintenanceService,
			scheduleService,
			notificationService,
			reminderService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

// buildReminderService wires a cron service that the API only ever runs on
// demand, behind the same distributed lock the cron worker holds.
func buildReminderService(
	cfg *config.Config,
	logg *logger.Logger,
	gormDB *gorm.DB,
	redisClient *redis.Client,
	notificationService notifications.Service,
) (*cron.Service, error) {
	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone: %w", err)
	}

	scheduleRepo := schedulesvc.NewRepository(gormDB)

	reminderJob, err := cron.NewReminderJob(scheduleRepo, notificationService, logg, location)
	if err != nil {
		return nil, err
	}
	overdueJob, err := cron.NewOverdueJob(scheduleRepo, notificationService, logg, location)
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf("et:cron-worker:lock:%s", cfg.App.Env), 0)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reminderJob, overdueJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Scheduler.Interval,
	})
}
