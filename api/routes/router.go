package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmaldonado/equiptrack-backend/api/controllers"
	"github.com/rmaldonado/equiptrack-backend/api/middleware"
	checkoutsvc "github.com/rmaldonado/equiptrack-backend/internal/checkout"
	inventorysvc "github.com/rmaldonado/equiptrack-backend/internal/inventory"
	maintenancesvc "github.com/rmaldonado/equiptrack-backend/internal/maintenance"
	"github.com/rmaldonado/equiptrack-backend/internal/notifications"
	schedulesvc "github.com/rmaldonado/equiptrack-backend/internal/schedules"
	"github.com/rmaldonado/equiptrack-backend/pkg/config"
	"github.com/rmaldonado/equiptrack-backend/pkg/db"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/rmaldonado/equiptrack-backend/pkg/redis"
)

// ReminderRunner triggers one reminder sweep on demand.
type ReminderRunner interface {
	RunNow(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	inventoryService inventorysvc.Service,
	checkoutService checkoutsvc.Service,
	maintenanceService maintenancesvc.Service,
	scheduleService schedulesvc.Service,
	notificationService notifications.Service,
	reminders ReminderRunner,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", controllers.IntakeItem(inventoryService, logg))
			r.Get("/", controllers.ListItems(inventoryService, logg))
			r.Get("/{ref}", controllers.GetItem(inventoryService, logg))
			r.Patch("/{itemId}", controllers.UpdateItem(inventoryService, logg))
		})

		r.Route("/checkouts", func(r chi.Router) {
			r.Post("/", controllers.CheckOutItem(checkoutService, logg))
			r.Post("/bulk", controllers.CheckOutBulk(checkoutService, logg))
			r.Get("/", controllers.ListCheckoutGroups(checkoutService, logg))
			r.Get("/{masterBarcode}", controllers.GetCheckoutGroup(checkoutService, logg))
		})

		r.Route("/checkins", func(r chi.Router) {
			r.Post("/", controllers.CheckInItem(checkoutService, logg))
			r.Post("/bulk", controllers.CheckInBulk(checkoutService, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", controllers.CreateTicket(maintenanceService, logg))
			r.Get("/", controllers.ListTickets(maintenanceService, logg))
			r.Get("/{ticketId}", controllers.GetTicket(maintenanceService, logg))
			r.Patch("/{ticketId}", controllers.UpdateTicket(maintenanceService, logg))
			r.Delete("/{ticketId}", controllers.DeleteTicket(maintenanceService, logg))
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", controllers.CreateSchedule(scheduleService, logg))
			r.Get("/", controllers.ListSchedules(scheduleService, logg))
			r.Get("/upcoming", controllers.UpcomingSchedules(scheduleService, logg))
			r.Get("/overdue", controllers.OverdueSchedules(scheduleService, logg))
			r.Get("/stats", controllers.ScheduleStats(scheduleService, logg))
			r.Post("/reminders/run", controllers.RunReminders(reminders, logg))
			r.Get("/{scheduleId}", controllers.GetSchedule(scheduleService, logg))
			r.Patch("/{scheduleId}", controllers.UpdateSchedule(scheduleService, logg))
			r.Delete("/{scheduleId}", controllers.DeleteSchedule(scheduleService, logg))
			r.Post("/{scheduleId}/complete", controllers.CompleteSchedule(scheduleService, logg))
			r.Post("/{scheduleId}/create-ticket", controllers.ScheduleCreateTicket(scheduleService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})
	})

	return r
}
