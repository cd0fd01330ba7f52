package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/rmaldonado/equiptrack-backend/pkg/pagination"
)

// Dispatcher is the fire-and-forget alert channel. Callers log and swallow
// any error it returns; delivery must never affect the triggering operation.
type Dispatcher interface {
	NotifyLowStock(ctx context.Context, item models.InventoryItem) error
	NotifyCheckoutCreated(ctx context.Context, masterBarcode string, records []models.CheckoutRecord) error
	SendMaintenanceReminder(ctx context.Context, schedule models.ScheduledMaintenance, reminder enums.ReminderType, daysUntil int) error
	SendOverdueAlert(ctx context.Context, schedule models.ScheduledMaintenance, daysOverdue int) error
}

// Service exposes the notification feed plus the dispatch side of it.
type Service interface {
	Dispatcher
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listNotificationsParams{
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) NotifyLowStock(ctx context.Context, item models.InventoryItem) error {
	kind := enums.NotificationTypeLowStock
	title := "Low stock"
	if item.Status == enums.ItemStatusOutOfStock {
		kind = enums.NotificationTypeOutOfStock
		title = "Out of stock"
	}
	itemID := item.ID
	notification := &models.Notification{
		ID:      uuid.New(),
		Type:    kind,
		Title:   title,
		Message: fmt.Sprintf("%s (%s) is down to %d on hand (minimum %d)", item.Name, item.SKU, item.Quantity, item.MinimumStock),
		ItemID:  &itemID,
	}
	return s.persist(ctx, notification)
}

func (s *service) NotifyCheckoutCreated(ctx context.Context, masterBarcode string, records []models.CheckoutRecord) error {
	total := 0
	for _, record := range records {
		total += record.Quantity
	}
	userName := ""
	if len(records) > 0 {
		userName = records[0].UserName
	}
	notification := &models.Notification{
		ID:            uuid.New(),
		Type:          enums.NotificationTypeCheckoutCreated,
		Title:         "Equipment checked out",
		Message:       fmt.Sprintf("%s checked out %d unit(s) across %d item(s)", userName, total, len(records)),
		MasterBarcode: &masterBarcode,
	}
	return s.persist(ctx, notification)
}

func (s *service) SendMaintenanceReminder(ctx context.Context, schedule models.ScheduledMaintenance, reminder enums.ReminderType, daysUntil int) error {
	itemID := schedule.ItemID
	scheduleID := schedule.ID
	notification := &models.Notification{
		ID:         uuid.New(),
		Type:       enums.NotificationTypeMaintenanceReminder,
		Title:      fmt.Sprintf("Maintenance due in %d day(s)", daysUntil),
		Message:    fmt.Sprintf("%s is scheduled for %s", schedule.Title, schedule.ScheduledDate.Format("2006-01-02")),
		ItemID:     &itemID,
		ScheduleID: &scheduleID,
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"schedule_id": schedule.ID,
			"reminder":    reminder.String(),
		})
		s.logg.Info(ctx, "maintenance reminder sent")
	}
	return s.persist(ctx, notification)
}

func (s *service) SendOverdueAlert(ctx context.Context, schedule models.ScheduledMaintenance, daysOverdue int) error {
	itemID := schedule.ItemID
	scheduleID := schedule.ID
	notification := &models.Notification{
		ID:         uuid.New(),
		Type:       enums.NotificationTypeOverdueAlert,
		Title:      fmt.Sprintf("Maintenance overdue by %d day(s)", daysOverdue),
		Message:    fmt.Sprintf("%s was scheduled for %s and is still open", schedule.Title, schedule.ScheduledDate.Format("2006-01-02")),
		ItemID:     &itemID,
		ScheduleID: &scheduleID,
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"schedule_id":  schedule.ID,
			"days_overdue": daysOverdue,
		})
		s.logg.Warn(ctx, "overdue maintenance alert sent")
	}
	return s.persist(ctx, notification)
}

func (s *service) persist(ctx context.Context, notification *models.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	return nil
}
