package schedules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/internal/inventory"
	"github.com/rmaldonado/equiptrack-backend/internal/maintenance"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/rmaldonado/equiptrack-backend/pkg/types"
	"gorm.io/gorm"
)

type maintenanceDatesWriter interface {
	SetNextMaintenanceDate(ctx context.Context, itemID uuid.UUID, date *time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns scheduled maintenance records and keeps each item's next due
// date in sync with its open schedules.
type Service interface {
	Create(ctx context.Context, input CreateScheduleInput) (*models.ScheduledMaintenance, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ScheduledMaintenance, error)
	List(ctx context.Context, filter ListFilter) ([]models.ScheduledMaintenance, error)
	Upcoming(ctx context.Context, days int) ([]models.ScheduledMaintenance, error)
	Overdue(ctx context.Context) ([]models.ScheduledMaintenance, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateScheduleInput, actor types.Actor) (*models.ScheduledMaintenance, error)
	Delete(ctx context.Context, id uuid.UUID, actor types.Actor) error
	Complete(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.ScheduledMaintenance, error)
	CreateTicket(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.MaintenanceTicket, error)
	Stats(ctx context.Context) (*Stats, error)
}

// CreateScheduleInput plans maintenance for an item.
type CreateScheduleInput struct {
	Ref              string
	Title            string
	Description      *string
	ScheduledDate    time.Time
	InventoryAction  enums.InventoryAction
	QuantityAffected int
	Actor            types.Actor
}

// UpdateScheduleInput carries editable schedule fields. Nil means unchanged.
type UpdateScheduleInput struct {
	Title            *string
	Description      *string
	ScheduledDate    *time.Time
	InventoryAction  *enums.InventoryAction
	QuantityAffected *int
}

// ServiceParams configure the scheduled maintenance manager.
type ServiceParams struct {
	Repo    Repository
	Items   inventory.Repository
	Dates   maintenanceDatesWriter
	Tickets maintenance.Service
	Tx      txRunner
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	items   inventory.Repository
	dates   maintenanceDatesWriter
	tickets maintenance.Service
	tx      txRunner
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the scheduled maintenance manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("schedule repository required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Dates == nil {
		return nil, fmt.Errorf("maintenance dates writer required")
	}
	if params.Tickets == nil {
		return nil, fmt.Errorf("maintenance service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:    params.Repo,
		items:   params.Items,
		dates:   params.Dates,
		tickets: params.Tickets,
		tx:      params.Tx,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateScheduleInput) (*models.ScheduledMaintenance, error) {
	if input.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reference required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.ScheduledDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date required")
	}
	if !input.InventoryAction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory action")
	}
	if input.InventoryAction != enums.InventoryActionNone && input.QuantityAffected <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for inventory actions")
	}

	item, err := s.items.FindByRef(ctx, input.Ref)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}

	schedule := &models.ScheduledMaintenance{
		ID:               uuid.New(),
		ItemID:           item.ID,
		Title:            input.Title,
		Description:      input.Description,
		ScheduledDate:    input.ScheduledDate.UTC(),
		InventoryAction:  input.InventoryAction,
		QuantityAffected: input.QuantityAffected,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create schedule")
	}

	if err := s.recomputeNextDate(ctx, item.ID); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ScheduledMaintenance, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find schedule")
	}
	return schedule, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.ScheduledMaintenance, error) {
	schedules, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schedules")
	}
	return schedules, nil
}

func (s *service) Upcoming(ctx context.Context, days int) ([]models.ScheduledMaintenance, error) {
	if days <= 0 {
		days = 30
	}
	schedules, err := s.repo.ListUpcoming(ctx, startOfDay(s.now().UTC()), time.Duration(days)*24*time.Hour)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list upcoming schedules")
	}
	return schedules, nil
}

func (s *service) Overdue(ctx context.Context) ([]models.ScheduledMaintenance, error) {
	schedules, err := s.repo.ListOverdue(ctx, startOfDay(s.now().UTC()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue schedules")
	}
	return schedules, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateScheduleInput, actor types.Actor) (*models.ScheduledMaintenance, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.IsCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "completed schedules cannot be updated")
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
		}
		schedule.Title = *input.Title
	}
	if input.Description != nil {
		schedule.Description = input.Description
	}
	if input.ScheduledDate != nil {
		if input.ScheduledDate.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled date required")
		}
		schedule.ScheduledDate = input.ScheduledDate.UTC()
	}
	if input.InventoryAction != nil {
		if !input.InventoryAction.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory action")
		}
		schedule.InventoryAction = *input.InventoryAction
	}
	if input.QuantityAffected != nil {
		if *input.QuantityAffected < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
		}
		schedule.QuantityAffected = *input.QuantityAffected
	}
	if schedule.InventoryAction != enums.InventoryActionNone && schedule.QuantityAffected <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for inventory actions")
	}

	if err := s.repo.Save(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save schedule")
	}
	if err := s.recomputeNextDate(ctx, schedule.ItemID); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor types.Actor) error {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if schedule.IsCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "completed schedules cannot be deleted")
	}
	if err := s.repo.Delete(ctx, schedule.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete schedule")
	}
	return s.recomputeNextDate(ctx, schedule.ItemID)
}

// Complete closes the schedule out. Inventory held by a linked ticket is not
// touched here; it comes back through the ticket's own resolution path.
func (s *service) Complete(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.ScheduledMaintenance, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.IsCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "schedule already completed")
	}

	now := s.now().UTC()
	name := actor.Display()
	schedule.IsCompleted = true
	schedule.CompletedDate = &now
	schedule.CompletedBy = &name
	if err := s.repo.Save(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save schedule")
	}
	if err := s.recomputeNextDate(ctx, schedule.ItemID); err != nil {
		return nil, err
	}
	return schedule, nil
}

// CreateTicket turns the schedule into a maintenance ticket exactly once.
// The ticket creation applies the schedule's inventory action immediately.
func (s *service) CreateTicket(ctx context.Context, id uuid.UUID, actor types.Actor) (*models.MaintenanceTicket, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.TicketID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ticket already exists for schedule").WithDetails(map[string]any{
			"ticket_id": *schedule.TicketID,
		})
	}

	var ticket *models.MaintenanceTicket
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.tickets.WithTx(tx).Create(ctx, maintenance.CreateTicketInput{
			Ref:             schedule.ItemID.String(),
			Title:           schedule.Title,
			Description:     schedule.Description,
			Priority:        enums.TicketPriorityMedium,
			InventoryAction: schedule.InventoryAction,
			Quantity:        schedule.QuantityAffected,
			ScheduleID:      &schedule.ID,
			Actor:           actor,
		})
		if err != nil {
			return err
		}
		schedule.TicketID = &created.ID
		if err := s.repo.WithTx(tx).Save(ctx, schedule); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link ticket to schedule")
		}
		ticket = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, startOfDay(s.now().UTC()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "schedule stats")
	}
	return stats, nil
}

// recomputeNextDate writes the earliest open scheduled date at or after
// today onto the item, clearing it when no open schedule remains.
func (s *service) recomputeNextDate(ctx context.Context, itemID uuid.UUID) error {
	next, err := s.repo.NextOpenDateForItem(ctx, itemID, startOfDay(s.now().UTC()))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find next schedule date")
	}
	if err := s.dates.SetNextMaintenanceDate(ctx, itemID, next); err != nil {
		return err
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
