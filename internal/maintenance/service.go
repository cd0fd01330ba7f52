package maintenance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/internal/inventory"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/rmaldonado/equiptrack-backend/pkg/types"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages maintenance tickets and the inventory holds they carry.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Create(ctx context.Context, input CreateTicketInput) (*models.MaintenanceTicket, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MaintenanceTicket, error)
	List(ctx context.Context, filter TicketFilter) ([]models.MaintenanceTicket, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateTicketInput, actor types.Actor) (*models.MaintenanceTicket, error)
	Delete(ctx context.Context, id uuid.UUID, actor types.Actor) error
}

// CreateTicketInput opens a ticket against an item, optionally taking an
// inventory hold at the same time.
type CreateTicketInput struct {
	Ref             string
	Title           string
	Description     *string
	Priority        enums.TicketPriority
	InventoryAction enums.InventoryAction
	Quantity        int
	ScheduleID      *uuid.UUID
	Actor           types.Actor
}

// UpdateTicketInput carries the editable ticket fields. Nil means unchanged.
type UpdateTicketInput struct {
	Title       *string
	Description *string
	Priority    *enums.TicketPriority
	Status      *enums.TicketStatus
}

// ServiceParams configure the maintenance ticket service.
type ServiceParams struct {
	Repo    Repository
	Items   inventory.Repository
	Applier Applier
	Tx      txRunner
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	items   inventory.Repository
	applier Applier
	tx      txRunner
	logg    *logger.Logger
}

// NewService builds the maintenance ticket service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("maintenance repository required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Applier == nil {
		return nil, fmt.Errorf("applier required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:    params.Repo,
		items:   params.Items,
		applier: params.Applier,
		tx:      params.Tx,
		logg:    params.Logger,
	}, nil
}

// boundTx satisfies txRunner against an already-open transaction. Callbacks
// join the caller's atomic scope instead of opening their own.
type boundTx struct {
	tx *gorm.DB
}

func (b boundTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(b.tx)
}

// WithTx rebinds the ticket service to an open transaction so its writes
// commit or roll back with the caller's.
func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	clone.items = s.items.WithTx(tx)
	clone.tx = boundTx{tx: tx}
	return &clone
}

func (s *service) Create(ctx context.Context, input CreateTicketInput) (*models.MaintenanceTicket, error) {
	if input.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reference required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if !input.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
	}
	if !input.InventoryAction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid inventory action")
	}
	if input.InventoryAction != enums.InventoryActionNone && input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive for inventory actions")
	}

	item, err := s.items.FindByRef(ctx, input.Ref)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}

	ticket := &models.MaintenanceTicket{
		ID:              uuid.New(),
		ItemID:          item.ID,
		ReporterID:      input.Actor.ID,
		Title:           input.Title,
		Description:     input.Description,
		Priority:        input.Priority,
		Status:          enums.TicketStatusOpen,
		InventoryAction: input.InventoryAction,
		ScheduleID:      input.ScheduleID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.applier.WithTx(tx).Apply(ctx, ticket, input.Quantity, input.Actor); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create maintenance ticket")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.MaintenanceTicket, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "maintenance ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find maintenance ticket")
	}
	return ticket, nil
}

func (s *service) List(ctx context.Context, filter TicketFilter) ([]models.MaintenanceTicket, error) {
	tickets, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list maintenance tickets")
	}
	return tickets, nil
}

// Update edits the ticket. The inventory hold is credited back on the first
// transition into a terminal status; the previous status guards against
// re-triggering when a terminal ticket is edited again.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateTicketInput, actor types.Actor) (*models.MaintenanceTicket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
		}
		ticket.Title = *input.Title
	}
	if input.Description != nil {
		ticket.Description = input.Description
	}
	if input.Priority != nil {
		if !input.Priority.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
		}
		ticket.Priority = *input.Priority
	}

	previous := ticket.Status
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		ticket.Status = *input.Status
	}
	releases := !previous.Terminal() && ticket.Status.Terminal()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if releases {
			if err := s.applier.WithTx(tx).Restore(ctx, ticket, actor); err != nil {
				return err
			}
		}
		if err := s.repo.WithTx(tx).Save(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save maintenance ticket")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes the ticket. A hold that was never credited back is restored
// first so the item's quantities do not leak.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actor types.Actor) error {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.applier.WithTx(tx).Restore(ctx, ticket, actor); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Delete(ctx, ticket.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete maintenance ticket")
		}
		return nil
	})
}
