package maintenance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	"gorm.io/gorm"
)

// ErrNotFound signals a missing maintenance ticket.
var ErrNotFound = errors.New("maintenance ticket not found")

// TicketFilter narrows the ticket listing.
type TicketFilter struct {
	ItemID *uuid.UUID
	Status *enums.TicketStatus
	Limit  int
	Offset int
}

// Repository persists maintenance tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, ticket *models.MaintenanceTicket) error
	Save(ctx context.Context, ticket *models.MaintenanceTicket) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTicket, error)
	FindByScheduleID(ctx context.Context, scheduleID uuid.UUID) (*models.MaintenanceTicket, error)
	List(ctx context.Context, filter TicketFilter) ([]models.MaintenanceTicket, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a maintenance ticket repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, ticket *models.MaintenanceTicket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) Save(ctx context.Context, ticket *models.MaintenanceTicket) error {
	return r.db.WithContext(ctx).Save(ticket).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MaintenanceTicket{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MaintenanceTicket, error) {
	var ticket models.MaintenanceTicket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) FindByScheduleID(ctx context.Context, scheduleID uuid.UUID) (*models.MaintenanceTicket, error) {
	var ticket models.MaintenanceTicket
	err := r.db.WithContext(ctx).First(&ticket, "schedule_id = ?", scheduleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) List(ctx context.Context, filter TicketFilter) ([]models.MaintenanceTicket, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.MaintenanceTicket{})
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var tickets []models.MaintenanceTicket
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
