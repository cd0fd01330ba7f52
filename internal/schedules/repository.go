package schedules

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ErrNotFound signals a missing schedule.
var ErrNotFound = errors.New("scheduled maintenance not found")

// Stats are the schedule counters exposed on the stats endpoint.
type Stats struct {
	Total              int64 `json:"total"`
	Upcoming           int64 `json:"upcoming"`
	Overdue            int64 `json:"overdue"`
	CompletedThisMonth int64 `json:"completed_this_month"`
}

// ListFilter narrows the schedule listing.
type ListFilter struct {
	ItemID *uuid.UUID
	Limit  int
	Offset int
}

// Repository persists scheduled maintenance rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, schedule *models.ScheduledMaintenance) error
	Save(ctx context.Context, schedule *models.ScheduledMaintenance) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ScheduledMaintenance, error)
	List(ctx context.Context, filter ListFilter) ([]models.ScheduledMaintenance, error)
	ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]models.ScheduledMaintenance, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]models.ScheduledMaintenance, error)
	ListPendingReminders(ctx context.Context, from, until time.Time) ([]models.ScheduledMaintenance, error)
	NextOpenDateForItem(ctx context.Context, itemID uuid.UUID, from time.Time) (*time.Time, error)
	Stats(ctx context.Context, today time.Time) (*Stats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a scheduled maintenance repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, schedule *models.ScheduledMaintenance) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *repository) Save(ctx context.Context, schedule *models.ScheduledMaintenance) error {
	return r.db.WithContext(ctx).Save(schedule).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ScheduledMaintenance{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ScheduledMaintenance, error) {
	var schedule models.ScheduledMaintenance
	err := r.db.WithContext(ctx).First(&schedule, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.ScheduledMaintenance, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).Model(&models.ScheduledMaintenance{})
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}

	var schedules []models.ScheduledMaintenance
	err := query.Order("scheduled_date ASC, id ASC").Limit(limit).Offset(offset).Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repository) ListUpcoming(ctx context.Context, from time.Time, within time.Duration) ([]models.ScheduledMaintenance, error) {
	var schedules []models.ScheduledMaintenance
	err := r.db.WithContext(ctx).
		Where("is_completed = ? AND scheduled_date >= ? AND scheduled_date <= ?", false, from, from.Add(within)).
		Order("scheduled_date ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]models.ScheduledMaintenance, error) {
	var schedules []models.ScheduledMaintenance
	err := r.db.WithContext(ctx).
		Where("is_completed = ? AND scheduled_date <= ?", false, asOf).
		Order("scheduled_date ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// ListPendingReminders returns open schedules inside the reminder window
// that still have at least one threshold left to fire.
func (r *repository) ListPendingReminders(ctx context.Context, from, until time.Time) ([]models.ScheduledMaintenance, error) {
	var schedules []models.ScheduledMaintenance
	err := r.db.WithContext(ctx).
		Where("is_completed = ? AND scheduled_date >= ? AND scheduled_date <= ?", false, from, until).
		Where("reminder_14_sent = ? OR reminder_7_sent = ? OR reminder_1_sent = ?", false, false, false).
		Order("scheduled_date ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

// NextOpenDateForItem finds the earliest open scheduled date at or after the
// given day, or nil when none remain.
func (r *repository) NextOpenDateForItem(ctx context.Context, itemID uuid.UUID, from time.Time) (*time.Time, error) {
	var schedule models.ScheduledMaintenance
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND is_completed = ? AND scheduled_date >= ?", itemID, false, from).
		Order("scheduled_date ASC").
		First(&schedule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule.ScheduledDate, nil
}

// Stats expects today to be a start-of-day boundary so its counters agree
// with the upcoming and overdue listings.
func (r *repository) Stats(ctx context.Context, today time.Time) (*Stats, error) {
	stats := &Stats{}
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.ScheduledMaintenance{})
	}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_completed = ? AND scheduled_date >= ?", false, today).Count(&stats.Upcoming).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_completed = ? AND scheduled_date <= ?", false, today).Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)
	err := base().
		Where("is_completed = ? AND completed_date >= ? AND completed_date < ?", true, monthStart, monthEnd).
		Count(&stats.CompletedThisMonth).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
