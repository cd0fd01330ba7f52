package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	"gorm.io/gorm"
)

// ErrNotFound signals a missing checkout record or master barcode.
var ErrNotFound = errors.New("checkout record not found")

// Repository persists and queries checkout records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.CheckoutRecord) error
	CreateBatch(ctx context.Context, records []models.CheckoutRecord) error
	Save(ctx context.Context, record *models.CheckoutRecord) error
	FindByMasterBarcode(ctx context.Context, masterBarcode string) ([]models.CheckoutRecord, error)
	FindLatestOutstanding(ctx context.Context, itemID, userID uuid.UUID) (*models.CheckoutRecord, error)
	ListMasterBarcodes(ctx context.Context, limit, offset int) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout repository over the given DB handle.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.CheckoutRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) CreateBatch(ctx context.Context, records []models.CheckoutRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *repository) Save(ctx context.Context, record *models.CheckoutRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) FindByMasterBarcode(ctx context.Context, masterBarcode string) ([]models.CheckoutRecord, error) {
	var records []models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Where("master_barcode = ?", masterBarcode).
		Order("checkout_date ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records, nil
}

// FindLatestOutstanding picks the newest still-open record for an item and
// user pair; check-ins are applied against that record first.
func (r *repository) FindLatestOutstanding(ctx context.Context, itemID, userID uuid.UUID) (*models.CheckoutRecord, error) {
	var record models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND user_id = ? AND status IN ?", itemID, userID, []enums.CheckoutStatus{
			enums.CheckoutStatusCheckedOut,
			enums.CheckoutStatusPartialReturn,
		}).
		Order("checkout_date DESC, created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListMasterBarcodes pages through distinct groups ordered by most recent
// checkout first. Receipt records from intake are excluded from the listing.
func (r *repository) ListMasterBarcodes(ctx context.Context, limit, offset int) ([]string, error) {
	var barcodes []string
	err := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Where("status <> ?", enums.CheckoutStatusReceived).
		Group("master_barcode").
		Order("MAX(checkout_date) DESC").
		Limit(limit).
		Offset(offset).
		Pluck("master_barcode", &barcodes).Error
	if err != nil {
		return nil, err
	}
	return barcodes, nil
}
