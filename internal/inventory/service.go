package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/rmaldonado/equiptrack-backend/pkg/pagination"
	"github.com/rmaldonado/equiptrack-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockAlerter interface {
	NotifyLowStock(ctx context.Context, item models.InventoryItem) error
}

// Service is the quantity synchronizer: every quantity mutation and status
// re-derivation for inventory items flows through here.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Intake(ctx context.Context, input IntakeInput) (*models.InventoryItem, error)
	GetByRef(ctx context.Context, ref string) (*models.InventoryItem, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, input AdminUpdateInput, actor types.Actor) (*models.InventoryItem, error)
	Decrease(ctx context.Context, input AdjustInput) (*models.InventoryItem, error)
	Increase(ctx context.Context, input AdjustInput) (*models.InventoryItem, error)
	SetNextMaintenanceDate(ctx context.Context, itemID uuid.UUID, date *time.Time) error
	FlushAlerts(ctx context.Context)
}

// IntakeInput describes a new item arriving on the shelf.
type IntakeInput struct {
	SKU          string
	Name         string
	Barcode      *string
	Quantity     int
	MinimumStock int
	UnitCost     *decimal.Decimal
	Actor        types.Actor
}

// AdjustInput drives a single increase or decrease.
type AdjustInput struct {
	Ref    string
	Amount int
	Actor  types.Actor
	Action enums.ItemAction
}

// AdminUpdateInput carries the administrative edits allowed on an item.
type AdminUpdateInput struct {
	Name         *string
	MinimumStock *int
	Barcode      *string
	Discontinued *bool
}

// ListParams configures cursor pagination for the item listing.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult wraps returned items and the cursor for the next page.
type ListResult struct {
	Items  []models.InventoryItem `json:"items"`
	Cursor string                 `json:"cursor"`
}

// ServiceParams configure the synchronizer.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Alerts stockAlerter
	Logger *logger.Logger
	Strict bool
}

type service struct {
	repo   Repository
	tx     txRunner
	alerts stockAlerter
	logg   *logger.Logger
	strict bool
	now    func() time.Time

	// set on tx-bound clones: alerts queue here until the caller commits
	deferAlerts bool
	pending     []stockTransition
}

type stockTransition struct {
	prev enums.ItemStatus
	item models.InventoryItem
}

// NewService builds the inventory synchronizer.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:   params.Repo,
		tx:     params.Tx,
		alerts: params.Alerts,
		logg:   params.Logger,
		strict: params.Strict,
		now:    time.Now,
	}, nil
}

// WithTx rebinds the synchronizer to an open transaction so callers can fold
// its mutations into their own atomic scope.
func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.repo = s.repo.WithTx(tx)
	clone.deferAlerts = true
	clone.pending = nil
	return &clone
}

func (s *service) Intake(ctx context.Context, input IntakeInput) (*models.InventoryItem, error) {
	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.MinimumStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock cannot be negative")
	}

	now := s.now().UTC()
	actorName := input.Actor.Display()
	item := &models.InventoryItem{
		ID:             uuid.New(),
		SKU:            input.SKU,
		Name:           input.Name,
		Barcode:        input.Barcode,
		Quantity:       input.Quantity,
		MinimumStock:   input.MinimumStock,
		UnitCost:       input.UnitCost,
		Status:         DeriveStatus(input.Quantity, input.MinimumStock, 0, false),
		LastAction:     enums.ItemActionReceived,
		LastActionDate: &now,
		LastActionBy:   &actorName,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
		}
		// Intake writes a no-op "already home" receipt so the checkout
		// history starts at the moment the item arrived.
		receipt := &models.CheckoutRecord{
			ID:               uuid.New(),
			MasterBarcode:    fmt.Sprintf("RCV-%s", uuid.NewString()[:8]),
			ItemID:           item.ID,
			UserID:           input.Actor.ID,
			UserName:         input.Actor.Name,
			Quantity:         input.Quantity,
			ReturnedQuantity: input.Quantity,
			Status:           enums.CheckoutStatusReceived,
			CheckoutDate:     now,
			ActualReturnDate: &now,
		}
		if err := tx.WithContext(ctx).Create(receipt).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create receipt record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) GetByRef(ctx context.Context, ref string) (*models.InventoryItem, error) {
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reference required")
	}
	item, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}

	items, err := s.repo.List(ctx, limit+1, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	next := ""
	if len(items) > limit {
		last := items[limit-1]
		items = items[:limit]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

func (s *service) AdminUpdate(ctx context.Context, id uuid.UUID, input AdminUpdateInput, actor types.Actor) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Barcode != nil {
		item.Barcode = input.Barcode
	}
	if input.MinimumStock != nil {
		if *input.MinimumStock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock cannot be negative")
		}
		item.MinimumStock = *input.MinimumStock
	}
	if input.Discontinued != nil {
		item.Discontinued = *input.Discontinued
	}

	s.stamp(item, enums.ItemActionAdjusted, actor)
	prev := item.Status
	item.Status = DeriveStatus(item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Discontinued)
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inventory item")
	}
	s.maybeAlert(ctx, prev, *item)
	return item, nil
}

func (s *service) Decrease(ctx context.Context, input AdjustInput) (*models.InventoryItem, error) {
	if err := validateAdjust(input); err != nil {
		return nil, err
	}

	item, err := s.GetByRef(ctx, input.Ref)
	if err != nil {
		return nil, err
	}

	if s.strict {
		return s.decreaseStrict(ctx, item, input)
	}

	if input.Amount > item.Quantity {
		return nil, insufficientErr(item, input.Amount)
	}

	prev := item.Status
	item.Quantity -= input.Amount
	s.stamp(item, input.Action, input.Actor)
	item.Status = DeriveStatus(item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Discontinued)
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inventory item")
	}
	s.maybeAlert(ctx, prev, *item)
	return item, nil
}

// decreaseStrict serializes the subtraction at the database so two
// concurrent decreases cannot both pass the availability check.
func (s *service) decreaseStrict(ctx context.Context, item *models.InventoryItem, input AdjustInput) (*models.InventoryItem, error) {
	ok, err := s.repo.DecrementGuarded(ctx, item.ID, input.Amount)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "guarded decrement")
	}
	if !ok {
		return nil, insufficientErr(item, input.Amount)
	}

	fresh, err := s.repo.FindByID(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory item")
	}
	prev := fresh.Status
	s.stamp(fresh, input.Action, input.Actor)
	fresh.Status = DeriveStatus(fresh.Quantity, fresh.MinimumStock, fresh.InMaintenanceQuantity, fresh.Discontinued)
	if err := s.repo.Save(ctx, fresh); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inventory item")
	}
	s.maybeAlert(ctx, prev, *fresh)
	return fresh, nil
}

// Increase has no upper bound: the synchronizer trusts its caller to clip
// returns, matching the check-in route's responsibility split.
func (s *service) Increase(ctx context.Context, input AdjustInput) (*models.InventoryItem, error) {
	if err := validateAdjust(input); err != nil {
		return nil, err
	}

	item, err := s.GetByRef(ctx, input.Ref)
	if err != nil {
		return nil, err
	}

	prev := item.Status
	item.Quantity += input.Amount
	s.stamp(item, input.Action, input.Actor)
	item.Status = DeriveStatus(item.Quantity, item.MinimumStock, item.InMaintenanceQuantity, item.Discontinued)
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save inventory item")
	}
	s.maybeAlert(ctx, prev, *item)
	return item, nil
}

func (s *service) SetNextMaintenanceDate(ctx context.Context, itemID uuid.UUID, date *time.Time) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if err := s.repo.SetNextMaintenanceDate(ctx, itemID, date); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set next maintenance date")
	}
	return nil
}

func (s *service) stamp(item *models.InventoryItem, action enums.ItemAction, actor types.Actor) {
	now := s.now().UTC()
	name := actor.Display()
	item.LastAction = action
	item.LastActionDate = &now
	item.LastActionBy = &name
}

func (s *service) maybeAlert(ctx context.Context, prev enums.ItemStatus, item models.InventoryItem) {
	if s.alerts == nil || !StockAlertWorthy(prev, item.Status) {
		return
	}
	if s.deferAlerts {
		s.pending = append(s.pending, stockTransition{prev: prev, item: item})
		return
	}
	s.dispatchAlert(ctx, item)
}

// FlushAlerts sends the alerts queued on a tx-bound clone. Callers invoke it
// only after their transaction commits; a rollback drops the queue with the
// clone.
func (s *service) FlushAlerts(ctx context.Context) {
	for _, t := range s.pending {
		s.dispatchAlert(ctx, t.item)
	}
	s.pending = nil
}

func (s *service) dispatchAlert(ctx context.Context, item models.InventoryItem) {
	if err := s.alerts.NotifyLowStock(ctx, item); err != nil && s.logg != nil {
		s.logg.Error(ctx, "low stock alert failed", err)
	}
}

func validateAdjust(input AdjustInput) error {
	if input.Ref == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item reference required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid item action")
	}
	return nil
}

func insufficientErr(item *models.InventoryItem, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientQuantity, "not enough stock available").WithDetails(map[string]any{
		"item_id":   item.ID,
		"sku":       item.SKU,
		"requested": requested,
		"available": item.Quantity,
	})
}
