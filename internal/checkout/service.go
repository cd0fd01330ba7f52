package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type checkoutNotifier interface {
	NotifyCheckoutCreated(ctx context.Context, masterBarcode string, records []models.CheckoutRecord) error
}

// CheckinMode selects how a bulk check-in treats the group's lines.
type CheckinMode string

const (
	CheckinModeFull    CheckinMode = "full"
	CheckinModePartial CheckinMode = "partial"
)

// IsValid reports whether the value is a known CheckinMode.
func (m CheckinMode) IsValid() bool {
	return m == CheckinModeFull || m == CheckinModePartial
}

// Service runs the checkout and return lifecycle. All quantity movement goes
// through the inventory synchronizer inside the same transaction as the
// record writes.
type Service interface {
	CheckOut(ctx context.Context, input CheckoutInput) (*GroupView, error)
	CheckOutBulk(ctx context.Context, input BulkCheckoutInput) (*GroupView, error)
	CheckIn(ctx context.Context, input CheckinInput) (*models.CheckoutRecord, error)
	CheckInBulk(ctx context.Context, input BulkCheckinInput) (*GroupView, error)
	ListGroups(ctx context.Context, params ListGroupsParams) ([]GroupView, error)
	GetGroup(ctx context.Context, masterBarcode string) (*GroupView, error)
}

// CheckoutLine is one requested item and amount.
type CheckoutLine struct {
	Ref      string
	Quantity int
}

// CheckoutInput drives a single-item checkout.
type CheckoutInput struct {
	Ref                string
	Quantity           int
	ExpectedReturnDate *time.Time
	Notes              *string
	Actor              types.Actor
}

// BulkCheckoutInput drives a multi-item checkout sharing one master barcode.
type BulkCheckoutInput struct {
	Lines              []CheckoutLine
	ExpectedReturnDate *time.Time
	Notes              *string
	Actor              types.Actor
}

// CheckinInput returns units against the caller's most recent open checkout
// of the item.
type CheckinInput struct {
	Ref      string
	Quantity int
	Actor    types.Actor
}

// BulkCheckinInput returns units across a whole master-barcode group.
type BulkCheckinInput struct {
	MasterBarcode string
	Mode          CheckinMode
	Lines         []CheckoutLine
	Actor         types.Actor
}

// ListGroupsParams pages the grouped checkout listing.
type ListGroupsParams struct {
	Limit  int
	Offset int
}

// ServiceParams configure the checkout lifecycle manager.
type ServiceParams struct {
	Repo      Repository
	Inventory inventory.Service
	Tx        txRunner
	Notifier  checkoutNotifier
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	inventory inventory.Service
	tx        txRunner
	notifier  checkoutNotifier
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the checkout lifecycle manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{
		repo:      params.Repo,
		inventory: params.Inventory,
		tx:        params.Tx,
		notifier:  params.Notifier,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

func (s *service) CheckOut(ctx context.Context, input CheckoutInput) (*GroupView, error) {
	return s.checkOutLines(ctx, BulkCheckoutInput{
		Lines:              []CheckoutLine{{Ref: input.Ref, Quantity: input.Quantity}},
		ExpectedReturnDate: input.ExpectedReturnDate,
		Notes:              input.Notes,
		Actor:              input.Actor,
	})
}

func (s *service) CheckOutBulk(ctx context.Context, input BulkCheckoutInput) (*GroupView, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	return s.checkOutLines(ctx, input)
}

// checkOutLines validates every requested line against current stock before
// any quantity moves, then decrements and writes the records in one
// transaction. A rejection on any line rolls the whole group back.
func (s *service) checkOutLines(ctx context.Context, input BulkCheckoutInput) (*GroupView, error) {
	for _, line := range input.Lines {
		if line.Ref == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reference required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
	}

	masterBarcode := newMasterBarcode()
	now := s.now().UTC()
	var created []models.CheckoutRecord

	var inv inventory.Service
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv = s.inventory.WithTx(tx)
		repo := s.repo.WithTx(tx)

		items := make([]*models.InventoryItem, len(input.Lines))
		requested := make(map[uuid.UUID]int, len(input.Lines))
		for i, line := range input.Lines {
			item, err := inv.GetByRef(ctx, line.Ref)
			if err != nil {
				return err
			}
			if item.Discontinued {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "item is discontinued").WithDetails(map[string]any{
					"item_id": item.ID,
					"sku":     item.SKU,
				})
			}
			requested[item.ID] += line.Quantity
			if requested[item.ID] > item.Quantity {
				return pkgerrors.New(pkgerrors.CodeInsufficientQuantity, "not enough stock available").WithDetails(map[string]any{
					"item_id":   item.ID,
					"sku":       item.SKU,
					"requested": requested[item.ID],
					"available": item.Quantity,
				})
			}
			items[i] = item
		}

		records := make([]models.CheckoutRecord, 0, len(input.Lines))
		for i, line := range input.Lines {
			if _, err := inv.Decrease(ctx, inventory.AdjustInput{
				Ref:    items[i].ID.String(),
				Amount: line.Quantity,
				Actor:  input.Actor,
				Action: enums.ItemActionCheckedOut,
			}); err != nil {
				return err
			}
			records = append(records, models.CheckoutRecord{
				ID:                 uuid.New(),
				MasterBarcode:      masterBarcode,
				ItemID:             items[i].ID,
				UserID:             input.Actor.ID,
				UserName:           input.Actor.Name,
				Quantity:           line.Quantity,
				Status:             enums.CheckoutStatusCheckedOut,
				CheckoutDate:       now,
				ExpectedReturnDate: input.ExpectedReturnDate,
				Notes:              input.Notes,
			})
		}
		if err := repo.CreateBatch(ctx, records); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout records")
		}
		created = records
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv.FlushAlerts(ctx)
	s.notifyCreated(ctx, masterBarcode, created)
	view := BuildGroupView(created, s.now().UTC())
	return &view, nil
}

func (s *service) CheckIn(ctx context.Context, input CheckinInput) (*models.CheckoutRecord, error) {
	if input.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item reference required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *models.CheckoutRecord
	var inv inventory.Service
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv = s.inventory.WithTx(tx)
		repo := s.repo.WithTx(tx)

		item, err := inv.GetByRef(ctx, input.Ref)
		if err != nil {
			return err
		}
		record, err := repo.FindLatestOutstanding(ctx, item.ID, input.Actor.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "no outstanding checkout for item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find outstanding checkout")
		}
		outstanding := record.Outstanding()
		if input.Quantity > outstanding {
			return pkgerrors.New(pkgerrors.CodeValidation, "return exceeds outstanding quantity").WithDetails(map[string]any{
				"requested":   input.Quantity,
				"outstanding": outstanding,
			})
		}

		if err := s.applyReturn(ctx, inv, repo, record, input.Quantity, input.Actor); err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.FlushAlerts(ctx)
	return result, nil
}

func (s *service) CheckInBulk(ctx context.Context, input BulkCheckinInput) (*GroupView, error) {
	if input.MasterBarcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "master barcode required")
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mode must be full or partial")
	}
	if input.Mode == CheckinModePartial && len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "partial mode requires lines")
	}

	var updated []models.CheckoutRecord
	var inv inventory.Service
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		inv = s.inventory.WithTx(tx)
		repo := s.repo.WithTx(tx)

		records, err := repo.FindByMasterBarcode(ctx, input.MasterBarcode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "checkout group not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout group")
		}

		switch input.Mode {
		case CheckinModeFull:
			for i := range records {
				outstanding := records[i].Outstanding()
				if outstanding == 0 {
					continue
				}
				if err := s.applyReturn(ctx, inv, repo, &records[i], outstanding, input.Actor); err != nil {
					return err
				}
			}
		case CheckinModePartial:
			// duplicate refs at checkout leave several records per item
			byItem := make(map[uuid.UUID][]*models.CheckoutRecord, len(records))
			for i := range records {
				byItem[records[i].ItemID] = append(byItem[records[i].ItemID], &records[i])
			}
			for _, line := range input.Lines {
				item, err := inv.GetByRef(ctx, line.Ref)
				if err != nil {
					// unknown lines are skipped, not failed
					if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeNotFound {
						continue
					}
					return err
				}
				remaining := line.Quantity
				for _, record := range byItem[item.ID] {
					if remaining <= 0 {
						break
					}
					amount := remaining
					if outstanding := record.Outstanding(); amount > outstanding {
						amount = outstanding
					}
					if amount <= 0 {
						continue
					}
					if err := s.applyReturn(ctx, inv, repo, record, amount, input.Actor); err != nil {
						return err
					}
					remaining -= amount
				}
			}
		}
		updated = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	inv.FlushAlerts(ctx)

	view := BuildGroupView(updated, s.now().UTC())
	return &view, nil
}

// applyReturn moves quantity back into stock and advances the record's
// return state. The record transitions to returned only when every unit is
// back.
func (s *service) applyReturn(ctx context.Context, inv inventory.Service, repo Repository, record *models.CheckoutRecord, amount int, actor types.Actor) error {
	if _, err := inv.Increase(ctx, inventory.AdjustInput{
		Ref:    record.ItemID.String(),
		Amount: amount,
		Actor:  actor,
		Action: enums.ItemActionCheckedIn,
	}); err != nil {
		return err
	}

	record.ReturnedQuantity += amount
	if record.ReturnedQuantity >= record.Quantity {
		now := s.now().UTC()
		record.Status = enums.CheckoutStatusReturned
		record.ActualReturnDate = &now
	} else {
		record.Status = enums.CheckoutStatusPartialReturn
	}
	if err := repo.Save(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout record")
	}
	return nil
}

func (s *service) ListGroups(ctx context.Context, params ListGroupsParams) ([]GroupView, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	barcodes, err := s.repo.ListMasterBarcodes(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list checkout groups")
	}

	now := s.now().UTC()
	views := make([]GroupView, 0, len(barcodes))
	for _, barcode := range barcodes {
		records, err := s.repo.FindByMasterBarcode(ctx, barcode)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout group")
		}
		views = append(views, BuildGroupView(records, now))
	}
	return views, nil
}

func (s *service) GetGroup(ctx context.Context, masterBarcode string) (*GroupView, error) {
	if masterBarcode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "master barcode required")
	}
	records, err := s.repo.FindByMasterBarcode(ctx, masterBarcode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout group")
	}
	view := BuildGroupView(records, s.now().UTC())
	return &view, nil
}

func (s *service) notifyCreated(ctx context.Context, masterBarcode string, records []models.CheckoutRecord) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyCheckoutCreated(ctx, masterBarcode, records); err != nil && s.logg != nil {
		s.logg.Error(ctx, "checkout created notification failed", err)
	}
}

func newMasterBarcode() string {
	return fmt.Sprintf("CHK-%s", uuid.NewString()[:8])
}
