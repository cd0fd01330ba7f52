package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rmaldonado/equiptrack-backend/api/responses"
	"github.com/rmaldonado/equiptrack-backend/api/validators"
	inventorysvc "github.com/rmaldonado/equiptrack-backend/internal/inventory"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// IntakeItem registers a new item and its opening stock.
func IntakeItem(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload intakeItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Actor = actor

		item, err := svc.Intake(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// ListItems pages through the item ledger newest first.
func ListItems(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), inventorysvc.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GetItem resolves an item by id, SKU, or barcode.
func GetItem(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		ref := strings.TrimSpace(chi.URLParam(r, "ref"))
		if ref == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item reference required"))
			return
		}

		item, err := svc.GetByRef(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

// UpdateItem applies administrative edits to an item.
func UpdateItem(svc inventorysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AdminUpdate(r.Context(), id, inventorysvc.AdminUpdateInput{
			Name:         payload.Name,
			MinimumStock: payload.MinimumStock,
			Barcode:      payload.Barcode,
			Discontinued: payload.Discontinued,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, item)
	}
}

type intakeItemRequest struct {
	SKU          string  `json:"sku" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Barcode      *string `json:"barcode,omitempty"`
	Quantity     int     `json:"quantity" validate:"min=0"`
	MinimumStock int     `json:"minimum_stock" validate:"min=0"`
	UnitCost     *string `json:"unit_cost,omitempty"`
}

type updateItemRequest struct {
	Name         *string `json:"name,omitempty"`
	MinimumStock *int    `json:"minimum_stock,omitempty" validate:"omitempty,min=0"`
	Barcode      *string `json:"barcode,omitempty"`
	Discontinued *bool   `json:"discontinued,omitempty"`
}

func (r intakeItemRequest) toInput() (inventorysvc.IntakeInput, error) {
	input := inventorysvc.IntakeInput{
		SKU:          strings.TrimSpace(r.SKU),
		Name:         strings.TrimSpace(r.Name),
		Barcode:      r.Barcode,
		Quantity:     r.Quantity,
		MinimumStock: r.MinimumStock,
	}

	if r.UnitCost != nil {
		cost, err := decimal.NewFromString(strings.TrimSpace(*r.UnitCost))
		if err != nil {
			return inventorysvc.IntakeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit cost")
		}
		if cost.IsNegative() {
			return inventorysvc.IntakeInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unit cost cannot be negative")
		}
		input.UnitCost = &cost
	}

	return input, nil
}
