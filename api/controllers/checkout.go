package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rmaldonado/equiptrack-backend/api/responses"
	"github.com/rmaldonado/equiptrack-backend/api/validators"
	checkoutsvc "github.com/rmaldonado/equiptrack-backend/internal/checkout"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
)

// CheckOutItem takes units of a single item out under a fresh master barcode.
func CheckOutItem(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.CheckOut(r.Context(), checkoutsvc.CheckoutInput{
			Ref:                strings.TrimSpace(payload.Ref),
			Quantity:           payload.Quantity,
			ExpectedReturnDate: payload.ExpectedReturnDate,
			Notes:              payload.Notes,
			Actor:              actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

// CheckOutBulk takes several items out atomically under one master barcode.
func CheckOutBulk(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		group, err := svc.CheckOutBulk(r.Context(), checkoutsvc.BulkCheckoutInput{
			Lines:              payload.toLines(),
			ExpectedReturnDate: payload.ExpectedReturnDate,
			Notes:              payload.Notes,
			Actor:              actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, group)
	}
}

// ListCheckoutGroups pages the grouped checkout feed, most recent first.
func ListCheckoutGroups(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		groups, err := svc.ListGroups(r.Context(), checkoutsvc.ListGroupsParams{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, groups)
	}
}

// GetCheckoutGroup returns the rolled-up view for one master barcode.
func GetCheckoutGroup(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		barcode := strings.TrimSpace(chi.URLParam(r, "masterBarcode"))
		if barcode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "master barcode required"))
			return
		}

		group, err := svc.GetGroup(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, group)
	}
}

// CheckInItem returns units against the caller's most recent open checkout.
func CheckInItem(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkinRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CheckIn(r.Context(), checkoutsvc.CheckinInput{
			Ref:      strings.TrimSpace(payload.Ref),
			Quantity: payload.Quantity,
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, record)
	}
}

// CheckInBulk returns units across a whole master-barcode group.
func CheckInBulk(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkCheckinRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode := checkoutsvc.CheckinMode(strings.ToLower(strings.TrimSpace(payload.Mode)))
		if !mode.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "checkin mode must be full or partial"))
			return
		}

		group, err := svc.CheckInBulk(r.Context(), checkoutsvc.BulkCheckinInput{
			MasterBarcode: strings.TrimSpace(payload.MasterBarcode),
			Mode:          mode,
			Lines:         payload.toLines(),
			Actor:         actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, group)
	}
}

type checkoutRequest struct {
	Ref                string     `json:"ref" validate:"required"`
	Quantity           int        `json:"quantity" validate:"required,min=1"`
	ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
}

type checkoutLineRequest struct {
	Ref      string `json:"ref" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type bulkCheckoutRequest struct {
	Lines              []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	ExpectedReturnDate *time.Time            `json:"expected_return_date,omitempty"`
	Notes              *string               `json:"notes,omitempty"`
}

type checkinRequest struct {
	Ref      string `json:"ref" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type bulkCheckinRequest struct {
	MasterBarcode string                `json:"master_barcode" validate:"required"`
	Mode          string                `json:"mode" validate:"required"`
	Lines         []checkoutLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

func (r bulkCheckoutRequest) toLines() []checkoutsvc.CheckoutLine {
	return toServiceLines(r.Lines)
}

func (r bulkCheckinRequest) toLines() []checkoutsvc.CheckoutLine {
	return toServiceLines(r.Lines)
}

func toServiceLines(lines []checkoutLineRequest) []checkoutsvc.CheckoutLine {
	out := make([]checkoutsvc.CheckoutLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, checkoutsvc.CheckoutLine{
			Ref:      strings.TrimSpace(line.Ref),
			Quantity: line.Quantity,
		})
	}
	return out
}
