package controllers

import (
	"net/http"
	"strings"

	"github.com/rmaldonado/equiptrack-backend/api/responses"
	"github.com/rmaldonado/equiptrack-backend/api/validators"
	maintenancesvc "github.com/rmaldonado/equiptrack-backend/internal/maintenance"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
)

// CreateTicket opens a maintenance ticket, optionally taking an inventory hold.
func CreateTicket(svc maintenancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "maintenance service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createTicketRequest
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

		ticket, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ticket)
	}
}

// GetTicket returns one ticket by id.
func GetTicket(svc maintenancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "maintenance service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ticket)
	}
}

// ListTickets pages tickets, optionally narrowed by item or status.
func ListTickets(svc maintenancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "maintenance service unavailable"))
			return
		}

		filter, err := ticketFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tickets, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tickets)
	}
}

// UpdateTicket edits ticket fields; a move to a terminal status releases any
// outstanding inventory hold.
func UpdateTicket(svc maintenancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "maintenance service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateTicketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.Update(r.Context(), id, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ticket)
	}
}

// DeleteTicket removes a ticket, releasing any outstanding inventory hold first.
func DeleteTicket(svc maintenancesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "maintenance service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type createTicketRequest struct {
	Ref             string  `json:"ref" validate:"required"`
	Title           string  `json:"title" validate:"required"`
	Description     *string `json:"description,omitempty"`
	Priority        string  `json:"priority" validate:"required"`
	InventoryAction *string `json:"inventory_action,omitempty"`
	Quantity        int     `json:"quantity,omitempty" validate:"omitempty,min=0"`
}

type updateTicketRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (r createTicketRequest) toInput() (maintenancesvc.CreateTicketInput, error) {
	priority, err := enums.ParseTicketPriority(strings.TrimSpace(r.Priority))
	if err != nil {
		return maintenancesvc.CreateTicketInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
	}

	action := enums.InventoryActionNone
	if r.InventoryAction != nil {
		action, err = enums.ParseInventoryAction(strings.TrimSpace(*r.InventoryAction))
		if err != nil {
			return maintenancesvc.CreateTicketInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory action")
		}
	}

	return maintenancesvc.CreateTicketInput{
		Ref:             strings.TrimSpace(r.Ref),
		Title:           strings.TrimSpace(r.Title),
		Description:     r.Description,
		Priority:        priority,
		InventoryAction: action,
		Quantity:        r.Quantity,
	}, nil
}

func (r updateTicketRequest) toInput() (maintenancesvc.UpdateTicketInput, error) {
	input := maintenancesvc.UpdateTicketInput{
		Title:       r.Title,
		Description: r.Description,
	}

	if r.Priority != nil {
		priority, err := enums.ParseTicketPriority(strings.TrimSpace(*r.Priority))
		if err != nil {
			return maintenancesvc.UpdateTicketInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
		}
		input.Priority = &priority
	}

	if r.Status != nil {
		status, err := enums.ParseTicketStatus(strings.TrimSpace(*r.Status))
		if err != nil {
			return maintenancesvc.UpdateTicketInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		input.Status = &status
	}

	return input, nil
}

func ticketFilterFromQuery(r *http.Request) (maintenancesvc.TicketFilter, error) {
	filter := maintenancesvc.TicketFilter{}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
	if err != nil {
		return filter, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 100000)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset

	if raw := strings.TrimSpace(r.URL.Query().Get("item_id")); raw != "" {
		id, err := parseQueryUUID(raw, "item_id")
		if err != nil {
			return filter, err
		}
		filter.ItemID = &id
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseTicketStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}

	return filter, nil
}
