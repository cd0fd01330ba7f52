package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rmaldonado/equiptrack-backend/api/responses"
	"github.com/rmaldonado/equiptrack-backend/api/validators"
	schedulesvc "github.com/rmaldonado/equiptrack-backend/internal/schedules"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/rmaldonado/equiptrack-backend/pkg/errors"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
)

// reminderRunner triggers one reminder sweep outside the normal cadence.
type reminderRunner interface {
	RunNow(ctx context.Context) error
}

// CreateSchedule plans maintenance for an item.
func CreateSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createScheduleRequest
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

		schedule, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, schedule)
	}
}

// GetSchedule returns one schedule by id.
func GetSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, schedule)
	}
}

// ListSchedules pages schedules, optionally narrowed by item.
func ListSchedules(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		filter := schedulesvc.ListFilter{}

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
		filter.Limit = limit
		filter.Offset = offset

		if raw := strings.TrimSpace(r.URL.Query().Get("item_id")); raw != "" {
			id, err := parseQueryUUID(raw, "item_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filter.ItemID = &id
		}

		schedules, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, schedules)
	}
}

// UpcomingSchedules lists open schedules due within the window.
func UpcomingSchedules(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", 0, 0, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedules, err := svc.Upcoming(r.Context(), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, schedules)
	}
}

// OverdueSchedules lists open schedules past their planned date.
func OverdueSchedules(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		schedules, err := svc.Overdue(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, schedules)
	}
}

// ScheduleStats summarizes the maintenance calendar.
func ScheduleStats(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// UpdateSchedule edits an open schedule.
func UpdateSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateScheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Update(r.Context(), id, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, schedule)
	}
}

// DeleteSchedule removes an open schedule.
func DeleteSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "scheduleId")
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

// CompleteSchedule marks a schedule done and recomputes the item's next date.
func CompleteSchedule(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Complete(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, schedule)
	}
}

// ScheduleCreateTicket opens the linked maintenance ticket for a schedule.
func ScheduleCreateTicket(svc schedulesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedule service unavailable"))
			return
		}

		actor, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := parseUUIDParam(r, "scheduleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ticket, err := svc.CreateTicket(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ticket)
	}
}

// RunReminders kicks one reminder sweep immediately.
func RunReminders(runner reminderRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reminder runner unavailable"))
			return
		}

		if err := runner.RunNow(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reminder sweep failed"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}

type createScheduleRequest struct {
	Ref              string    `json:"ref" validate:"required"`
	Title            string    `json:"title" validate:"required"`
	Description      *string   `json:"description,omitempty"`
	ScheduledDate    time.Time `json:"scheduled_date" validate:"required"`
	InventoryAction  *string   `json:"inventory_action,omitempty"`
	QuantityAffected int       `json:"quantity_affected,omitempty" validate:"omitempty,min=0"`
}

type updateScheduleRequest struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	ScheduledDate    *time.Time `json:"scheduled_date,omitempty"`
	InventoryAction  *string    `json:"inventory_action,omitempty"`
	QuantityAffected *int       `json:"quantity_affected,omitempty" validate:"omitempty,min=0"`
}

func (r createScheduleRequest) toInput() (schedulesvc.CreateScheduleInput, error) {
	action := enums.InventoryActionNone
	if r.InventoryAction != nil {
		parsed, err := enums.ParseInventoryAction(strings.TrimSpace(*r.InventoryAction))
		if err != nil {
			return schedulesvc.CreateScheduleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory action")
		}
		action = parsed
	}

	return schedulesvc.CreateScheduleInput{
		Ref:              strings.TrimSpace(r.Ref),
		Title:            strings.TrimSpace(r.Title),
		Description:      r.Description,
		ScheduledDate:    r.ScheduledDate,
		InventoryAction:  action,
		QuantityAffected: r.QuantityAffected,
	}, nil
}

func (r updateScheduleRequest) toInput() (schedulesvc.UpdateScheduleInput, error) {
	input := schedulesvc.UpdateScheduleInput{
		Title:            r.Title,
		Description:      r.Description,
		ScheduledDate:    r.ScheduledDate,
		QuantityAffected: r.QuantityAffected,
	}

	if r.InventoryAction != nil {
		action, err := enums.ParseInventoryAction(strings.TrimSpace(*r.InventoryAction))
		if err != nil {
			return schedulesvc.UpdateScheduleInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory action")
		}
		input.InventoryAction = &action
	}

	return input, nil
}
