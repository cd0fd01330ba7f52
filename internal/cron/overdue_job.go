package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rmaldonado/equiptrack-backend/internal/schedules"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"go.uber.org/multierr"
)

type overdueSender interface {
	SendOverdueAlert(ctx context.Context, schedule models.ScheduledMaintenance, daysOverdue int) error
}

// OverdueJob escalates open schedules past their date: an alert on the first
// day overdue, then on every 7th day after. There is no persisted sent flag,
// so a qualifying day re-alerts on every run that day.
type OverdueJob struct {
	schedules schedules.Repository
	sender    overdueSender
	logg      *logger.Logger
	location  *time.Location
	now       func() time.Time
}

// NewOverdueJob builds the overdue escalation scan.
func NewOverdueJob(repo schedules.Repository, sender overdueSender, logg *logger.Logger, location *time.Location) (*OverdueJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("schedule repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("overdue sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if location == nil {
		location = time.UTC
	}
	return &OverdueJob{
		schedules: repo,
		sender:    sender,
		logg:      logg,
		location:  location,
		now:       time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *OverdueJob) Name() string {
	return "overdue-maintenance"
}

// Run scans every open schedule at or past its date. Delivery failures are
// logged and collected without stopping the scan.
func (j *OverdueJob) Run(ctx context.Context) error {
	today := startOfDay(j.now().In(j.location))

	overdue, err := j.schedules.ListOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("list overdue schedules: %w", err)
	}

	var errs error
	alerted := 0
	for _, schedule := range overdue {
		daysOverdue := daysBetween(startOfDay(schedule.ScheduledDate.In(j.location)), today)
		if !overdueAlertDue(daysOverdue) {
			continue
		}

		if err := j.sender.SendOverdueAlert(ctx, schedule, daysOverdue); err != nil {
			scheduleCtx := j.logg.WithFields(ctx, map[string]any{
				"schedule_id":  schedule.ID,
				"days_overdue": daysOverdue,
			})
			j.logg.Error(scheduleCtx, "overdue alert delivery failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		alerted++
	}

	j.logg.Info(j.logg.WithField(ctx, "alerts_sent", alerted), "overdue scan complete")
	return errs
}

// overdueAlertDue fires on the first day overdue and on each weekly multiple
// after that. Day zero is the due date itself and stays quiet.
func overdueAlertDue(daysOverdue int) bool {
	if daysOverdue < 1 {
		return false
	}
	return daysOverdue == 1 || daysOverdue%7 == 0
}
