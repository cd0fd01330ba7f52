package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/rmaldonado/equiptrack-backend/internal/schedules"
	"github.com/rmaldonado/equiptrack-backend/pkg/db/models"
	"github.com/rmaldonado/equiptrack-backend/pkg/enums"
	"github.com/rmaldonado/equiptrack-backend/pkg/logger"
	"go.uber.org/multierr"
)

const reminderWindowDays = 14

type reminderSender interface {
	SendMaintenanceReminder(ctx context.Context, schedule models.ScheduledMaintenance, reminder enums.ReminderType, daysUntil int) error
}

// ReminderJob fires the 14/7/1-day maintenance reminders. Each threshold is
// guarded by a one-shot flag on the schedule, so re-running the scan on the
// same day sends nothing twice.
type ReminderJob struct {
	schedules schedules.Repository
	sender    reminderSender
	logg      *logger.Logger
	location  *time.Location
	now       func() time.Time
}

// NewReminderJob builds the daily reminder scan.
func NewReminderJob(repo schedules.Repository, sender reminderSender, logg *logger.Logger, location *time.Location) (*ReminderJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("schedule repository required")
	}
	if sender == nil {
		return nil, fmt.Errorf("reminder sender required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if location == nil {
		location = time.UTC
	}
	return &ReminderJob{
		schedules: repo,
		sender:    sender,
		logg:      logg,
		location:  location,
		now:       time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *ReminderJob) Name() string {
	return "maintenance-reminders"
}

// Run scans open schedules inside the reminder window. Send and save
// failures are logged and collected; they never stop the rest of the scan.
func (j *ReminderJob) Run(ctx context.Context) error {
	today := startOfDay(j.now().In(j.location))
	until := today.AddDate(0, 0, reminderWindowDays)

	pending, err := j.schedules.ListPendingReminders(ctx, today, until.Add(24*time.Hour-time.Nanosecond))
	if err != nil {
		return fmt.Errorf("list pending reminders: %w", err)
	}

	var errs error
	sent := 0
	for i := range pending {
		schedule := &pending[i]
		daysUntil := daysBetween(today, startOfDay(schedule.ScheduledDate.In(j.location)))

		flag := j.flagFor(schedule, daysUntil)
		if flag == nil {
			continue
		}
		reminder := reminderTypeFor(daysUntil)

		scheduleCtx := j.logg.WithFields(ctx, map[string]any{
			"schedule_id": schedule.ID,
			"days_until":  daysUntil,
		})
		if err := j.sender.SendMaintenanceReminder(ctx, *schedule, reminder, daysUntil); err != nil {
			j.logg.Error(scheduleCtx, "reminder delivery failed", err)
			errs = multierr.Append(errs, err)
			continue
		}

		*flag = true
		if err := j.schedules.Save(ctx, schedule); err != nil {
			j.logg.Error(scheduleCtx, "failed to persist reminder flag", err)
			errs = multierr.Append(errs, err)
			continue
		}
		sent++
	}

	j.logg.Info(j.logg.WithField(ctx, "reminders_sent", sent), "reminder scan complete")
	return errs
}

// flagFor returns the one-shot flag matching the threshold, or nil when the
// day is not a threshold or the flag already flipped.
func (j *ReminderJob) flagFor(schedule *models.ScheduledMaintenance, daysUntil int) *bool {
	switch daysUntil {
	case 14:
		if !schedule.Reminder14Sent {
			return &schedule.Reminder14Sent
		}
	case 7:
		if !schedule.Reminder7Sent {
			return &schedule.Reminder7Sent
		}
	case 1:
		if !schedule.Reminder1Sent {
			return &schedule.Reminder1Sent
		}
	}
	return nil
}

func reminderTypeFor(daysUntil int) enums.ReminderType {
	switch daysUntil {
	case 14:
		return enums.ReminderTypeTwoWeeks
	case 7:
		return enums.ReminderTypeOneWeek
	default:
		return enums.ReminderTypeOneDay
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b, both day-aligned.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Round(24*time.Hour) / (24 * time.Hour))
}
