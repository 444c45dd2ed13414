package service

import (
	"context"
	"time"

	"shareminder/internal/application/dto"
	"shareminder/internal/domain/entity"
)

// ReminderService defines the interface for the reminder lifecycle engine.
type ReminderService interface {
	// Create validates the input, registers a notification binding and
	// persists the new reminder. Returns the created reminder.
	Create(ctx context.Context, req dto.CreateReminderRequest) (*dto.ReminderResponse, error)
	// List returns all reminders ordered by scheduled time, descending.
	// Pure read, no side effects.
	List(ctx context.Context) ([]dto.ReminderResponse, error)
	// Update merges the patch into the stored reminder, rescheduling its
	// binding when the scheduled time changed. Returns the updated reminder.
	Update(ctx context.Context, reminderID string, patch dto.UpdateReminderRequest) (*dto.ReminderResponse, error)
	// Delete removes the reminder and cancels its binding.
	Delete(ctx context.Context, reminderID string) error
	// ShareNow attempts a hand-off to every flagged target and returns the
	// per-target outcomes. It does not mark the reminder completed.
	ShareNow(ctx context.Context, reminder *entity.Reminder) dto.ShareOutcome
	// DueSweep processes every uncompleted reminder whose scheduled time
	// has elapsed: share, mark completed, drop the binding. Failures are
	// isolated per reminder and aggregated in the report.
	DueSweep(ctx context.Context, now time.Time) (*dto.SweepReport, error)
	// Reconcile rebuilds the binding map after a restart: reschedules
	// future reminders and drops bindings whose reminders are gone or
	// completed. Run once on startup, before the first sweep.
	Reconcile(ctx context.Context) error
}
