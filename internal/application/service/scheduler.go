package service

import (
	"context"
	"time"
)

// NotificationScheduler is the contract the engine consumes from the
// platform alert scheduler. Handles are opaque; the engine persists them
// in the binding map and never inspects them.
type NotificationScheduler interface {
	// Schedule registers a one-shot alert for the reminder at firesAt and
	// returns the handle identifying it.
	Schedule(ctx context.Context, reminderID string, firesAt time.Time) (string, error)
	// Cancel removes the alert behind the handle. Must be safe to call on
	// an already-fired or already-canceled handle (no-op).
	Cancel(ctx context.Context, handle string) error
	// SetFireHandler sets the callback invoked when an alert fires.
	SetFireHandler(fire func(reminderID string))
	// Stop shuts the scheduler down, waiting for running jobs.
	Stop()
}
