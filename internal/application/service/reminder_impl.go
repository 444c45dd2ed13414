package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shareminder/internal/application/dto"
	"shareminder/internal/domain/entity"
	"shareminder/internal/domain/repository"
	appErrors "shareminder/internal/pkg/errors"
	"shareminder/internal/pkg/id"
	"shareminder/internal/pkg/logger"
	"shareminder/internal/pkg/validate"
)

type reminderService struct {
	store     repository.Store
	scheduler NotificationScheduler
	sharers   ShareRegistry
	log       logger.Logger
	now       func() time.Time

	// mu serializes the read-modify-write cycle of every mutating
	// operation over the two persisted collections. List reads the last
	// persisted snapshot without taking it, so long-running adapter calls
	// inside a mutation never block reads.
	mu sync.Mutex
}

// NewReminderService creates a new instance of the lifecycle engine and
// wires itself as the scheduler's fire handler: an alert firing for any
// reminder triggers a sweep, so a stray alert for a deleted or completed
// reminder is a no-op.
func NewReminderService(
	store repository.Store,
	scheduler NotificationScheduler,
	sharers ShareRegistry,
	log logger.Logger,
) ReminderService {
	rs := &reminderService{
		store:     store,
		scheduler: scheduler,
		sharers:   sharers,
		log:       log,
		now:       time.Now,
	}

	scheduler.SetFireHandler(func(reminderID string) {
		log.Info(fmt.Sprintf("Alert fired for reminder %s, running sweep", reminderID))
		if _, err := rs.DueSweep(context.Background(), rs.now()); err != nil {
			log.Error(fmt.Sprintf("Sweep triggered by reminder %s failed", reminderID), err)
		}
	})

	return rs
}

// Create validates the input, registers a notification binding and persists
// the new reminder together with its binding entry.
func (s *reminderService) Create(ctx context.Context, req dto.CreateReminderRequest) (*dto.ReminderResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrValidation, err)
	}
	if req.Targets.None() {
		// Accepted, matching observed behavior: the sweep will complete it
		// without sharing anywhere.
		s.log.Warn("Creating reminder with no share targets")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	reminder := &entity.Reminder{
		ID:             id.New(),
		Title:          req.Title,
		Description:    req.Description,
		ScheduledAt:    req.ScheduledAt,
		PhotoReference: req.PhotoReference,
		Targets:        req.Targets,
		CreatedAt:      s.now(),
		Completed:      false,
	}

	handle, err := s.scheduler.Schedule(ctx, reminder.ID, reminder.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrScheduler, err)
	}

	snap.Reminders = append(snap.Reminders, reminder)
	snap.Bindings[reminder.ID] = handle

	if err := s.store.Save(ctx, snap); err != nil {
		// Compensate: never leak a scheduled alert for a reminder that was
		// not persisted.
		if cancelErr := s.scheduler.Cancel(ctx, handle); cancelErr != nil {
			s.log.Error(fmt.Sprintf("Failed to cancel orphaned binding %s for reminder %s", handle, reminder.ID), cancelErr)
		}
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	s.log.Info(fmt.Sprintf("Created reminder %s scheduled at %v (binding %s)", reminder.ID, reminder.ScheduledAt, handle))
	resp := dto.ToReminderResponse(reminder)
	return &resp, nil
}

// List returns all reminders ordered by scheduled time, descending.
func (s *reminderService) List(ctx context.Context) ([]dto.ReminderResponse, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}
	sort.SliceStable(snap.Reminders, func(i, j int) bool {
		return snap.Reminders[i].ScheduledAt.After(snap.Reminders[j].ScheduledAt)
	})
	return dto.ToReminderResponseList(snap.Reminders), nil
}

// Update merges the patch into the stored reminder. When the scheduled time
// changed and the reminder is not completed, the old binding is canceled
// (best effort) and replaced by a fresh one; the old handle is never reused.
func (s *reminderService) Update(ctx context.Context, reminderID string, patch dto.UpdateReminderRequest) (*dto.ReminderResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	reminder := snap.Find(reminderID)
	if reminder == nil {
		return nil, fmt.Errorf("%w: %s", appErrors.ErrNotFound, reminderID)
	}

	scheduleChanged := patch.Apply(reminder)

	var newHandle string
	if scheduleChanged && !reminder.Completed {
		if oldHandle, ok := snap.Bindings[reminderID]; ok {
			// The old alert may have fired or been removed out-of-band;
			// cancellation failure is not fatal.
			if err := s.scheduler.Cancel(ctx, oldHandle); err != nil {
				s.log.Warn(fmt.Sprintf("Failed to cancel old binding %s for reminder %s: %v", oldHandle, reminderID, err))
			}
		}
		newHandle, err = s.scheduler.Schedule(ctx, reminderID, reminder.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", appErrors.ErrScheduler, err)
		}
		snap.Bindings[reminderID] = newHandle
	}

	if err := s.store.Save(ctx, snap); err != nil {
		if newHandle != "" {
			if cancelErr := s.scheduler.Cancel(ctx, newHandle); cancelErr != nil {
				s.log.Error(fmt.Sprintf("Failed to cancel orphaned binding %s for reminder %s", newHandle, reminderID), cancelErr)
			}
		}
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	s.log.Info(fmt.Sprintf("Updated reminder %s (rescheduled: %t)", reminderID, scheduleChanged))
	resp := dto.ToReminderResponse(reminder)
	return &resp, nil
}

// Delete removes the reminder and its binding entry, canceling the
// scheduled alert best-effort.
func (s *reminderService) Delete(ctx context.Context, reminderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	if snap.Find(reminderID) == nil {
		return fmt.Errorf("%w: %s", appErrors.ErrNotFound, reminderID)
	}

	if handle, ok := snap.Bindings[reminderID]; ok {
		// Log-and-continue: a stray alert for a deleted reminder is a
		// no-op in the sweep.
		if err := s.scheduler.Cancel(ctx, handle); err != nil {
			s.log.Warn(fmt.Sprintf("Failed to cancel binding %s for deleted reminder %s: %v", handle, reminderID, err))
		}
	}

	snap.Remove(reminderID)

	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	s.log.Info(fmt.Sprintf("Deleted reminder %s", reminderID))
	return nil
}

// ShareNow attempts a hand-off to every flagged target. Every target is
// attempted even if an earlier one fails. Marking the reminder completed is
// the sweep's responsibility, not this method's.
func (s *reminderService) ShareNow(ctx context.Context, reminder *entity.Reminder) dto.ShareOutcome {
	outcomes := make(dto.ShareOutcome)
	for _, platform := range reminder.Targets.Enabled() {
		client, ok := s.sharers[platform]
		if !ok {
			s.log.Warn(fmt.Sprintf("No share client registered for platform %s (reminder %s)", platform, reminder.ID))
			outcomes[platform] = false
			continue
		}
		if err := client.Share(ctx, reminder.PhotoReference, reminder.Title, reminder.Description); err != nil {
			s.log.Error(fmt.Sprintf("Share to %s failed for reminder %s", platform, reminder.ID), err)
			outcomes[platform] = false
			continue
		}
		outcomes[platform] = true
	}
	return outcomes
}

// DueSweep processes every uncompleted reminder whose scheduled time has
// elapsed. Each reminder is its own transaction boundary: the snapshot is
// saved after every completion so a failure for one reminder never blocks
// the rest. A partially failed share still marks completion; the per-target
// outcomes are reported instead.
func (s *reminderService) DueSweep(ctx context.Context, now time.Time) (*dto.SweepReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	report := &dto.SweepReport{}
	for _, reminder := range snap.Reminders {
		if !reminder.Due(now) {
			continue
		}
		report.Processed++

		outcomes := s.ShareNow(ctx, reminder)
		reminder.Completed = true

		if handle, ok := snap.Bindings[reminder.ID]; ok {
			if err := s.scheduler.Cancel(ctx, handle); err != nil {
				s.log.Warn(fmt.Sprintf("Failed to cancel binding %s for completed reminder %s: %v", handle, reminder.ID, err))
			}
			delete(snap.Bindings, reminder.ID)
		}

		result := dto.SweepResult{ReminderID: reminder.ID, Outcomes: outcomes}
		if err := s.store.Save(ctx, snap); err != nil {
			// The share already happened; keep the completion in memory so
			// a later save in this pass persists it, and report the
			// failure instead of aborting the sweep.
			s.log.Error(fmt.Sprintf("Failed to persist completion of reminder %s", reminder.ID), err)
			result.Error = err.Error()
			report.Failed = append(report.Failed, reminder.ID)
		} else {
			report.Completed++
		}
		report.Results = append(report.Results, result)
	}

	if report.Processed > 0 {
		s.log.Info(fmt.Sprintf("Sweep processed %d reminder(s), %d completed, %d failed to persist",
			report.Processed, report.Completed, len(report.Failed)))
	}
	return report, nil
}

// Reconcile rebuilds the binding map after a restart. Scheduler entries do
// not survive the process, so every persisted handle is stale: bindings for
// completed or missing reminders are dropped, future reminders get fresh
// bindings, and overdue ones are left unbound for the next sweep to pick up.
func (s *reminderService) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	now := s.now()
	stale := len(snap.Bindings)
	rebuilt := make(map[string]string)
	scheduled := 0
	for _, reminder := range snap.Reminders {
		if reminder.Completed || !reminder.ScheduledAt.After(now) {
			continue
		}
		handle, err := s.scheduler.Schedule(ctx, reminder.ID, reminder.ScheduledAt)
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to reschedule reminder %s during reconcile", reminder.ID), err)
			continue
		}
		rebuilt[reminder.ID] = handle
		scheduled++
	}
	snap.Bindings = rebuilt

	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrStore, err)
	}

	s.log.Info(fmt.Sprintf("Reconcile complete. Rescheduled: %d, stale bindings replaced: %d", scheduled, stale))
	return nil
}
