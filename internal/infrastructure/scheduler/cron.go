package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shareminder/internal/pkg/logger"
)

// Scheduler is the notification scheduler adapter. It registers one-shot
// cron jobs bound to reminder IDs and hands back opaque handles the engine
// persists in the binding map. When a job fires it invokes the fire handler
// set by the engine; the job removes its own entry afterwards.
type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
	mu   sync.Mutex
	fire func(reminderID string)
}

var (
	schedulerInstance *Scheduler
	once              sync.Once
)

// NewScheduler creates a new singleton instance of the cron scheduler.
func NewScheduler(log logger.Logger) *Scheduler {
	once.Do(func() {
		c := cron.New(cron.WithSeconds())
		c.Start()
		log.Info("Cron scheduler started.")
		schedulerInstance = &Scheduler{
			cron: c,
			log:  log,
		}
	})
	return schedulerInstance
}

// SetFireHandler sets the function invoked when a scheduled alert fires.
// Called once during wiring; the engine cannot be passed to the constructor
// because it needs the scheduler first.
func (s *Scheduler) SetFireHandler(fire func(reminderID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fire = fire
}

// formatCronSpec generates a one-shot cron spec for a specific time.
func formatCronSpec(t time.Time) string {
	// Seconds Minutes Hours DayOfMonth Month DayOfWeek
	return fmt.Sprintf("%d %d %d %d %d *", t.Second(), t.Minute(), t.Hour(), t.Day(), t.Month())
}

// Schedule registers a one-shot alert for the reminder at firesAt and
// returns an opaque handle. Fire times at or before now are clamped just
// ahead so the entry still fires once instead of wrapping to next year
// (cron specs carry no year field).
func (s *Scheduler) Schedule(ctx context.Context, reminderID string, firesAt time.Time) (string, error) {
	if now := time.Now(); !firesAt.After(now) {
		firesAt = now.Add(2 * time.Second)
	}
	spec := formatCronSpec(firesAt)

	var entryID cron.EntryID
	jobFunc := func() {
		s.mu.Lock()
		fire := s.fire
		s.mu.Unlock()
		if fire != nil {
			fire(reminderID)
		} else {
			s.log.Warn(fmt.Sprintf("Alert fired for reminder %s but no fire handler is set", reminderID))
		}
		// One-off job: drop the entry after it has run.
		s.cron.Remove(entryID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, err := s.cron.AddFunc(spec, jobFunc)
	if err != nil {
		return "", fmt.Errorf("failed to add cron job for reminder %s: %w", reminderID, err)
	}
	s.log.Info(fmt.Sprintf("Scheduled alert for reminder %s at %v (entry %d)", reminderID, firesAt, entryID))
	return strconv.Itoa(int(entryID)), nil
}

// Cancel removes the entry behind the given handle. Safe to call on an
// already-fired or already-canceled handle; both are no-ops.
func (s *Scheduler) Cancel(ctx context.Context, handle string) error {
	entryID, err := strconv.Atoi(handle)
	if err != nil {
		s.log.Warn(fmt.Sprintf("Ignoring cancel for unparseable handle %q", handle))
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Remove(cron.EntryID(entryID))
	s.log.Debug(fmt.Sprintf("Canceled scheduler entry %d", entryID))
	return nil
}

// AddRecurring registers a repeating job, e.g. the due-sweep trigger.
// spec follows the cron format including the @every shorthand.
func (s *Scheduler) AddRecurring(spec string, cmd func()) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.cron.AddFunc(spec, cmd)
	if err != nil {
		return 0, fmt.Errorf("failed to add recurring job: %w", err)
	}
	s.log.Info(fmt.Sprintf("Added recurring job with ID %d, spec: %s", id, spec))
	return id, nil
}

// Stop stops the cron scheduler and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info("Cron scheduler stopped.")
	}
}

// Entries returns the scheduled entries. Useful for debugging.
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron.Entries()
}
