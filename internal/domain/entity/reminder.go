package entity

import (
	"time"

	"shareminder/internal/domain/constant"
)

// Targets is the set of platform flags a reminder should be shared to.
// Serialized as part of the reminder collection blob.
type Targets struct {
	Line    bool `json:"line"`
	Discord bool `json:"discord"`
}

// Enabled returns the platforms whose flag is set, in a stable order.
func (t Targets) Enabled() []constant.Platform {
	var platforms []constant.Platform
	if t.Line {
		platforms = append(platforms, constant.PlatformLine)
	}
	if t.Discord {
		platforms = append(platforms, constant.PlatformDiscord)
	}
	return platforms
}

// None reports whether no platform flag is set.
func (t Targets) None() bool {
	return !t.Line && !t.Discord
}

// Reminder is the central entity: a future moment at which a piece of
// content should be shared to one or more platforms.
//
// ID and CreatedAt are immutable after creation. Completed is set true
// exactly once, when the due sweep processes the reminder; a completed
// reminder is never re-shared and never rescheduled.
type Reminder struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ScheduledAt    time.Time `json:"scheduledAt"`
	PhotoReference *string   `json:"photoReference,omitempty"`
	Targets        Targets   `json:"targets"`
	CreatedAt      time.Time `json:"createdAt"`
	Completed      bool      `json:"completed"`
}

// Due reports whether the reminder should be processed by a sweep at now.
func (r *Reminder) Due(now time.Time) bool {
	return !r.Completed && !r.ScheduledAt.After(now)
}

// Snapshot is the full persisted state: the reminder collection and the
// reminder→notification-handle binding map. The engine exclusively owns
// both; they are read and written as a unit.
type Snapshot struct {
	Reminders []*Reminder       `json:"reminders"`
	Bindings  map[string]string `json:"bindings"`
}

// NewSnapshot returns an empty snapshot with an initialised binding map.
func NewSnapshot() *Snapshot {
	return &Snapshot{Bindings: make(map[string]string)}
}

// Find returns the reminder with the given ID, or nil.
func (s *Snapshot) Find(id string) *Reminder {
	for _, r := range s.Reminders {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Remove deletes the reminder with the given ID from the collection and
// drops its binding entry. Reports whether a reminder was removed.
func (s *Snapshot) Remove(id string) bool {
	for i, r := range s.Reminders {
		if r.ID == id {
			s.Reminders = append(s.Reminders[:i], s.Reminders[i+1:]...)
			delete(s.Bindings, id)
			return true
		}
	}
	return false
}
