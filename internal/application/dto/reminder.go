package dto

import (
	"time"

	"shareminder/internal/domain/constant"
	"shareminder/internal/domain/entity"
)

// CreateReminderRequest is the DTO for creating a new reminder.
type CreateReminderRequest struct {
	Title          string         `json:"title" validate:"required"`
	Description    string         `json:"description"`
	ScheduledAt    time.Time      `json:"scheduledAt" validate:"required"`
	PhotoReference *string        `json:"photoReference,omitempty"`
	Targets        entity.Targets `json:"targets"`
}

// UpdateReminderRequest is the partial-field patch for an existing
// reminder. Nil fields are left unchanged. ID, createdAt and completed are
// not patchable; the shape omits them so stray values are silently ignored.
type UpdateReminderRequest struct {
	Title          *string         `json:"title,omitempty"`
	Description    *string         `json:"description,omitempty"`
	ScheduledAt    *time.Time      `json:"scheduledAt,omitempty"`
	PhotoReference *string         `json:"photoReference,omitempty"`
	Targets        *entity.Targets `json:"targets,omitempty"`
}

// Apply merges the patch into the reminder and reports whether the
// scheduled time changed, which is what decides rescheduling.
func (p UpdateReminderRequest) Apply(r *entity.Reminder) (scheduleChanged bool) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.ScheduledAt != nil && !p.ScheduledAt.Equal(r.ScheduledAt) {
		r.ScheduledAt = *p.ScheduledAt
		scheduleChanged = true
	}
	if p.PhotoReference != nil {
		if *p.PhotoReference == "" {
			r.PhotoReference = nil
		} else {
			ref := *p.PhotoReference
			r.PhotoReference = &ref
		}
	}
	if p.Targets != nil {
		r.Targets = *p.Targets
	}
	return scheduleChanged
}

// ReminderResponse is the DTO for sending reminder information to the client.
type ReminderResponse struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	ScheduledAt    time.Time      `json:"scheduledAt"`
	PhotoReference *string        `json:"photoReference,omitempty"`
	Targets        entity.Targets `json:"targets"`
	CreatedAt      time.Time      `json:"createdAt"`
	Completed      bool           `json:"completed"`
}

// ToReminderResponse converts an entity.Reminder to a ReminderResponse DTO.
func ToReminderResponse(r *entity.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		ScheduledAt:    r.ScheduledAt,
		PhotoReference: r.PhotoReference,
		Targets:        r.Targets,
		CreatedAt:      r.CreatedAt,
		Completed:      r.Completed,
	}
}

// ToReminderResponseList converts a slice of entity.Reminder to a slice of
// ReminderResponse DTOs.
func ToReminderResponseList(reminders []*entity.Reminder) []ReminderResponse {
	list := make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		list[i] = ToReminderResponse(r)
	}
	return list
}

// ShareOutcome maps each attempted platform to whether the hand-off
// succeeded.
type ShareOutcome map[constant.Platform]bool

// SweepResult is the per-reminder record of one due-sweep pass.
type SweepResult struct {
	ReminderID string       `json:"reminderId"`
	Outcomes   ShareOutcome `json:"outcomes"`
	Error      string       `json:"error,omitempty"`
}

// SweepReport aggregates a due-sweep pass: which reminders were processed,
// how many completions were persisted, and which failed to persist.
type SweepReport struct {
	Processed int           `json:"processed"`
	Completed int           `json:"completed"`
	Failed    []string      `json:"failed,omitempty"`
	Results   []SweepResult `json:"results,omitempty"`
}
