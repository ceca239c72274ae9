package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule drives a workflow with trigger_type=scheduled. The next execution
// time is precomputed so the poller can query due schedules without keeping
// per-workflow timers.
type Schedule struct {
	ID         string `json:"id"          validate:"required"`
	OrgID      string `json:"org_id"      validate:"required"`
	WorkflowID string `json:"workflow_id" validate:"required"`

	// CronExpression uses the standard 5-field format
	// (minute hour day month weekday).
	CronExpression string    `json:"cron_expression" validate:"required"`
	NextDueAt      time.Time `json:"next_due_at"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSchedule creates a schedule with its first due time computed from now.
func NewSchedule(id, orgID, workflowID, cronExpression string) (*Schedule, error) {
	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		OrgID:          orgID,
		WorkflowID:     workflowID,
		CronExpression: cronExpression,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := schedule.advanceFrom(now)
	if err != nil {
		return nil, err
	}

	return schedule, nil
}

// UpdateNextDueAt recomputes the next due time from the current time.
func (s *Schedule) UpdateNextDueAt() error {
	return s.advanceFrom(time.Now().UTC())
}

func (s *Schedule) advanceFrom(reference time.Time) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	cronSchedule, err := parser.Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = cronSchedule.Next(reference)
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// IsDue reports whether the schedule should fire at the given time.
func (s *Schedule) IsDue(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}

// Validate checks required fields and the cron expression format.
func (s *Schedule) Validate() error {
	if s.ID == "" || s.OrgID == "" || s.WorkflowID == "" || s.CronExpression == "" {
		return ErrInvalidSchedule
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	_, err := parser.Parse(s.CronExpression)

	return err
}
