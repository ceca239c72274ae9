package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of one automation execution attempt.
type RunStatus string

const (
	RunStatusDryRun    RunStatus = "dry_run"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// ActionResultStatus is the outcome of a single action within a run.
type ActionResultStatus string

const (
	ActionResultSucceeded ActionResultStatus = "succeeded"
	ActionResultFailed    ActionResultStatus = "failed"
	ActionResultSkipped   ActionResultStatus = "skipped"
)

// ActionResult records the outcome of one action attempt inside a run.
type ActionResult struct {
	ActionID   string             `json:"action_id"`
	Type       ActionType         `json:"type"`
	Status     ActionResultStatus `json:"status"`
	Output     map[string]any     `json:"output,omitempty"`
	Error      string             `json:"error,omitempty"`
	DurationMs int64              `json:"duration_ms"`
}

// AutomationRun is one execution attempt of a workflow or macro. A retry
// creates a new run linked to the original through its idempotency key;
// terminal runs are never mutated.
type AutomationRun struct {
	ID         string `json:"id"`
	OrgID      string `json:"org_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	MacroID    string `json:"macro_id,omitempty"`
	RecordID   string `json:"record_id,omitempty"`

	Trigger         TriggerType    `json:"trigger"`
	Status          RunStatus      `json:"status"`
	ActionsExecuted []ActionResult `json:"actions_executed"`
	Error           string         `json:"error,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the run reached a final state.
func (r *AutomationRun) Terminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusDryRun:
		return true
	default:
		return false
	}
}

// RetryIdempotencyKey mints the key for an explicit retry of a failed run.
// Each retry request gets its own key so two retries never collide as "the
// same" attempt, while both remain traceable to the original run.
func RetryIdempotencyKey(originalRunID string, at time.Time) string {
	return fmt.Sprintf("retry:%s:%d", originalRunID, at.UTC().Unix())
}
