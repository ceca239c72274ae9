// Package models defines the core domain models for the stage-transition and
// workflow-automation engine.
package models

import (
	"sort"
	"time"
)

// TriggerType identifies the event class a workflow reacts to.
type TriggerType string

const (
	TriggerOnCreate      TriggerType = "on_create"
	TriggerOnUpdate      TriggerType = "on_update"
	TriggerOnStageChange TriggerType = "on_stage_change"
	TriggerScheduled     TriggerType = "scheduled"
	TriggerWebform       TriggerType = "webform"
	TriggerManual        TriggerType = "manual"
)

// ActionType is the closed vocabulary of automation actions shared by
// workflows and macros.
type ActionType string

const (
	ActionUpdateFields          ActionType = "update_fields"
	ActionAssignOwner           ActionType = "assign_owner"
	ActionCreateTask            ActionType = "create_task"
	ActionCreateActivity        ActionType = "create_activity"
	ActionAddNote               ActionType = "add_note"
	ActionNotify                ActionType = "notify"
	ActionMoveStage             ActionType = "move_stage"
	ActionStartCadence          ActionType = "start_cadence"
	ActionStopCadence           ActionType = "stop_cadence"
	ActionCreateEnrollmentDraft ActionType = "create_enrollment_draft"
)

// WorkflowAction is one ordered step in a workflow or macro.
type WorkflowAction struct {
	ID     string         `json:"id"     validate:"required"`
	Type   ActionType     `json:"type"   validate:"required"`
	Config map[string]any `json:"config"`
	Order  int            `json:"order"`
}

// Workflow is a trigger-matched, conditionally executed, ordered action list.
type Workflow struct {
	ID       string `json:"id"`
	OrgID    string `json:"org_id"    validate:"required"`
	ModuleID string `json:"module_id" validate:"required"`
	Name     string `json:"name"      validate:"required,min=3"`

	Trigger       TriggerType    `json:"trigger_type" validate:"required"`
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`
	Conditions    []Condition    `json:"conditions,omitempty"`
	Actions       []WorkflowAction `json:"actions"`

	Enabled bool `json:"is_enabled"`

	// Priority orders execution across workflows matching one event;
	// lower executes first.
	Priority int `json:"priority"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// OrderedActions returns the actions sorted by Order without mutating the
// stored slice.
func (w *Workflow) OrderedActions() []WorkflowAction {
	actions := make([]WorkflowAction, len(w.Actions))
	copy(actions, w.Actions)

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	return actions
}

// Macro bundles the same action vocabulary for manual, role-gated invocation.
// No trigger or condition matching applies.
type Macro struct {
	ID       string `json:"id"`
	OrgID    string `json:"org_id"    validate:"required"`
	ModuleID string `json:"module_id" validate:"required"`
	Name     string `json:"name"      validate:"required,min=3"`

	Actions      []WorkflowAction `json:"actions"`
	AllowedRoles []Role           `json:"allowed_roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderedActions returns the macro's actions sorted by Order.
func (m *Macro) OrderedActions() []WorkflowAction {
	actions := make([]WorkflowAction, len(m.Actions))
	copy(actions, m.Actions)

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Order < actions[j].Order
	})

	return actions
}
