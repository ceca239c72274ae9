// Package web provides the HTTP surface: transition execution, approvals,
// automation runs, and workflow/macro configuration.
package web

import "github.com/pipewise/pipewise/pkg/models"

// ExecuteTransitionRequest is the body for POST /crm/transition and
// POST /crm/stage-change.
type ExecuteTransitionRequest struct {
	RecordID string         `json:"record_id" validate:"required"`
	ToStage  string         `json:"to_stage"  validate:"required"`
	Reason   string         `json:"reason,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// CheckTransitionRequest is the body for POST /crm/check-transition.
type CheckTransitionRequest struct {
	RecordID string         `json:"record_id" validate:"required"`
	ToStage  string         `json:"to_stage"  validate:"required"`
	Reason   string         `json:"reason,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// CreateApprovalRequest is the body for POST /approvals/request.
type CreateApprovalRequest struct {
	ModuleID  string `json:"module_id" validate:"required"`
	RecordID  string `json:"record_id" validate:"required"`
	ProcessID string `json:"process_id,omitempty"`
	RuleID    string `json:"rule_id,omitempty"`

	Trigger models.RuleTrigger `json:"trigger_type" validate:"required"`

	Kind      models.ActionKind `json:"kind"       validate:"required"`
	StageFrom string            `json:"stage_from,omitempty"`
	StageTo   string            `json:"stage_to,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Fields    map[string]any    `json:"fields,omitempty"`

	Context map[string]any `json:"context,omitempty"`
}

// ResolveApprovalRequest is the body for POST /approvals/:id/resolve.
type ResolveApprovalRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// RunWorkflowRequest is the body for POST /automation/run.
type RunWorkflowRequest struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
	RecordID   string `json:"record_id"   validate:"required"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// RetryRunRequest is the body for POST /automation/runs/:id/retry. A zero
// delay retries immediately and returns the new run; a positive delay
// schedules the retry and returns the job ID.
type RetryRunRequest struct {
	DelaySeconds int `json:"delay_seconds,omitempty" validate:"min=0,max=86400"`
}

// RunMacroRequest is the body for POST /automation/macros/:id/run.
type RunMacroRequest struct {
	RecordID string `json:"record_id" validate:"required"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// CreateWorkflowRequest is the body for POST /automation/workflows.
type CreateWorkflowRequest struct {
	ModuleID string `json:"module_id" validate:"required"`
	Name     string `json:"name"      validate:"required,min=3"`

	Trigger       models.TriggerType `json:"trigger_type" validate:"required"`
	TriggerConfig map[string]any     `json:"trigger_config,omitempty"`
	Conditions    []models.Condition `json:"conditions,omitempty"`

	Actions []ActionInput `json:"actions" validate:"required,min=1,dive"`

	Enabled  bool `json:"is_enabled"`
	Priority int  `json:"priority"`
}

// UpdateWorkflowRequest is the body for PATCH /automation/workflows/:id.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name          *string             `json:"name,omitempty" validate:"omitempty,min=3"`
	Trigger       *models.TriggerType `json:"trigger_type,omitempty"`
	TriggerConfig *map[string]any     `json:"trigger_config,omitempty"`
	Conditions    *[]models.Condition `json:"conditions,omitempty"`
	Actions       *[]ActionInput      `json:"actions,omitempty" validate:"omitempty,min=1,dive"`
	Enabled       *bool               `json:"is_enabled,omitempty"`
	Priority      *int                `json:"priority,omitempty"`
}

// CreateMacroRequest is the body for POST /automation/macros.
type CreateMacroRequest struct {
	ModuleID string `json:"module_id" validate:"required"`
	Name     string `json:"name"      validate:"required,min=3"`

	Actions      []ActionInput `json:"actions" validate:"required,min=1,dive"`
	AllowedRoles []string      `json:"allowed_roles,omitempty"`
}

// UpdateMacroRequest is the body for PATCH /automation/macros/:id.
type UpdateMacroRequest struct {
	Name         *string        `json:"name,omitempty" validate:"omitempty,min=3"`
	Actions      *[]ActionInput `json:"actions,omitempty" validate:"omitempty,min=1,dive"`
	AllowedRoles *[]string      `json:"allowed_roles,omitempty"`
}

// ActionInput is one workflow or macro action step.
type ActionInput struct {
	ID     string         `json:"id,omitempty"`
	Type   string         `json:"type" validate:"required"`
	Config map[string]any `json:"config,omitempty"`
	Order  int            `json:"order"`
}

func toWorkflowActions(inputs []ActionInput) []models.WorkflowAction {
	actions := make([]models.WorkflowAction, 0, len(inputs))

	for _, input := range inputs {
		actions = append(actions, models.WorkflowAction{
			ID:     input.ID,
			Type:   models.ActionType(input.Type),
			Config: input.Config,
			Order:  input.Order,
		})
	}

	return actions
}

func toRoles(raw []string) []models.Role {
	roles := make([]models.Role, 0, len(raw))

	for _, value := range raw {
		roles = append(roles, models.Role(value))
	}

	return roles
}
