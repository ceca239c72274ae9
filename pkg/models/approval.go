package models

import "time"

// ApprovalStatus is the lifecycle state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// ActionKind tags the variant of a deferred, replayable mutation.
type ActionKind string

const (
	ActionKindStageChange ActionKind = "stage_change"
	ActionKindUpdate      ActionKind = "update"
	ActionKindFieldUpdate ActionKind = "field_update"
	ActionKindDelete      ActionKind = "delete"
)

// ActionPayloadVersion is bumped when the payload wire shape changes, so
// stored pending requests stay replayable across releases.
const ActionPayloadVersion = 1

// ActionPayload is a versioned command object describing the mutation that
// was deferred pending approval. Replay is a dispatch on Kind.
type ActionPayload struct {
	Version int        `json:"version"`
	Kind    ActionKind `json:"kind"`

	StageFrom string                `json:"stage_from,omitempty"`
	StageTo   string                `json:"stage_to,omitempty"`
	Reason    string                `json:"reason,omitempty"`
	Fields    map[string]FieldValue `json:"fields,omitempty"`
}

// ApprovalRequest is a persisted deferred mutation awaiting human sign-off.
// While pending, the underlying record must not reflect the mutation.
type ApprovalRequest struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	ModuleID  string `json:"module_id"`
	RecordID  string `json:"record_id"`
	ProcessID string `json:"process_id,omitempty"`
	RuleID    string `json:"rule_id,omitempty"`

	Trigger RuleTrigger    `json:"trigger"`
	Payload ActionPayload  `json:"action_payload"`
	Context map[string]any `json:"context,omitempty"`

	Status      ApprovalStatus `json:"status"`
	RequestedBy string         `json:"requested_by"`
	ResolvedBy  string         `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Resolved reports whether the request reached a terminal state.
func (a *ApprovalRequest) Resolved() bool {
	return a.Status != ApprovalStatusPending
}

// ApprovalProcess is an admin-configured gate: when its trigger and
// conditions match a candidate mutation, the mutation is routed through
// human approval.
type ApprovalProcess struct {
	ID       string      `json:"id"        validate:"required"`
	OrgID    string      `json:"org_id"    validate:"required"`
	ModuleID string      `json:"module_id" validate:"required"`
	Name     string      `json:"name"      validate:"required"`
	Trigger  RuleTrigger `json:"trigger"   validate:"required"`

	FromStage  string      `json:"from_stage,omitempty"`
	ToStage    string      `json:"to_stage,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Enabled    bool        `json:"enabled"`
}

// AppliesTo mirrors ValidationRule matching for approval gates.
func (p *ApprovalProcess) AppliesTo(trigger RuleTrigger, fromStage, toStage string) bool {
	if !p.Enabled || p.Trigger != trigger {
		return false
	}

	if trigger != RuleTriggerStageTransition {
		return true
	}

	if p.FromStage != "" && p.FromStage != fromStage {
		return false
	}

	if p.ToStage != "" && p.ToStage != toStage {
		return false
	}

	return true
}
