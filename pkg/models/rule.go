package models

// RuleTrigger identifies when a validation rule is consulted.
type RuleTrigger string

const (
	RuleTriggerFieldChange     RuleTrigger = "field_change"
	RuleTriggerStageTransition RuleTrigger = "stage_transition"
	RuleTriggerRecordCreate    RuleTrigger = "record_create"
	RuleTriggerFieldThreshold  RuleTrigger = "field_threshold"
)

// ValidationRule is an independent, data-driven business rule. Rules are not
// tied to the blueprint graph; several may apply to one trigger and every
// failing rule is reported, not just the first.
type ValidationRule struct {
	ID       string      `json:"id"        validate:"required"`
	OrgID    string      `json:"org_id"    validate:"required"`
	ModuleID string      `json:"module_id" validate:"required"`
	Trigger  RuleTrigger `json:"trigger"   validate:"required"`

	// FromStage/ToStage narrow stage_transition rules. Empty means wildcard.
	FromStage string `json:"from_stage,omitempty"`
	ToStage   string `json:"to_stage,omitempty"`

	// Conditions must all hold for the rule to pass.
	Conditions []Condition `json:"conditions"`

	RuleName     string `json:"rule_name" validate:"required"`
	RuleType     string `json:"rule_type,omitempty"`
	Field        string `json:"field,omitempty"`
	ErrorMessage string `json:"error_message" validate:"required"`
	Enabled      bool   `json:"enabled"`
}

// AppliesTo reports whether the rule matches the trigger and, for stage
// transitions, the candidate edge.
func (r *ValidationRule) AppliesTo(trigger RuleTrigger, fromStage, toStage string) bool {
	if !r.Enabled || r.Trigger != trigger {
		return false
	}

	if trigger != RuleTriggerStageTransition {
		return true
	}

	if r.FromStage != "" && r.FromStage != fromStage {
		return false
	}

	if r.ToStage != "" && r.ToStage != toStage {
		return false
	}

	return true
}

// RuleError is one rule violation, shaped for direct UI rendering.
type RuleError struct {
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	RuleName string `json:"rule_name"`
	RuleType string `json:"rule_type,omitempty"`
}
