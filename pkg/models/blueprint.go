package models

import "fmt"

// Transition is a directed, guarded edge in a module's stage graph.
type Transition struct {
	From             string   `json:"from" validate:"required"`
	To               string   `json:"to"   validate:"required"`
	RequiredFields   []string `json:"required_fields,omitempty"`
	RequiresApproval bool     `json:"requires_approval"`
	RequireReason    bool     `json:"require_reason"`

	// AllowedRoles restricts who may take the edge. Empty means any role.
	AllowedRoles []Role `json:"allowed_roles,omitempty"`
}

// Blueprint is the per-module stage graph. A module without a blueprint has
// unconstrained transitions.
type Blueprint struct {
	ModuleID string `json:"module_id" validate:"required"`
	OrgID    string `json:"org_id"    validate:"required"`

	Stages      []string     `json:"stages"      validate:"required,min=1"`
	Transitions []Transition `json:"transitions"`
}

// HasStage reports whether the stage is declared in the blueprint.
func (b *Blueprint) HasStage(stage string) bool {
	for _, declared := range b.Stages {
		if declared == stage {
			return true
		}
	}

	return false
}

// Validate checks the structural invariant that every transition endpoint is
// a declared stage.
func (b *Blueprint) Validate() error {
	for _, transition := range b.Transitions {
		if !b.HasStage(transition.From) {
			return fmt.Errorf("transition references undeclared stage %q", transition.From)
		}

		if !b.HasStage(transition.To) {
			return fmt.Errorf("transition references undeclared stage %q", transition.To)
		}
	}

	return nil
}
