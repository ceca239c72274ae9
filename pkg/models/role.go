package models

import "fmt"

// Role is the closed set of organization roles known to the engine.
type Role string

const (
	RoleAdmin    Role = "crm_admin"
	RoleManager  Role = "crm_manager"
	RoleRep      Role = "crm_rep"
	RoleSupport  Role = "crm_support"
	RoleReadOnly Role = "crm_readonly"
)

// Capability names an operation that can be permission-gated. Authorization
// is a typed table keyed by (capability, role) rather than ad-hoc role-list
// checks at call sites.
type Capability string

const (
	CapTransitionExecute Capability = "transition.execute"
	CapTransitionView    Capability = "transition.view"
	CapApprovalRequest   Capability = "approval.request"
	CapApprovalResolve   Capability = "approval.resolve"
	CapWorkflowManage    Capability = "workflow.manage"
	CapWorkflowRun       Capability = "workflow.run"
	CapMacroManage       Capability = "macro.manage"
	CapMacroRun          Capability = "macro.run"
	CapRunInspect        Capability = "run.inspect"
)

var capabilityGrants = map[Capability][]Role{
	CapTransitionExecute: {RoleAdmin, RoleManager, RoleRep},
	CapTransitionView:    {RoleAdmin, RoleManager, RoleRep, RoleSupport, RoleReadOnly},
	CapApprovalRequest:   {RoleAdmin, RoleManager, RoleRep},
	CapApprovalResolve:   {RoleAdmin, RoleManager},
	CapWorkflowManage:    {RoleAdmin, RoleManager},
	CapWorkflowRun:       {RoleAdmin, RoleManager},
	CapMacroManage:       {RoleAdmin, RoleManager},
	CapMacroRun:          {RoleAdmin, RoleManager, RoleRep},
	CapRunInspect:        {RoleAdmin, RoleManager, RoleSupport},
}

// Can reports whether the role is granted the capability.
func (r Role) Can(capability Capability) bool {
	for _, granted := range capabilityGrants[capability] {
		if granted == r {
			return true
		}
	}

	return false
}

// ParseRole validates a raw role string against the closed role set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleManager, RoleRep, RoleSupport, RoleReadOnly:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// RoleAllowed reports whether role is contained in allowed. An empty allowed
// list means any role.
func RoleAllowed(role Role, allowed []Role) bool {
	if len(allowed) == 0 {
		return true
	}

	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}

	return false
}
