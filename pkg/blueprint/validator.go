package blueprint

import "github.com/pipewise/pipewise/pkg/models"

// Options carries the caller-specific context for one validation.
type Options struct {
	Role    models.Role
	Pending map[string]models.FieldValue
	Reason  string
}

// Result is the structural validation outcome for a candidate transition.
// Gating flags are always populated together so callers can render one
// coherent picture of why a transition is blocked.
type Result struct {
	Allowed          bool           `json:"allowed"`
	Valid            bool           `json:"valid"`
	RequiresApproval bool           `json:"requires_approval"`
	RequiresReason   bool           `json:"requires_reason"`
	MissingFields    []MissingField `json:"missing_fields,omitempty"`
	Transition       *models.Transition `json:"transition,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// Validate decides whether the record may move to toStage under the
// blueprint. A nil blueprint leaves transitions unconstrained; only the
// independent rule engine applies then.
func Validate(bp *models.Blueprint, record *models.Record, toStage string, opts Options) Result {
	if bp == nil {
		return Result{Allowed: true, Valid: true}
	}

	transition, found := FindTransition(bp, record.Stage, toStage)
	if !found {
		return Result{
			Allowed: false,
			Error:   "no transition from " + record.Stage + " to " + toStage,
		}
	}

	if !models.RoleAllowed(opts.Role, transition.AllowedRoles) {
		return Result{
			Allowed: false,
			Error:   "role " + string(opts.Role) + " may not take this transition",
		}
	}

	missing := MissingFields(transition, record, opts.Pending)

	return Result{
		Allowed:          true,
		Valid:            len(missing) == 0,
		RequiresApproval: transition.RequiresApproval,
		RequiresReason:   transition.RequireReason && opts.Reason == "",
		MissingFields:    missing,
		Transition:       transition,
	}
}
