// Package blueprint implements stage-graph lookups and transition validation
// against a module's blueprint.
package blueprint

import "github.com/pipewise/pipewise/pkg/models"

// FindTransition returns the directed edge (from, to) if the blueprint
// declares it.
func FindTransition(bp *models.Blueprint, from, to string) (*models.Transition, bool) {
	if bp == nil {
		return nil, false
	}

	for i := range bp.Transitions {
		transition := &bp.Transitions[i]
		if transition.From == from && transition.To == to {
			return transition, true
		}
	}

	return nil, false
}

// TransitionsFrom returns the edges leaving the stage that the role may take.
func TransitionsFrom(bp *models.Blueprint, stage string, role models.Role) []models.Transition {
	if bp == nil {
		return nil
	}

	available := make([]models.Transition, 0)

	for _, transition := range bp.Transitions {
		if transition.From != stage {
			continue
		}

		if !models.RoleAllowed(role, transition.AllowedRoles) {
			continue
		}

		available = append(available, transition)
	}

	return available
}
