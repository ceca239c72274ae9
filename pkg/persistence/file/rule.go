package file

import (
	"context"

	"github.com/pipewise/pipewise/pkg/models"
)

// RuleRepository stores validation rules and approval processes, one
// document per entity.
type RuleRepository struct {
	store *Persistence
}

func (r *RuleRepository) ListByModule(ctx context.Context, orgID, moduleID string) ([]*models.ValidationRule, error) {
	rules, err := readAll[models.ValidationRule](r.store, "rules")
	if err != nil {
		return nil, err
	}

	matched := make([]*models.ValidationRule, 0, len(rules))

	for _, rule := range rules {
		if rule.OrgID == orgID && rule.ModuleID == moduleID {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.ValidationRule) error {
	return r.store.write("rules", rule.ID, rule)
}

func (r *RuleRepository) ListApprovalProcesses(ctx context.Context, orgID, moduleID string) ([]*models.ApprovalProcess, error) {
	processes, err := readAll[models.ApprovalProcess](r.store, "approval_processes")
	if err != nil {
		return nil, err
	}

	matched := make([]*models.ApprovalProcess, 0, len(processes))

	for _, process := range processes {
		if process.OrgID == orgID && process.ModuleID == moduleID {
			matched = append(matched, process)
		}
	}

	return matched, nil
}

func (r *RuleRepository) SaveApprovalProcess(ctx context.Context, process *models.ApprovalProcess) error {
	return r.store.write("approval_processes", process.ID, process)
}
