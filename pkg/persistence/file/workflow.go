package file

import (
	"context"
	"sort"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// WorkflowRepository stores workflows, one document per workflow. Deletes
// are soft: the document keeps its ID but gains a deletion timestamp.
type WorkflowRepository struct {
	store *Persistence
}

func (r *WorkflowRepository) GetByID(ctx context.Context, orgID, id string) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	err := r.store.read("workflows", id, workflow, persistence.ErrWorkflowNotFound)
	if err != nil {
		return nil, err
	}

	if workflow.OrgID != orgID || workflow.DeletedAt != nil {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, orgID string) ([]*models.Workflow, error) {
	workflows, err := readAll[models.Workflow](r.store, "workflows")
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.OrgID == orgID && workflow.DeletedAt == nil {
			matched = append(matched, workflow)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

func (r *WorkflowRepository) ListEnabled(ctx context.Context, orgID, moduleID string, trigger models.TriggerType) ([]*models.Workflow, error) {
	workflows, err := r.List(ctx, orgID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.Enabled && workflow.ModuleID == moduleID && workflow.Trigger == trigger {
			matched = append(matched, workflow)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})

	return matched, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	workflow.UpdatedAt = time.Now().UTC()

	return r.store.write("workflows", workflow.ID, workflow)
}

func (r *WorkflowRepository) Delete(ctx context.Context, orgID, id string) error {
	workflow, err := r.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now
	workflow.Enabled = false

	return r.store.write("workflows", workflow.ID, workflow)
}
