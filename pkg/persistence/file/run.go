package file

import (
	"context"
	"sort"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// RunRepository stores automation runs, one document per run.
type RunRepository struct {
	store *Persistence
}

func (r *RunRepository) GetByID(ctx context.Context, orgID, id string) (*models.AutomationRun, error) {
	run := &models.AutomationRun{}

	err := r.store.read("runs", id, run, persistence.ErrRunNotFound)
	if err != nil {
		return nil, err
	}

	if run.OrgID != orgID {
		return nil, persistence.ErrRunNotFound
	}

	return run, nil
}

func (r *RunRepository) List(ctx context.Context, orgID string, limit int) ([]*models.AutomationRun, error) {
	runs, err := readAll[models.AutomationRun](r.store, "runs")
	if err != nil {
		return nil, err
	}

	matched := make([]*models.AutomationRun, 0, len(runs))

	for _, run := range runs {
		if run.OrgID == orgID {
			matched = append(matched, run)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}

func (r *RunRepository) Save(ctx context.Context, run *models.AutomationRun) error {
	return r.store.write("runs", run.ID, run)
}
