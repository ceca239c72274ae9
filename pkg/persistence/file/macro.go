package file

import (
	"context"
	"sort"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// MacroRepository stores macros, one document per macro.
type MacroRepository struct {
	store *Persistence
}

func (r *MacroRepository) GetByID(ctx context.Context, orgID, id string) (*models.Macro, error) {
	macro := &models.Macro{}

	err := r.store.read("macros", id, macro, persistence.ErrMacroNotFound)
	if err != nil {
		return nil, err
	}

	if macro.OrgID != orgID {
		return nil, persistence.ErrMacroNotFound
	}

	return macro, nil
}

func (r *MacroRepository) List(ctx context.Context, orgID string) ([]*models.Macro, error) {
	macros, err := readAll[models.Macro](r.store, "macros")
	if err != nil {
		return nil, err
	}

	matched := make([]*models.Macro, 0, len(macros))

	for _, macro := range macros {
		if macro.OrgID == orgID {
			matched = append(matched, macro)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return matched, nil
}

func (r *MacroRepository) Save(ctx context.Context, macro *models.Macro) error {
	macro.UpdatedAt = time.Now().UTC()

	return r.store.write("macros", macro.ID, macro)
}

func (r *MacroRepository) Delete(ctx context.Context, orgID, id string) error {
	_, err := r.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}

	return r.store.remove("macros", id)
}
