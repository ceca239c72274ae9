package file

import (
	"context"
	"errors"

	"github.com/pipewise/pipewise/pkg/models"
)

// errBlueprintMissing is internal: a module without a blueprint is not an
// error for callers, transitions are simply unconstrained.
var errBlueprintMissing = errors.New("blueprint missing")

// BlueprintRepository keys blueprints by org and module, one document each.
type BlueprintRepository struct {
	store *Persistence
}

func blueprintKey(orgID, moduleID string) string {
	return orgID + "__" + moduleID
}

func (r *BlueprintRepository) GetByModule(ctx context.Context, orgID, moduleID string) (*models.Blueprint, error) {
	blueprint := &models.Blueprint{}

	err := r.store.read("blueprints", blueprintKey(orgID, moduleID), blueprint, errBlueprintMissing)
	if err != nil {
		if errors.Is(err, errBlueprintMissing) {
			return nil, nil
		}

		return nil, err
	}

	return blueprint, nil
}

func (r *BlueprintRepository) Save(ctx context.Context, blueprint *models.Blueprint) error {
	err := blueprint.Validate()
	if err != nil {
		return err
	}

	return r.store.write("blueprints", blueprintKey(blueprint.OrgID, blueprint.ModuleID), blueprint)
}
