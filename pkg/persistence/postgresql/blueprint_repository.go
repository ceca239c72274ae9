package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
)

// BlueprintRepository handles per-module stage graph storage.
type BlueprintRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *BlueprintRepository) GetByModule(ctx context.Context, orgID, moduleID string) (*models.Blueprint, error) {
	query := `
		SELECT stages, transitions
		FROM blueprints
		WHERE org_id = $1 AND module_id = $2
	`

	var stages, transitions []byte

	err := r.db.QueryRowContext(ctx, query, orgID, moduleID).Scan(&stages, &transitions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query blueprint: %w", err)
	}

	blueprint := &models.Blueprint{OrgID: orgID, ModuleID: moduleID}

	err = json.Unmarshal(stages, &blueprint.Stages)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal blueprint stages: %w", err)
	}

	err = json.Unmarshal(transitions, &blueprint.Transitions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal blueprint transitions: %w", err)
	}

	return blueprint, nil
}

func (r *BlueprintRepository) Save(ctx context.Context, blueprint *models.Blueprint) error {
	err := blueprint.Validate()
	if err != nil {
		return err
	}

	stages, err := json.Marshal(blueprint.Stages)
	if err != nil {
		return fmt.Errorf("failed to marshal blueprint stages: %w", err)
	}

	transitions, err := json.Marshal(blueprint.Transitions)
	if err != nil {
		return fmt.Errorf("failed to marshal blueprint transitions: %w", err)
	}

	query := `
		INSERT INTO blueprints (org_id, module_id, stages, transitions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, module_id) DO UPDATE SET
			stages = EXCLUDED.stages,
			transitions = EXCLUDED.transitions
	`

	_, err = r.db.ExecContext(ctx, query, blueprint.OrgID, blueprint.ModuleID, stages, transitions)
	if err != nil {
		return fmt.Errorf("failed to save blueprint: %w", err)
	}

	return nil
}
