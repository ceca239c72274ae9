package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// WorkflowRepository handles workflow storage. Deletes are soft.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , org_id
  , module_id
  , name
  , trigger_type
  , trigger_config
  , conditions
  , actions
  , is_enabled
  , priority
  , created_at
  , updated_at
`

func (r *WorkflowRepository) GetByID(ctx context.Context, orgID, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`

	workflow, err := scanWorkflow(r.db.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, orgID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE org_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	return r.queryWorkflows(ctx, query, orgID)
}

func (r *WorkflowRepository) ListEnabled(ctx context.Context, orgID, moduleID string, trigger models.TriggerType) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE org_id = $1 AND module_id = $2 AND trigger_type = $3
		  AND is_enabled AND deleted_at IS NULL
		ORDER BY priority ASC, created_at ASC`

	return r.queryWorkflows(ctx, query, orgID, moduleID, trigger)
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	workflow.UpdatedAt = time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = workflow.UpdatedAt
	}

	triggerConfig, err := json.Marshal(workflow.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	conditions, err := json.Marshal(workflow.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow conditions: %w", err)
	}

	actions, err := json.Marshal(workflow.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow actions: %w", err)
	}

	query := `
		INSERT INTO workflows
			(id, org_id, module_id, name, trigger_type, trigger_config, conditions,
			 actions, is_enabled, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			conditions = EXCLUDED.conditions,
			actions = EXCLUDED.actions,
			is_enabled = EXCLUDED.is_enabled,
			priority = EXCLUDED.priority,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.OrgID, workflow.ModuleID, workflow.Name,
		workflow.Trigger, triggerConfig, conditions, actions,
		workflow.Enabled, workflow.Priority, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, orgID, id string) error {
	query := `
		UPDATE workflows
		SET deleted_at = $1, is_enabled = false
		WHERE id = $2 AND org_id = $3 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	var triggerConfig, conditions, actions []byte

	err := row.Scan(&workflow.ID, &workflow.OrgID, &workflow.ModuleID, &workflow.Name,
		&workflow.Trigger, &triggerConfig, &conditions, &actions,
		&workflow.Enabled, &workflow.Priority, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(triggerConfig) > 0 {
		err = json.Unmarshal(triggerConfig, &workflow.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	err = json.Unmarshal(conditions, &workflow.Conditions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow conditions: %w", err)
	}

	err = json.Unmarshal(actions, &workflow.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow actions: %w", err)
	}

	return workflow, nil
}
