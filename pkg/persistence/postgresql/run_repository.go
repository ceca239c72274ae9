package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

const defaultRunListLimit = 100

// RunRepository handles automation run storage.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const runColumns = `
	id
  , org_id
  , workflow_id
  , macro_id
  , record_id
  , trigger
  , status
  , actions_executed
  , error
  , idempotency_key
  , started_at
  , finished_at
`

func (r *RunRepository) GetByID(ctx context.Context, orgID, id string) (*models.AutomationRun, error) {
	query := `SELECT ` + runColumns + ` FROM automation_runs WHERE id = $1 AND org_id = $2`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "run", id, persistence.ErrRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan automation run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) List(ctx context.Context, orgID string, limit int) ([]*models.AutomationRun, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	query := `SELECT ` + runColumns + `
		FROM automation_runs
		WHERE org_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.AutomationRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automation runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) Save(ctx context.Context, run *models.AutomationRun) error {
	results, err := json.Marshal(run.ActionsExecuted)
	if err != nil {
		return fmt.Errorf("failed to marshal action results: %w", err)
	}

	query := `
		INSERT INTO automation_runs
			(id, org_id, workflow_id, macro_id, record_id, trigger, status,
			 actions_executed, error, idempotency_key, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			actions_executed = EXCLUDED.actions_executed,
			error = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.OrgID, nullString(run.WorkflowID), nullString(run.MacroID),
		nullString(run.RecordID), run.Trigger, run.Status, results,
		nullString(run.Error), nullString(run.IdempotencyKey), run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save automation run: %w", err)
	}

	return nil
}

func scanRun(row rowScanner) (*models.AutomationRun, error) {
	run := &models.AutomationRun{}

	var (
		workflowID, macroID, recordID, runError, idempotencyKey sql.NullString
		finishedAt                                              sql.NullTime
		results                                                 []byte
	)

	err := row.Scan(&run.ID, &run.OrgID, &workflowID, &macroID, &recordID,
		&run.Trigger, &run.Status, &results, &runError, &idempotencyKey,
		&run.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.WorkflowID = workflowID.String
	run.MacroID = macroID.String
	run.RecordID = recordID.String
	run.Error = runError.String
	run.IdempotencyKey = idempotencyKey.String

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	err = json.Unmarshal(results, &run.ActionsExecuted)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal action results: %w", err)
	}

	return run, nil
}
