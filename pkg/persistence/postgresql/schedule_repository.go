package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// ScheduleRepository handles cron schedule storage for scheduled workflows.
type ScheduleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Schedule, error) {
	query := `
		SELECT
			id
		  , org_id
		  , workflow_id
		  , cron_expression
		  , next_due_at
		  , active
		  , created_at
		  , updated_at
		FROM schedules
		WHERE active AND next_due_at <= $1
		ORDER BY next_due_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	schedules := make([]*models.Schedule, 0)

	for rows.Next() {
		schedule := &models.Schedule{}

		err = rows.Scan(&schedule.ID, &schedule.OrgID, &schedule.WorkflowID,
			&schedule.CronExpression, &schedule.NextDueAt, &schedule.Active,
			&schedule.CreatedAt, &schedule.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}

		schedules = append(schedules, schedule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *models.Schedule) error {
	err := schedule.Validate()
	if err != nil {
		return err
	}

	query := `
		INSERT INTO schedules
			(id, org_id, workflow_id, cron_expression, next_due_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			cron_expression = EXCLUDED.cron_expression,
			next_due_at = EXCLUDED.next_due_at,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		schedule.ID, schedule.OrgID, schedule.WorkflowID, schedule.CronExpression,
		schedule.NextDueAt, schedule.Active, schedule.CreatedAt, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, orgID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewStoreError("Delete", "schedule", id, persistence.ErrScheduleNotFound)
	}

	return nil
}
