package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
)

// RuleRepository handles validation rules and approval processes.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *RuleRepository) ListByModule(ctx context.Context, orgID, moduleID string) ([]*models.ValidationRule, error) {
	query := `
		SELECT
			id
		  , org_id
		  , module_id
		  , trigger
		  , from_stage
		  , to_stage
		  , conditions
		  , rule_name
		  , rule_type
		  , field
		  , error_message
		  , enabled
		FROM validation_rules
		WHERE org_id = $1 AND module_id = $2
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation rules: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	rules := make([]*models.ValidationRule, 0)

	for rows.Next() {
		rule := &models.ValidationRule{}

		var (
			fromStage, toStage, ruleType, field sql.NullString
			conditions                          []byte
		)

		err = rows.Scan(&rule.ID, &rule.OrgID, &rule.ModuleID, &rule.Trigger,
			&fromStage, &toStage, &conditions, &rule.RuleName, &ruleType,
			&field, &rule.ErrorMessage, &rule.Enabled)
		if err != nil {
			return nil, fmt.Errorf("failed to scan validation rule: %w", err)
		}

		rule.FromStage = fromStage.String
		rule.ToStage = toStage.String
		rule.RuleType = ruleType.String
		rule.Field = field.String

		err = json.Unmarshal(conditions, &rule.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule conditions: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating validation rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.ValidationRule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal rule conditions: %w", err)
	}

	query := `
		INSERT INTO validation_rules
			(id, org_id, module_id, trigger, from_stage, to_stage, conditions,
			 rule_name, rule_type, field, error_message, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			trigger = EXCLUDED.trigger,
			from_stage = EXCLUDED.from_stage,
			to_stage = EXCLUDED.to_stage,
			conditions = EXCLUDED.conditions,
			rule_name = EXCLUDED.rule_name,
			rule_type = EXCLUDED.rule_type,
			field = EXCLUDED.field,
			error_message = EXCLUDED.error_message,
			enabled = EXCLUDED.enabled
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.OrgID, rule.ModuleID, rule.Trigger,
		nullString(rule.FromStage), nullString(rule.ToStage), conditions,
		rule.RuleName, nullString(rule.RuleType), nullString(rule.Field),
		rule.ErrorMessage, rule.Enabled)
	if err != nil {
		return fmt.Errorf("failed to save validation rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) ListApprovalProcesses(ctx context.Context, orgID, moduleID string) ([]*models.ApprovalProcess, error) {
	query := `
		SELECT
			id
		  , org_id
		  , module_id
		  , name
		  , trigger
		  , from_stage
		  , to_stage
		  , conditions
		  , enabled
		FROM approval_processes
		WHERE org_id = $1 AND module_id = $2
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval processes: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	processes := make([]*models.ApprovalProcess, 0)

	for rows.Next() {
		process := &models.ApprovalProcess{}

		var (
			fromStage, toStage sql.NullString
			conditions         []byte
		)

		err = rows.Scan(&process.ID, &process.OrgID, &process.ModuleID, &process.Name,
			&process.Trigger, &fromStage, &toStage, &conditions, &process.Enabled)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval process: %w", err)
		}

		process.FromStage = fromStage.String
		process.ToStage = toStage.String

		err = json.Unmarshal(conditions, &process.Conditions)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal process conditions: %w", err)
		}

		processes = append(processes, process)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approval processes: %w", err)
	}

	return processes, nil
}

func (r *RuleRepository) SaveApprovalProcess(ctx context.Context, process *models.ApprovalProcess) error {
	conditions, err := json.Marshal(process.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal process conditions: %w", err)
	}

	query := `
		INSERT INTO approval_processes
			(id, org_id, module_id, name, trigger, from_stage, to_stage, conditions, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trigger = EXCLUDED.trigger,
			from_stage = EXCLUDED.from_stage,
			to_stage = EXCLUDED.to_stage,
			conditions = EXCLUDED.conditions,
			enabled = EXCLUDED.enabled
	`

	_, err = r.db.ExecContext(ctx, query,
		process.ID, process.OrgID, process.ModuleID, process.Name, process.Trigger,
		nullString(process.FromStage), nullString(process.ToStage), conditions, process.Enabled)
	if err != nil {
		return fmt.Errorf("failed to save approval process: %w", err)
	}

	return nil
}
