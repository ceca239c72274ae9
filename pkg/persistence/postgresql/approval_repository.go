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

// ApprovalRepository handles approval request storage. Resolution is a
// conditional UPDATE so exactly one resolver wins under concurrency.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const approvalColumns = `
	id
  , org_id
  , module_id
  , record_id
  , process_id
  , rule_id
  , trigger
  , action_payload
  , context
  , status
  , requested_by
  , resolved_by
  , resolved_at
  , created_at
`

func (r *ApprovalRepository) GetByID(ctx context.Context, orgID, id string) (*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + ` FROM approval_requests WHERE id = $1 AND org_id = $2`

	request, err := scanApproval(r.db.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "approval", id, persistence.ErrApprovalNotFound)
		}

		return nil, fmt.Errorf("failed to scan approval request: %w", err)
	}

	return request, nil
}

func (r *ApprovalRepository) Save(ctx context.Context, request *models.ApprovalRequest) error {
	payload, err := json.Marshal(request.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal action payload: %w", err)
	}

	context_, err := json.Marshal(request.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal approval context: %w", err)
	}

	query := `
		INSERT INTO approval_requests
			(id, org_id, module_id, record_id, process_id, rule_id, trigger,
			 action_payload, context, status, requested_by, resolved_by, resolved_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			resolved_by = EXCLUDED.resolved_by,
			resolved_at = EXCLUDED.resolved_at
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID, request.OrgID, request.ModuleID, request.RecordID,
		nullString(request.ProcessID), nullString(request.RuleID), request.Trigger,
		payload, context_, request.Status, request.RequestedBy,
		nullString(request.ResolvedBy), request.ResolvedAt, request.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save approval request: %w", err)
	}

	return nil
}

func (r *ApprovalRepository) Resolve(ctx context.Context, orgID, id string, decision models.ApprovalStatus, resolverID string, at time.Time) (*models.ApprovalRequest, error) {
	query := `
		UPDATE approval_requests
		SET status = $1, resolved_by = $2, resolved_at = $3
		WHERE id = $4 AND org_id = $5 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, decision, resolverID, at, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve approval request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		// Missing or already resolved; distinguish for the caller.
		request, err := r.GetByID(ctx, orgID, id)
		if err != nil {
			return nil, err
		}

		if request.Resolved() {
			return nil, persistence.NewStoreError("Resolve", "approval", id, persistence.ErrApprovalConflict)
		}

		return nil, persistence.NewStoreError("Resolve", "approval", id, persistence.ErrApprovalNotFound)
	}

	return r.GetByID(ctx, orgID, id)
}

func (r *ApprovalRepository) ListPending(ctx context.Context, orgID string) ([]*models.ApprovalRequest, error) {
	query := `SELECT ` + approvalColumns + `
		FROM approval_requests
		WHERE org_id = $1 AND status = 'pending'
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending approvals: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	requests := make([]*models.ApprovalRequest, 0)

	for rows.Next() {
		request, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request: %w", err)
		}

		requests = append(requests, request)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating approval requests: %w", err)
	}

	return requests, nil
}

func scanApproval(row rowScanner) (*models.ApprovalRequest, error) {
	request := &models.ApprovalRequest{}

	var (
		processID, ruleID, resolvedBy sql.NullString
		resolvedAt                    sql.NullTime
		payload, context_             []byte
	)

	err := row.Scan(&request.ID, &request.OrgID, &request.ModuleID, &request.RecordID,
		&processID, &ruleID, &request.Trigger, &payload, &context_,
		&request.Status, &request.RequestedBy, &resolvedBy, &resolvedAt, &request.CreatedAt)
	if err != nil {
		return nil, err
	}

	request.ProcessID = processID.String
	request.RuleID = ruleID.String
	request.ResolvedBy = resolvedBy.String

	if resolvedAt.Valid {
		request.ResolvedAt = &resolvedAt.Time
	}

	err = json.Unmarshal(payload, &request.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal action payload: %w", err)
	}

	if len(context_) > 0 {
		err = json.Unmarshal(context_, &request.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal approval context: %w", err)
		}
	}

	return request, nil
}
