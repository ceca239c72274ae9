package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// RecordRepository handles record, stage-history and audit-log operations.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *RecordRepository) GetByID(ctx context.Context, orgID, id string) (*models.Record, error) {
	query := `
		SELECT
			id
		  , org_id
		  , module_id
		  , owner_id
		  , stage
		  , data
		  , created_at
		  , updated_at
		FROM records
		WHERE id = $1 AND org_id = $2
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "record", id, persistence.ErrRecordNotFound)
		}

		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	return record, nil
}

func (r *RecordRepository) Save(ctx context.Context, record *models.Record) error {
	record.UpdatedAt = time.Now().UTC()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	query := `
		INSERT INTO records (id, org_id, module_id, owner_id, stage, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			stage = EXCLUDED.stage,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.OrgID, record.ModuleID, nullString(record.OwnerID),
		nullString(record.Stage), data, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// CommitStageChange applies the stage write, history row and audit row in one
// transaction. The UPDATE is guarded on the expected current stage; zero rows
// affected means another writer moved the record first.
func (r *RecordRepository) CommitStageChange(ctx context.Context, commit persistence.StageCommit) (*models.Record, error) {
	transaction, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin stage commit transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	fields, err := json.Marshal(commit.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal commit fields: %w", err)
	}

	updateQuery := `
		UPDATE records
		SET stage = $1,
			data = data || $2::jsonb,
			updated_at = $3
		WHERE id = $4 AND org_id = $5 AND COALESCE(stage, '') = $6
	`

	result, err := transaction.ExecContext(ctx, updateQuery,
		commit.ToStage, fields, commit.At, commit.RecordID, commit.OrgID, commit.FromStage)
	if err != nil {
		return nil, fmt.Errorf("failed to update record stage: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		// Either the record is gone or its stage moved under us.
		_, err := r.GetByID(ctx, commit.OrgID, commit.RecordID)
		if err != nil {
			return nil, err
		}

		return nil, persistence.NewStoreError("CommitStageChange", "record", commit.RecordID, persistence.ErrStageConflict)
	}

	historyQuery := `
		INSERT INTO stage_history (id, org_id, record_id, from_stage, to_stage, reason, actor_id, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = transaction.ExecContext(ctx, historyQuery,
		uuid.New().String(), commit.OrgID, commit.RecordID, commit.FromStage,
		commit.ToStage, nullString(commit.Reason), commit.ActorID, commit.At)
	if err != nil {
		return nil, fmt.Errorf("failed to insert stage history: %w", err)
	}

	details, err := json.Marshal(map[string]any{
		"from_stage": commit.FromStage,
		"to_stage":   commit.ToStage,
		"reason":     commit.Reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit details: %w", err)
	}

	auditQuery := `
		INSERT INTO audit_log (id, org_id, record_id, action, actor_id, details, at)
		VALUES ($1, $2, $3, 'stage_change', $4, $5, $6)
	`

	_, err = transaction.ExecContext(ctx, auditQuery,
		uuid.New().String(), commit.OrgID, commit.RecordID, commit.ActorID, details, commit.At)
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	err = transaction.Commit()
	if err != nil {
		return nil, fmt.Errorf("failed to commit stage change: %w", err)
	}

	return r.GetByID(ctx, commit.OrgID, commit.RecordID)
}

func (r *RecordRepository) ApplyFields(ctx context.Context, orgID, recordID string, fields map[string]models.FieldValue) (*models.Record, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	query := `
		UPDATE records
		SET data = data || $1::jsonb, updated_at = $2
		WHERE id = $3 AND org_id = $4
	`

	result, err := r.db.ExecContext(ctx, query, data, time.Now().UTC(), recordID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to apply fields: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return nil, persistence.NewStoreError("ApplyFields", "record", recordID, persistence.ErrRecordNotFound)
	}

	return r.GetByID(ctx, orgID, recordID)
}

func (r *RecordRepository) History(ctx context.Context, orgID, recordID string) ([]*models.StageHistoryEntry, error) {
	query := `
		SELECT
			id
		  , org_id
		  , record_id
		  , from_stage
		  , to_stage
		  , reason
		  , actor_id
		  , at
		FROM stage_history
		WHERE record_id = $1 AND org_id = $2
		ORDER BY at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, recordID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage history: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	entries := make([]*models.StageHistoryEntry, 0)

	for rows.Next() {
		entry := &models.StageHistoryEntry{}

		var reason sql.NullString

		err = rows.Scan(&entry.ID, &entry.OrgID, &entry.RecordID, &entry.FromStage,
			&entry.ToStage, &reason, &entry.ActorID, &entry.At)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stage history entry: %w", err)
		}

		entry.Reason = reason.String
		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating stage history: %w", err)
	}

	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	record := &models.Record{}

	var (
		ownerID sql.NullString
		stage   sql.NullString
		data    []byte
	)

	err := row.Scan(&record.ID, &record.OrgID, &record.ModuleID, &ownerID,
		&stage, &data, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	record.OwnerID = ownerID.String
	record.Stage = stage.String

	err = json.Unmarshal(data, &record.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}

	return record, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
