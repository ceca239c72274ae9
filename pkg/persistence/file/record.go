package file

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// RecordRepository stores records under records/, with the stage history and
// audit trail as per-record JSON lists.
type RecordRepository struct {
	store *Persistence
}

func (r *RecordRepository) GetByID(ctx context.Context, orgID, id string) (*models.Record, error) {
	record := &models.Record{}

	err := r.store.read("records", id, record, persistence.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}

	if record.OrgID != orgID {
		return nil, persistence.ErrRecordNotFound
	}

	return record, nil
}

func (r *RecordRepository) Save(ctx context.Context, record *models.Record) error {
	record.UpdatedAt = time.Now().UTC()

	return r.store.write("records", record.ID, record)
}

// CommitStageChange serializes behind the store mutex so the stage check and
// the three writes behave as one atomic unit.
func (r *RecordRepository) CommitStageChange(ctx context.Context, commit persistence.StageCommit) (*models.Record, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record, err := r.GetByID(ctx, commit.OrgID, commit.RecordID)
	if err != nil {
		return nil, err
	}

	if record.Stage != commit.FromStage {
		return nil, persistence.NewStoreError("CommitStageChange", "record", commit.RecordID, persistence.ErrStageConflict)
	}

	record.Stage = commit.ToStage

	if len(commit.Fields) > 0 && record.Data == nil {
		record.Data = make(map[string]models.FieldValue, len(commit.Fields))
	}

	for field, value := range commit.Fields {
		record.Data[field] = value
	}

	record.UpdatedAt = commit.At

	err = r.store.write("records", record.ID, record)
	if err != nil {
		return nil, err
	}

	err = r.appendHistory(&models.StageHistoryEntry{
		ID:        uuid.New().String(),
		OrgID:     commit.OrgID,
		RecordID:  commit.RecordID,
		FromStage: commit.FromStage,
		ToStage:   commit.ToStage,
		Reason:    commit.Reason,
		ActorID:   commit.ActorID,
		At:        commit.At,
	})
	if err != nil {
		return nil, err
	}

	err = r.appendAudit(&models.AuditEntry{
		ID:       uuid.New().String(),
		OrgID:    commit.OrgID,
		RecordID: commit.RecordID,
		Action:   "stage_change",
		ActorID:  commit.ActorID,
		Details: map[string]any{
			"from_stage": commit.FromStage,
			"to_stage":   commit.ToStage,
			"reason":     commit.Reason,
		},
		At: commit.At,
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *RecordRepository) ApplyFields(ctx context.Context, orgID, recordID string, fields map[string]models.FieldValue) (*models.Record, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	record, err := r.GetByID(ctx, orgID, recordID)
	if err != nil {
		return nil, err
	}

	if record.Data == nil {
		record.Data = make(map[string]models.FieldValue, len(fields))
	}

	for field, value := range fields {
		record.Data[field] = value
	}

	record.UpdatedAt = time.Now().UTC()

	err = r.store.write("records", record.ID, record)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *RecordRepository) History(ctx context.Context, orgID, recordID string) ([]*models.StageHistoryEntry, error) {
	var entries []*models.StageHistoryEntry

	err := r.store.read("history", recordID, &entries, nil)
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.StageHistoryEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.OrgID == orgID {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

func (r *RecordRepository) appendHistory(entry *models.StageHistoryEntry) error {
	var entries []*models.StageHistoryEntry

	err := r.store.read("history", entry.RecordID, &entries, nil)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	return r.store.write("history", entry.RecordID, entries)
}

func (r *RecordRepository) appendAudit(entry *models.AuditEntry) error {
	var entries []*models.AuditEntry

	err := r.store.read("audit", entry.RecordID, &entries, nil)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	return r.store.write("audit", entry.RecordID, entries)
}
