// Package collab provides collaborator implementations: the persistence-backed
// record mutator, in-memory stand-ins for external systems, and the recording
// set used by dry runs.
package collab

import (
	"context"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// StoreMutator implements protocol.RecordMutator on top of the engine's
// record repository.
type StoreMutator struct {
	records persistence.RecordRepository
}

func NewStoreMutator(records persistence.RecordRepository) *StoreMutator {
	return &StoreMutator{records: records}
}

func (m *StoreMutator) UpdateFields(ctx context.Context, orgID, recordID string, fields map[string]models.FieldValue) (*models.Record, error) {
	return m.records.ApplyFields(ctx, orgID, recordID, fields)
}

func (m *StoreMutator) AssignOwner(ctx context.Context, orgID, recordID, ownerID string) error {
	record, err := m.records.GetByID(ctx, orgID, recordID)
	if err != nil {
		return err
	}

	record.OwnerID = ownerID

	return m.records.Save(ctx, record)
}
