package file

import (
	"context"
	"sort"
	"time"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

// ApprovalRepository stores approval requests. Resolve serializes behind the
// store mutex so exactly one resolver wins.
type ApprovalRepository struct {
	store *Persistence
}

func (r *ApprovalRepository) GetByID(ctx context.Context, orgID, id string) (*models.ApprovalRequest, error) {
	request := &models.ApprovalRequest{}

	err := r.store.read("approvals", id, request, persistence.ErrApprovalNotFound)
	if err != nil {
		return nil, err
	}

	if request.OrgID != orgID {
		return nil, persistence.ErrApprovalNotFound
	}

	return request, nil
}

func (r *ApprovalRepository) Save(ctx context.Context, request *models.ApprovalRequest) error {
	return r.store.write("approvals", request.ID, request)
}

func (r *ApprovalRepository) Resolve(ctx context.Context, orgID, id string, decision models.ApprovalStatus, resolverID string, at time.Time) (*models.ApprovalRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, err := r.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if request.Resolved() {
		return nil, persistence.NewStoreError("Resolve", "approval", id, persistence.ErrApprovalConflict)
	}

	request.Status = decision
	request.ResolvedBy = resolverID
	request.ResolvedAt = &at

	err = r.store.write("approvals", request.ID, request)
	if err != nil {
		return nil, err
	}

	return request, nil
}

func (r *ApprovalRepository) ListPending(ctx context.Context, orgID string) ([]*models.ApprovalRequest, error) {
	requests, err := readAll[models.ApprovalRequest](r.store, "approvals")
	if err != nil {
		return nil, err
	}

	pending := make([]*models.ApprovalRequest, 0, len(requests))

	for _, request := range requests {
		if request.OrgID == orgID && request.Status == models.ApprovalStatusPending {
			pending = append(pending, request)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	return pending, nil
}
