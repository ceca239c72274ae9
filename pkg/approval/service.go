// Package approval creates and resolves approval requests: deferred,
// replayable record mutations awaiting human sign-off.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/rules"
)

// Committer replays an approved payload through the regular commit path so
// replayed mutations behave exactly like direct ones. Implemented by the
// transition executor, wired after construction to keep the dependency
// one-way.
type Committer interface {
	CommitApproved(ctx context.Context, request *models.ApprovalRequest) (*models.Record, error)
}

type Service struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	rules       *rules.Engine
	committer   Committer
}

func NewService(logger *slog.Logger, persist persistence.Persistence, ruleEngine *rules.Engine) *Service {
	return &Service{
		logger:      logger.With("module", "approval"),
		persistence: persist,
		rules:       ruleEngine,
	}
}

// SetCommitter wires the replay path. Must be called before Resolve.
func (s *Service) SetCommitter(committer Committer) {
	s.committer = committer
}

// CreateInput describes a deferred mutation to persist for sign-off.
type CreateInput struct {
	OrgID     string
	ModuleID  string
	RecordID  string
	ProcessID string
	RuleID    string

	Trigger models.RuleTrigger
	Payload models.ActionPayload
	Context map[string]any

	RequestedBy string
}

// CreateResult distinguishes "request created" from "no gate matched"; the
// latter is a normal outcome letting the caller proceed ungated.
type CreateResult struct {
	RequiresApproval bool
	Request          *models.ApprovalRequest
}

// Create persists an approval request. When no process ID is supplied, the
// configured approval processes are consulted first; if none matches the
// candidate mutation, no request is created and RequiresApproval is false.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	record, err := s.persistence.RecordRepository().GetByID(ctx, input.OrgID, input.RecordID)
	if err != nil {
		return nil, err
	}

	if input.ProcessID == "" {
		processes, err := s.persistence.RuleRepository().ListApprovalProcesses(ctx, input.OrgID, input.ModuleID)
		if err != nil {
			return nil, err
		}

		process := s.rules.MatchApprovalProcess(ctx, record, processes, rules.EvalContext{
			Trigger:   input.Trigger,
			FromStage: input.Payload.StageFrom,
			ToStage:   input.Payload.StageTo,
			Pending:   input.Payload.Fields,
		})
		if process == nil {
			return &CreateResult{RequiresApproval: false}, nil
		}

		input.ProcessID = process.ID
	}

	return s.create(ctx, record, input)
}

// CreateForTransition persists an approval request mandated by a blueprint
// transition. The transition itself is the gate, so the request is created
// whether or not a configured process also matches; a matching process is
// attached for traceability.
func (s *Service) CreateForTransition(ctx context.Context, input CreateInput) (*CreateResult, error) {
	record, err := s.persistence.RecordRepository().GetByID(ctx, input.OrgID, input.RecordID)
	if err != nil {
		return nil, err
	}

	if input.ProcessID == "" {
		processes, err := s.persistence.RuleRepository().ListApprovalProcesses(ctx, input.OrgID, input.ModuleID)
		if err != nil {
			return nil, err
		}

		process := s.rules.MatchApprovalProcess(ctx, record, processes, rules.EvalContext{
			Trigger:   input.Trigger,
			FromStage: input.Payload.StageFrom,
			ToStage:   input.Payload.StageTo,
			Pending:   input.Payload.Fields,
		})
		if process != nil {
			input.ProcessID = process.ID
		}
	}

	return s.create(ctx, record, input)
}

func (s *Service) create(ctx context.Context, record *models.Record, input CreateInput) (*CreateResult, error) {
	input.Payload.Version = models.ActionPayloadVersion

	request := &models.ApprovalRequest{
		ID:          uuid.New().String(),
		OrgID:       input.OrgID,
		ModuleID:    input.ModuleID,
		RecordID:    record.ID,
		ProcessID:   input.ProcessID,
		RuleID:      input.RuleID,
		Trigger:     input.Trigger,
		Payload:     input.Payload,
		Context:     input.Context,
		Status:      models.ApprovalStatusPending,
		RequestedBy: input.RequestedBy,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.persistence.ApprovalRepository().Save(ctx, request)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Approval request created",
		"approval_id", request.ID, "record_id", record.ID, "kind", request.Payload.Kind)

	return &CreateResult{RequiresApproval: true, Request: request}, nil
}

// ResolveResult reports the terminal request and, for approvals, the record
// state after replay.
type ResolveResult struct {
	Request *models.ApprovalRequest
	Record  *models.Record
}

// Resolve moves a pending request to a terminal state. The conditional
// update wins or loses the race first; only the winner replays the stored
// payload, so a concurrent resolver gets a conflict instead of a double
// apply. Rejection never mutates the record.
func (s *Service) Resolve(ctx context.Context, orgID, approvalID string, decision models.ApprovalStatus, resolverID string) (*ResolveResult, error) {
	if decision != models.ApprovalStatusApproved && decision != models.ApprovalStatusRejected {
		return nil, fmt.Errorf("invalid approval decision %q", decision)
	}

	request, err := s.persistence.ApprovalRepository().Resolve(ctx, orgID, approvalID, decision, resolverID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if decision == models.ApprovalStatusRejected {
		s.logger.InfoContext(ctx, "Approval request rejected",
			"approval_id", approvalID, "resolver", resolverID)

		return &ResolveResult{Request: request}, nil
	}

	if s.committer == nil {
		return nil, fmt.Errorf("approval service has no committer wired")
	}

	record, err := s.committer.CommitApproved(ctx, request)
	if err != nil {
		s.logger.ErrorContext(ctx, "Approved payload replay failed",
			"approval_id", approvalID, "record_id", request.RecordID, "error", err)

		return nil, fmt.Errorf("failed to replay approved payload: %w", err)
	}

	s.logger.InfoContext(ctx, "Approval request approved and replayed",
		"approval_id", approvalID, "record_id", request.RecordID, "resolver", resolverID)

	return &ResolveResult{Request: request, Record: record}, nil
}

// ListPending returns the organization's open requests, oldest first.
func (s *Service) ListPending(ctx context.Context, orgID string) ([]*models.ApprovalRequest, error) {
	return s.persistence.ApprovalRepository().ListPending(ctx, orgID)
}

// Get returns one request within the organization.
func (s *Service) Get(ctx context.Context, orgID, approvalID string) (*models.ApprovalRequest, error) {
	return s.persistence.ApprovalRepository().GetByID(ctx, orgID, approvalID)
}
