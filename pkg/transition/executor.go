// Package transition orchestrates stage changes: validation, atomic commit,
// approval deferral, and post-commit automation dispatch.
package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pipewise/pipewise/pkg/approval"
	"github.com/pipewise/pipewise/pkg/blueprint"
	"github.com/pipewise/pipewise/pkg/eventbus"
	"github.com/pipewise/pipewise/pkg/events"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/rules"
)

// Actor identifies who is attempting the transition.
type Actor struct {
	ID   string
	Role models.Role
}

// Request is one candidate stage change.
type Request struct {
	OrgID    string
	RecordID string
	ToStage  string
	Reason   string

	// Fields are payload updates applied together with the stage write and
	// counted toward required-field checks.
	Fields map[string]models.FieldValue

	Actor Actor
}

// Outcome is the terminal state of one transition attempt.
type Outcome string

const (
	OutcomeCommitted        Outcome = "committed"
	OutcomeBlocked          Outcome = "blocked"
	OutcomeAwaitingApproval Outcome = "awaiting_approval"
)

// Result carries every gating outcome together so callers can render one
// coherent explanation instead of discovering blockers one round trip at a
// time.
type Result struct {
	Outcome Outcome `json:"outcome"`

	Allowed          bool `json:"allowed"`
	Valid            bool `json:"valid"`
	RequiresReason   bool `json:"requires_reason"`
	RequiresApproval bool `json:"requires_approval"`

	MissingFields []blueprint.MissingField `json:"missing_fields,omitempty"`
	RuleErrors    []models.RuleError       `json:"rule_errors,omitempty"`
	Error         string                   `json:"error,omitempty"`

	Record     *models.Record `json:"record,omitempty"`
	ApprovalID string         `json:"approval_id,omitempty"`
}

// Committed reports whether the stage change was applied.
func (r *Result) Committed() bool {
	return r.Outcome == OutcomeCommitted
}

// Executor runs the transition state machine. Validation strictly precedes
// commit; commit strictly precedes dispatch; dispatch never blocks or fails
// the caller.
type Executor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	rules       *rules.Engine
	approvals   *approval.Service
	publisher   eventbus.EventPublisher
}

func NewExecutor(logger *slog.Logger, persist persistence.Persistence, ruleEngine *rules.Engine, approvals *approval.Service, publisher eventbus.EventPublisher) *Executor {
	return &Executor{
		logger:      logger.With("module", "transition"),
		persistence: persist,
		rules:       ruleEngine,
		approvals:   approvals,
		publisher:   publisher,
	}
}

// Execute runs the full state machine for one candidate transition.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	record, err := e.persistence.RecordRepository().GetByID(ctx, req.OrgID, req.RecordID)
	if err != nil {
		return nil, err
	}

	check, err := e.validate(ctx, record, req)
	if err != nil {
		return nil, err
	}

	if check.Outcome == OutcomeBlocked {
		return check.Result, nil
	}

	if check.requiresApproval {
		return e.deferForApproval(ctx, record, req)
	}

	return e.commit(ctx, record, req)
}

// Check validates a candidate transition without executing it. The result
// always embeds validity; an impossible transition is a normal answer, not
// an error.
func (e *Executor) Check(ctx context.Context, req Request) (*Result, error) {
	record, err := e.persistence.RecordRepository().GetByID(ctx, req.OrgID, req.RecordID)
	if err != nil {
		return nil, err
	}

	check, err := e.validate(ctx, record, req)
	if err != nil {
		return nil, err
	}

	if check.Outcome != OutcomeBlocked {
		if check.requiresApproval {
			check.Outcome = OutcomeAwaitingApproval
		} else {
			check.Outcome = OutcomeCommitted
		}
	}

	return check.Result, nil
}

// AvailableTransitions lists the edges leaving the record's current stage
// that the role may take. A module without a blueprint has no enumerable
// edges; every target is permitted.
func (e *Executor) AvailableTransitions(ctx context.Context, orgID, recordID string, role models.Role) ([]models.Transition, error) {
	record, err := e.persistence.RecordRepository().GetByID(ctx, orgID, recordID)
	if err != nil {
		return nil, err
	}

	bp, err := e.persistence.BlueprintRepository().GetByModule(ctx, orgID, record.ModuleID)
	if err != nil {
		return nil, err
	}

	return blueprint.TransitionsFrom(bp, record.Stage, role), nil
}

// validated augments Result with the approval gate that Execute consumes
// before deciding the terminal outcome.
type validated struct {
	*Result

	requiresApproval bool
}

func (e *Executor) validate(ctx context.Context, record *models.Record, req Request) (*validated, error) {
	bp, err := e.persistence.BlueprintRepository().GetByModule(ctx, req.OrgID, record.ModuleID)
	if err != nil {
		return nil, err
	}

	structural := blueprint.Validate(bp, record, req.ToStage, blueprint.Options{
		Role:    req.Actor.Role,
		Pending: req.Fields,
		Reason:  req.Reason,
	})

	if !structural.Allowed {
		return &validated{Result: &Result{
			Outcome:          OutcomeBlocked,
			Allowed:          false,
			RequiresApproval: structural.RequiresApproval,
			Error:            structural.Error,
		}}, nil
	}

	ruleSet, err := e.persistence.RuleRepository().ListByModule(ctx, req.OrgID, record.ModuleID)
	if err != nil {
		return nil, err
	}

	ruleResult := e.rules.Evaluate(ctx, record, ruleSet, rules.EvalContext{
		Trigger:   models.RuleTriggerStageTransition,
		FromStage: record.Stage,
		ToStage:   req.ToStage,
		Pending:   req.Fields,
	})

	result := &Result{
		Allowed:          true,
		Valid:            structural.Valid && ruleResult.Valid,
		RequiresReason:   structural.RequiresReason,
		RequiresApproval: structural.RequiresApproval,
		MissingFields:    structural.MissingFields,
		RuleErrors:       ruleResult.Errors,
	}

	if !result.Valid || result.RequiresReason {
		result.Outcome = OutcomeBlocked

		if result.RequiresReason {
			result.Error = "a reason is required for this stage change"
		}
	}

	return &validated{
		Result:           result,
		requiresApproval: structural.RequiresApproval,
	}, nil
}

func (e *Executor) deferForApproval(ctx context.Context, record *models.Record, req Request) (*Result, error) {
	created, err := e.approvals.CreateForTransition(ctx, approval.CreateInput{
		OrgID:    req.OrgID,
		ModuleID: record.ModuleID,
		RecordID: record.ID,
		Trigger:  models.RuleTriggerStageTransition,
		Payload: models.ActionPayload{
			Kind:      models.ActionKindStageChange,
			StageFrom: record.Stage,
			StageTo:   req.ToStage,
			Reason:    req.Reason,
			Fields:    req.Fields,
		},
		Context: map[string]any{
			"requested_role": string(req.Actor.Role),
		},
		RequestedBy: req.Actor.ID,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Outcome:          OutcomeAwaitingApproval,
		Allowed:          true,
		Valid:            true,
		RequiresApproval: true,
		ApprovalID:       created.Request.ID,
	}, nil
}

func (e *Executor) commit(ctx context.Context, record *models.Record, req Request) (*Result, error) {
	previous := record.Clone()

	updated, err := e.persistence.RecordRepository().CommitStageChange(ctx, persistence.StageCommit{
		OrgID:     req.OrgID,
		RecordID:  record.ID,
		FromStage: record.Stage,
		ToStage:   req.ToStage,
		Reason:    req.Reason,
		ActorID:   req.Actor.ID,
		Fields:    req.Fields,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "Stage transition committed",
		"record_id", record.ID, "from", previous.Stage, "to", updated.Stage, "actor", req.Actor.ID)

	e.dispatch(previous, updated, req.Actor.ID)

	return &Result{
		Outcome: OutcomeCommitted,
		Allowed: true,
		Valid:   true,
		Record:  updated,
	}, nil
}

// dispatch publishes the stage-change event for the automation engine on a
// separate goroutine. The commit already succeeded: a dispatch failure is
// logged and dropped, never surfaced to the caller. A process crash here
// loses the event; the manual retry path compensates.
func (e *Executor) dispatch(previous, updated *models.Record, actorID string) {
	event := events.RecordStageChanged{
		BaseEvent: events.NewBaseEvent(events.RecordStageChangedEvent, updated.OrgID),
		ModuleID:  updated.ModuleID,
		RecordID:  updated.ID,
		FromStage: previous.Stage,
		ToStage:   updated.Stage,
		ActorID:   actorID,
		Previous:  previous,
		Record:    updated,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := e.publisher.Publish(ctx, updated.OrgID, event)
		if err != nil {
			e.logger.Error("Failed to publish stage change event",
				"record_id", updated.ID, "error", err)
		}
	}()
}

// MoveStage lets automation actions re-enter the executor. Automation runs
// with administrative authority; blueprint edges and rules still apply.
func (e *Executor) MoveStage(ctx context.Context, orgID, recordID, toStage, reason, actorID string) error {
	result, err := e.Execute(ctx, Request{
		OrgID:    orgID,
		RecordID: recordID,
		ToStage:  toStage,
		Reason:   reason,
		Actor:    Actor{ID: actorID, Role: models.RoleAdmin},
	})
	if err != nil {
		return err
	}

	switch result.Outcome {
	case OutcomeCommitted:
		return nil
	case OutcomeAwaitingApproval:
		return fmt.Errorf("stage change to %q deferred for approval", toStage)
	default:
		return fmt.Errorf("stage change to %q blocked: %s", toStage, result.Error)
	}
}

// CommitApproved replays an approved payload through the regular commit
// machinery. Replay is a dispatch on the payload kind; the optimistic stage
// check still applies, so a record that moved since the request was created
// fails the replay instead of silently overwriting.
func (e *Executor) CommitApproved(ctx context.Context, request *models.ApprovalRequest) (*models.Record, error) {
	if request.Payload.Version != models.ActionPayloadVersion {
		return nil, fmt.Errorf("unsupported action payload version %d", request.Payload.Version)
	}

	switch request.Payload.Kind {
	case models.ActionKindStageChange:
		record, err := e.persistence.RecordRepository().GetByID(ctx, request.OrgID, request.RecordID)
		if err != nil {
			return nil, err
		}

		previous := record.Clone()

		updated, err := e.persistence.RecordRepository().CommitStageChange(ctx, persistence.StageCommit{
			OrgID:     request.OrgID,
			RecordID:  request.RecordID,
			FromStage: request.Payload.StageFrom,
			ToStage:   request.Payload.StageTo,
			Reason:    request.Payload.Reason,
			ActorID:   request.RequestedBy,
			Fields:    request.Payload.Fields,
			At:        time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}

		e.dispatch(previous, updated, request.RequestedBy)

		return updated, nil

	case models.ActionKindUpdate, models.ActionKindFieldUpdate:
		return e.persistence.RecordRepository().ApplyFields(ctx, request.OrgID, request.RecordID, request.Payload.Fields)

	case models.ActionKindDelete:
		// Record deletion is owned by the external CRUD collaborator.
		return nil, fmt.Errorf("delete payloads are not replayable by the engine")

	default:
		return nil, fmt.Errorf("unknown action payload kind %q", request.Payload.Kind)
	}
}
