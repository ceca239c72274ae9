// Package automation matches workflows against record events and executes
// their ordered action lists, recording one AutomationRun per attempt.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pipewise/pipewise/pkg/collab"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/otelhelper"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/protocol"
	"github.com/pipewise/pipewise/pkg/registry"
)

// runTimeout bounds one workflow or macro run. A run that exceeds it is
// marked failed with a timeout error instead of hanging.
const runTimeout = 60 * time.Second

var ErrRetryNotFailed = errors.New("only failed runs can be retried")

// Engine executes workflows and macro action lists.
type Engine struct {
	logger        *slog.Logger
	persistence   persistence.Persistence
	registry      *registry.Registry
	collaborators protocol.Collaborators
}

func NewEngine(logger *slog.Logger, persist persistence.Persistence, reg *registry.Registry, collaborators protocol.Collaborators) *Engine {
	return &Engine{
		logger:        logger.With("module", "automation"),
		persistence:   persist,
		registry:      reg,
		collaborators: collaborators,
	}
}

// MatchInput describes one record event to dispatch workflows for.
type MatchInput struct {
	OrgID    string
	ModuleID string
	Record   *models.Record
	Previous *models.Record
	Trigger  models.TriggerType
	ActorID  string
	DryRun   bool
}

// ExecuteMatching runs every enabled workflow whose module, trigger and
// conditions match the event, in ascending priority order. Workflows run
// independently: one failing run never prevents the next from executing.
// Zero matches returns an empty slice.
func (e *Engine) ExecuteMatching(ctx context.Context, input MatchInput) ([]*models.AutomationRun, error) {
	workflows, err := e.persistence.WorkflowRepository().ListEnabled(ctx, input.OrgID, input.ModuleID, input.Trigger)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.AutomationRun, 0, len(workflows))

	for _, workflow := range workflows {
		matched, err := e.conditionsMatch(ctx, workflow, input.Record, input.Previous)
		if err != nil {
			e.logger.WarnContext(ctx, "Workflow condition evaluation failed",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		if !matched {
			continue
		}

		run, err := e.ExecuteWorkflow(ctx, ExecuteInput{
			OrgID:    input.OrgID,
			Workflow: workflow,
			Record:   input.Record,
			Previous: input.Previous,
			Trigger:  input.Trigger,
			ActorID:  input.ActorID,
			DryRun:   input.DryRun,
		})
		if err != nil {
			e.logger.ErrorContext(ctx, "Workflow execution failed",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		runs = append(runs, run)
	}

	return runs, nil
}

func (e *Engine) conditionsMatch(_ context.Context, workflow *models.Workflow, record, previous *models.Record) (bool, error) {
	if len(workflow.Conditions) == 0 {
		return true, nil
	}

	if record == nil {
		return false, nil
	}

	var previousData map[string]models.FieldValue
	if previous != nil {
		previousData = previous.Data
	}

	return models.EvaluateAll(workflow.Conditions, record.Data, previousData)
}

// ExecuteInput describes one workflow execution attempt.
type ExecuteInput struct {
	OrgID    string
	Workflow *models.Workflow
	Record   *models.Record
	Previous *models.Record
	Trigger  models.TriggerType
	ActorID  string
	DryRun   bool

	// IdempotencyKey links explicit retries back to the original run.
	IdempotencyKey string
}

// ExecuteWorkflow runs the workflow's actions strictly in order. Actions
// continue on error, but any failed action marks the whole run failed. Dry
// runs produce the same actions-executed projection against recording
// collaborators and are never persisted.
func (e *Engine) ExecuteWorkflow(ctx context.Context, input ExecuteInput) (*models.AutomationRun, error) {
	ctx, span := otel.Tracer("pipewise/automation").Start(ctx, "workflow.run")
	defer span.End()

	run := &models.AutomationRun{
		ID:             uuid.New().String(),
		OrgID:          input.OrgID,
		WorkflowID:     input.Workflow.ID,
		Trigger:        input.Trigger,
		Status:         models.RunStatusRunning,
		IdempotencyKey: input.IdempotencyKey,
		StartedAt:      time.Now().UTC(),
	}

	if input.Record != nil {
		run.RecordID = input.Record.ID
	}

	span.SetAttributes(
		attribute.String(otelhelper.OrgIDKey, input.OrgID),
		attribute.String(otelhelper.WorkflowIDKey, input.Workflow.ID),
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.TriggerKey, string(input.Trigger)),
		attribute.Bool(otelhelper.DryRunKey, input.DryRun),
	)

	if input.DryRun {
		run.Status = models.RunStatusDryRun
	} else {
		err := e.persistence.RunRepository().Save(ctx, run)
		if err != nil {
			return nil, err
		}
	}

	results, failed := e.runActions(ctx, actionRun{
		orgID:    input.OrgID,
		record:   input.Record,
		previous: input.Previous,
		trigger:  input.Trigger,
		actorID:  input.ActorID,
		dryRun:   input.DryRun,
		actions:  input.Workflow.OrderedActions(),
	})

	run.ActionsExecuted = results

	if !input.DryRun {
		if failed {
			run.Status = models.RunStatusFailed
			run.Error = firstError(results)
		} else {
			run.Status = models.RunStatusSucceeded
		}

		now := time.Now().UTC()
		run.FinishedAt = &now

		err := e.persistence.RunRepository().Save(ctx, run)
		if err != nil {
			return nil, err
		}
	}

	e.logger.InfoContext(ctx, "Workflow run finished",
		"workflow_id", input.Workflow.ID, "run_id", run.ID,
		"status", run.Status, "actions", len(results))

	return run, nil
}

// Retry re-executes a failed run's workflow immediately with a fresh
// idempotency key derived from the original run, so each explicit retry is
// independently traceable and two retries never collide as the same attempt.
func (e *Engine) Retry(ctx context.Context, orgID, runID, actorID string) (*models.AutomationRun, error) {
	original, err := e.persistence.RunRepository().GetByID(ctx, orgID, runID)
	if err != nil {
		return nil, err
	}

	if original.Status != models.RunStatusFailed {
		return nil, ErrRetryNotFailed
	}

	workflow, err := e.persistence.WorkflowRepository().GetByID(ctx, orgID, original.WorkflowID)
	if err != nil {
		return nil, err
	}

	var record *models.Record

	if original.RecordID != "" {
		record, err = e.persistence.RecordRepository().GetByID(ctx, orgID, original.RecordID)
		if err != nil {
			return nil, err
		}
	}

	return e.ExecuteWorkflow(ctx, ExecuteInput{
		OrgID:          orgID,
		Workflow:       workflow,
		Record:         record,
		Trigger:        original.Trigger,
		ActorID:        actorID,
		IdempotencyKey: models.RetryIdempotencyKey(original.ID, time.Now()),
	})
}

// actionRun bundles everything one ordered action list needs.
type actionRun struct {
	orgID    string
	record   *models.Record
	previous *models.Record
	trigger  models.TriggerType
	actorID  string
	dryRun   bool
	actions  []models.WorkflowAction
}

// RunActionList executes an already-ordered action list with workflow
// semantics. The macro runner shares this path so macros and workflows stay
// behaviorally identical.
func (e *Engine) RunActionList(ctx context.Context, orgID string, record *models.Record, actorID string, dryRun bool, actions []models.WorkflowAction) ([]models.ActionResult, bool) {
	return e.runActions(ctx, actionRun{
		orgID:   orgID,
		record:  record,
		trigger: models.TriggerManual,
		actorID: actorID,
		dryRun:  dryRun,
		actions: actions,
	})
}

func (e *Engine) runActions(ctx context.Context, run actionRun) ([]models.ActionResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	collaborators := e.collaborators
	if run.dryRun {
		collaborators = collab.NewRecorder().Collaborators()
	}

	actx := protocol.ActionContext{
		OrgID:    run.orgID,
		Record:   run.record,
		Previous: run.previous,
		Trigger:  run.trigger,
		ActorID:  run.actorID,
		DryRun:   run.dryRun,
		Results:  make(map[string]any),
	}

	results := make([]models.ActionResult, 0, len(run.actions))
	failed := false

	for _, step := range run.actions {
		result := models.ActionResult{ActionID: step.ID, Type: step.Type}

		if ctx.Err() != nil {
			result.Status = models.ActionResultFailed
			result.Error = fmt.Sprintf("run timed out before action executed: %v", ctx.Err())
			results = append(results, result)
			failed = true

			continue
		}

		started := time.Now()

		output, err := e.executeAction(ctx, step, actx, collaborators)

		result.DurationMs = time.Since(started).Milliseconds()

		if err != nil {
			result.Status = models.ActionResultFailed
			result.Error = err.Error()
			failed = true

			e.logger.WarnContext(ctx, "Action failed",
				"action_id", step.ID, "type", step.Type, "error", err)
		} else {
			result.Status = models.ActionResultSucceeded
			result.Output = output
			actx.Results[step.ID] = output
		}

		results = append(results, result)
	}

	return results, failed
}

func (e *Engine) executeAction(ctx context.Context, step models.WorkflowAction, actx protocol.ActionContext, collaborators protocol.Collaborators) (map[string]any, error) {
	// Scheduled workflows can fire without a pinned record. Every built-in
	// action operates on a record, so a record-less run fails the action
	// instead of letting it dereference nil.
	if actx.Record == nil {
		return nil, errors.New("action requires a record and the run has none")
	}

	action, err := e.registry.CreateAction(step.Type, step.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to create action: %w", err)
	}

	return action.Execute(ctx, actx, collaborators, e.logger)
}

func firstError(results []models.ActionResult) string {
	for _, result := range results {
		if result.Status == models.ActionResultFailed {
			return fmt.Sprintf("action %s failed: %s", result.ActionID, result.Error)
		}
	}

	return ""
}
