// Package macro runs manually invoked, role-gated action bundles. Macros
// share the workflow action vocabulary and execution semantics but skip
// trigger and condition matching entirely.
package macro

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/automation"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
)

var ErrRoleDenied = errors.New("role may not run this macro")

type Runner struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *automation.Engine
}

func NewRunner(logger *slog.Logger, persist persistence.Persistence, engine *automation.Engine) *Runner {
	return &Runner{
		logger:      logger.With("module", "macro"),
		persistence: persist,
		engine:      engine,
	}
}

// Input identifies the macro, the target record, and the invoking actor.
type Input struct {
	OrgID   string
	MacroID string
	RecordID string

	ActorID string
	Role    models.Role

	DryRun bool
}

// Run executes the macro's actions in order against the record. The only
// gate is the actor's role against the macro's allowed roles; an empty list
// admits any role.
func (r *Runner) Run(ctx context.Context, input Input) (*models.AutomationRun, error) {
	macro, err := r.persistence.MacroRepository().GetByID(ctx, input.OrgID, input.MacroID)
	if err != nil {
		return nil, err
	}

	if !models.RoleAllowed(input.Role, macro.AllowedRoles) {
		return nil, ErrRoleDenied
	}

	record, err := r.persistence.RecordRepository().GetByID(ctx, input.OrgID, input.RecordID)
	if err != nil {
		return nil, err
	}

	run := &models.AutomationRun{
		ID:        uuid.New().String(),
		OrgID:     input.OrgID,
		MacroID:   macro.ID,
		RecordID:  record.ID,
		Trigger:   models.TriggerManual,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	if input.DryRun {
		run.Status = models.RunStatusDryRun
	} else {
		err = r.persistence.RunRepository().Save(ctx, run)
		if err != nil {
			return nil, err
		}
	}

	results, failed := r.engine.RunActionList(ctx, input.OrgID, record, input.ActorID, input.DryRun, macro.OrderedActions())
	run.ActionsExecuted = results

	if !input.DryRun {
		if failed {
			run.Status = models.RunStatusFailed
		} else {
			run.Status = models.RunStatusSucceeded
		}

		now := time.Now().UTC()
		run.FinishedAt = &now

		err = r.persistence.RunRepository().Save(ctx, run)
		if err != nil {
			return nil, err
		}
	}

	r.logger.InfoContext(ctx, "Macro run finished",
		"macro_id", macro.ID, "run_id", run.ID, "status", run.Status, "actor", input.ActorID)

	return run, nil
}
