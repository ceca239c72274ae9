// Package protocol defines the contracts between the automation engine, its
// pluggable actions, and the external collaborators actions call out to.
package protocol

import (
	"context"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
)

// ActionContext is the per-run context handed to every action.
type ActionContext struct {
	OrgID   string
	Record  *models.Record
	Previous *models.Record
	Trigger models.TriggerType
	ActorID string

	// DryRun actions must not commit external side effects; the engine
	// substitutes recording collaborators, but actions may also branch on
	// this for logging.
	DryRun bool

	// Results holds outputs of earlier actions in the same run, keyed by
	// action ID.
	Results map[string]any
}

type Action interface {
	Execute(ctx context.Context, actx ActionContext, collab Collaborators, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory creates action instances and describes their configuration.
type ActionFactory interface {
	// ID returns the action type identifier (the workflow action "type").
	ID() string

	// Schema returns the JSON schema for validating action configuration.
	Schema() map[string]any

	Create(config map[string]any) (Action, error)
}
