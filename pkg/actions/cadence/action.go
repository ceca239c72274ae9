// Package cadence implements the start_cadence and stop_cadence automation
// actions. Both share one action type parameterized by direction.
package cadence

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/protocol"
)

type Factory struct {
	stop bool
}

// NewStartFactory creates the factory for start_cadence.
func NewStartFactory() *Factory {
	return &Factory{stop: false}
}

// NewStopFactory creates the factory for stop_cadence.
func NewStopFactory() *Factory {
	return &Factory{stop: true}
}

func (f *Factory) ID() string {
	if f.stop {
		return string(models.ActionStopCadence)
	}

	return string(models.ActionStartCadence)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cadence_id": map[string]any{"type": "string"},
		},
		"required": []string{"cadence_id"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	cadenceID, _ := config["cadence_id"].(string)
	if cadenceID == "" {
		return nil, errors.New("cadence actions require cadence_id")
	}

	return &Action{cadenceID: cadenceID, stop: f.stop}, nil
}

type Action struct {
	cadenceID string
	stop      bool
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	var err error

	if a.stop {
		err = collab.Cadences.StopCadence(ctx, actx.OrgID, actx.Record.ID, a.cadenceID)
	} else {
		err = collab.Cadences.StartCadence(ctx, actx.OrgID, actx.Record.ID, a.cadenceID)
	}

	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Cadence action applied",
		"record_id", actx.Record.ID, "cadence_id", a.cadenceID, "stopped", a.stop)

	return map[string]any{"cadence_id": a.cadenceID, "stopped": a.stop}, nil
}
