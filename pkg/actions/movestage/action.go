// Package movestage implements the move_stage automation action. It re-enters
// the transition executor, so blueprint guards and validation rules apply to
// automated moves exactly as to manual ones.
package movestage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return string(models.ActionMoveStage)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to_stage": map[string]any{"type": "string"},
			"reason":   map[string]any{"type": "string"},
		},
		"required": []string{"to_stage"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	toStage, _ := config["to_stage"].(string)
	if toStage == "" {
		return nil, errors.New("move_stage requires to_stage")
	}

	reason, _ := config["reason"].(string)

	return &Action{toStage: toStage, reason: reason}, nil
}

type Action struct {
	toStage string
	reason  string
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	err := collab.Stages.MoveStage(ctx, actx.OrgID, actx.Record.ID, a.toStage, a.reason, actx.ActorID)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Moved record stage", "record_id", actx.Record.ID, "to_stage", a.toStage)

	return map[string]any{"to_stage": a.toStage}, nil
}
