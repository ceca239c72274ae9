// Package addnote implements the add_note automation action.
package addnote

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/protocol"
	"github.com/pipewise/pipewise/pkg/template"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return string(models.ActionAddNote)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"body": map[string]any{
				"type":        "string",
				"description": "Note body. Supports templating.",
			},
		},
		"required": []string{"body"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	body, _ := config["body"].(string)
	if body == "" {
		return nil, errors.New("add_note requires a body")
	}

	return &Action{body: body}, nil
}

type Action struct {
	body string
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	body, err := template.RenderString(a.body, actx)
	if err != nil {
		return nil, err
	}

	noteID, err := collab.Notes.AddNote(ctx, actx.OrgID, actx.Record.ID, body, actx.ActorID)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Added note", "record_id", actx.Record.ID, "note_id", noteID)

	return map[string]any{"note_id": noteID}, nil
}
