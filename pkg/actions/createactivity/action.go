// Package createactivity implements the create_activity automation action.
package createactivity

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
	return string(models.ActionCreateActivity)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"kind": map[string]any{
				"type": "string",
				"enum": []string{"call", "meeting", "email", "demo", "other"},
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Activity subject. Supports templating.",
			},
		},
		"required": []string{"kind", "subject"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	kind, _ := config["kind"].(string)
	subject, _ := config["subject"].(string)

	if kind == "" || subject == "" {
		return nil, errors.New("create_activity requires kind and subject")
	}

	return &Action{kind: kind, subject: subject}, nil
}

type Action struct {
	kind    string
	subject string
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	subject, err := template.RenderString(a.subject, actx)
	if err != nil {
		return nil, err
	}

	activityID, err := collab.Activities.CreateActivity(ctx, actx.OrgID, protocol.Activity{
		RecordID: actx.Record.ID,
		Kind:     a.kind,
		Subject:  subject,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Created activity", "record_id", actx.Record.ID, "activity_id", activityID)

	return map[string]any{"activity_id": activityID}, nil
}
