// Package enrollmentdraft implements the create_enrollment_draft automation
// action.
package enrollmentdraft

import (
	"context"
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
	return string(models.ActionCreateEnrollmentDraft)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "object",
				"description": "Seed fields for the enrollment draft. String values support templating.",
			},
		},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	fields, _ := config["fields"].(map[string]any)

	return &Action{fields: fields}, nil
}

type Action struct {
	fields map[string]any
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	rendered := make(map[string]any, len(a.fields))

	for key, raw := range a.fields {
		value := raw

		if str, ok := raw.(string); ok {
			out, err := template.RenderWithContext(str, actx)
			if err != nil {
				return nil, err
			}

			value = out
		}

		rendered[key] = value
	}

	fields, err := models.FieldMapFrom(rendered)
	if err != nil {
		return nil, err
	}

	draftID, err := collab.Enrollments.CreateDraft(ctx, actx.OrgID, actx.Record.ID, fields)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Created enrollment draft", "record_id", actx.Record.ID, "draft_id", draftID)

	return map[string]any{"draft_id": draftID}, nil
}
