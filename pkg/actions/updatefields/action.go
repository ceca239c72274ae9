// Package updatefields implements the update_fields automation action.
package updatefields

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
	return string(models.ActionUpdateFields)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "object",
				"description": "Field key to new value. String values support templating.",
			},
		},
		"required": []string{"fields"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	fields, _ := config["fields"].(map[string]any)
	if len(fields) == 0 {
		return nil, errors.New("update_fields requires a non-empty fields map")
	}

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

	updated, err := collab.Records.UpdateFields(ctx, actx.OrgID, actx.Record.ID, fields)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	logger.InfoContext(ctx, "Updated record fields", "record_id", actx.Record.ID, "fields", keys)

	if updated != nil {
		actx.Record.Data = updated.Data
	}

	return map[string]any{"updated_fields": keys}, nil
}
