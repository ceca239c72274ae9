// Package assignowner implements the assign_owner automation action.
package assignowner

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
	return string(models.ActionAssignOwner)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"owner_id": map[string]any{
				"type":        "string",
				"description": "Profile ID of the new record owner. Supports templating.",
			},
		},
		"required": []string{"owner_id"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	ownerID, _ := config["owner_id"].(string)
	if ownerID == "" {
		return nil, errors.New("assign_owner requires owner_id")
	}

	return &Action{ownerID: ownerID}, nil
}

type Action struct {
	ownerID string
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	ownerID, err := template.RenderString(a.ownerID, actx)
	if err != nil {
		return nil, err
	}

	err = collab.Records.AssignOwner(ctx, actx.OrgID, actx.Record.ID, ownerID)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Assigned record owner", "record_id", actx.Record.ID, "owner_id", ownerID)

	actx.Record.OwnerID = ownerID

	return map[string]any{"owner_id": ownerID}, nil
}
