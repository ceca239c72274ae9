// Package createtask implements the create_task automation action.
package createtask

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
	return string(models.ActionCreateTask)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Task title. Supports templating.",
			},
			"due_at": map[string]any{
				"type":        "string",
				"description": "RFC 3339 due timestamp or a template producing one.",
			},
			"owner_id": map[string]any{
				"type": "string",
			},
		},
		"required": []string{"title"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	title, _ := config["title"].(string)
	if title == "" {
		return nil, errors.New("create_task requires a title")
	}

	dueAt, _ := config["due_at"].(string)
	ownerID, _ := config["owner_id"].(string)

	return &Action{title: title, dueAt: dueAt, ownerID: ownerID}, nil
}

type Action struct {
	title   string
	dueAt   string
	ownerID string
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	title, err := template.RenderString(a.title, actx)
	if err != nil {
		return nil, err
	}

	ownerID := a.ownerID
	if ownerID == "" {
		ownerID = actx.Record.OwnerID
	}

	taskID, err := collab.Tasks.CreateTask(ctx, actx.OrgID, protocol.Task{
		RecordID: actx.Record.ID,
		Title:    title,
		DueAt:    a.dueAt,
		OwnerID:  ownerID,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Created task", "record_id", actx.Record.ID, "task_id", taskID)

	return map[string]any{"task_id": taskID, "title": title}, nil
}
