// Package notify implements the notify automation action.
package notify

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
	return string(models.ActionNotify)
}

func (*Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"channel": map[string]any{
				"type": "string",
				"enum": []string{"email", "sms", "in_app"},
			},
			"recipients": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"subject": map[string]any{"type": "string"},
			"body": map[string]any{
				"type":        "string",
				"description": "Message body. Supports templating.",
			},
		},
		"required": []string{"channel", "recipients", "body"},
	}
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	channel, _ := config["channel"].(string)
	body, _ := config["body"].(string)
	subject, _ := config["subject"].(string)

	rawRecipients, _ := config["recipients"].([]any)

	recipients := make([]string, 0, len(rawRecipients))
	for _, raw := range rawRecipients {
		if recipient, ok := raw.(string); ok {
			recipients = append(recipients, recipient)
		}
	}

	if channel == "" || body == "" || len(recipients) == 0 {
		return nil, errors.New("notify requires channel, recipients and body")
	}

	return &Action{channel: channel, recipients: recipients, subject: subject, body: body}, nil
}

type Action struct {
	channel    string
	recipients []string
	subject    string
	body       string
}

func (a *Action) Execute(ctx context.Context, actx protocol.ActionContext, collab protocol.Collaborators, logger *slog.Logger) (map[string]any, error) {
	body, err := template.RenderString(a.body, actx)
	if err != nil {
		return nil, err
	}

	err = collab.Notifier.Notify(ctx, actx.OrgID, protocol.Notification{
		Channel:    a.channel,
		Recipients: a.recipients,
		Subject:    a.subject,
		Body:       body,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Sent notification",
		"record_id", actx.Record.ID, "channel", a.channel, "recipients", len(a.recipients))

	return map[string]any{"channel": a.channel, "recipients": len(a.recipients)}, nil
}
