// Package events defines the event contracts published after committed
// record mutations and automation runs.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/models"
)

type EventType string

const Topic = "pipewise.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RecordStageChangedEvent EventType = "record.stage.changed"
	RecordCreatedEvent      EventType = "record.created"
	RecordUpdatedEvent      EventType = "record.updated"

	AutomationRunCompletedEvent EventType = "automation.run.completed"
	AutomationRunFailedEvent    EventType = "automation.run.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	OrgID     string         `json:"org_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, orgID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		OrgID:     orgID,
	}
}

// RecordStageChanged is published after a committed stage transition. The
// previous and updated snapshots let subscribers evaluate changed_to
// conditions without re-reading storage.
type RecordStageChanged struct {
	BaseEvent

	ModuleID  string         `json:"module_id"`
	RecordID  string         `json:"record_id"`
	FromStage string         `json:"from_stage"`
	ToStage   string         `json:"to_stage"`
	ActorID   string         `json:"actor_id"`
	Previous  *models.Record `json:"previous,omitempty"`
	Record    *models.Record `json:"record"`
}

func (e RecordStageChanged) GetType() EventType {
	return RecordStageChangedEvent
}

type RecordCreated struct {
	BaseEvent

	ModuleID string         `json:"module_id"`
	RecordID string         `json:"record_id"`
	ActorID  string         `json:"actor_id"`
	Record   *models.Record `json:"record"`
}

func (e RecordCreated) GetType() EventType {
	return RecordCreatedEvent
}

type RecordUpdated struct {
	BaseEvent

	ModuleID string         `json:"module_id"`
	RecordID string         `json:"record_id"`
	ActorID  string         `json:"actor_id"`
	Previous *models.Record `json:"previous,omitempty"`
	Record   *models.Record `json:"record"`
}

func (e RecordUpdated) GetType() EventType {
	return RecordUpdatedEvent
}

type AutomationRunCompleted struct {
	BaseEvent

	RunID      string `json:"run_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
}

func (e AutomationRunCompleted) GetType() EventType {
	return AutomationRunCompletedEvent
}

type AutomationRunFailed struct {
	BaseEvent

	RunID      string `json:"run_id"`
	WorkflowID string `json:"workflow_id,omitempty"`
	RecordID   string `json:"record_id,omitempty"`
	Error      string `json:"error"`
}

func (e AutomationRunFailed) GetType() EventType {
	return AutomationRunFailedEvent
}
