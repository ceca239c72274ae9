package collab

import (
	"context"
	"sync"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/protocol"
)

// Effect is one side effect a dry run would have committed.
type Effect struct {
	Kind    string         `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
}

// Recorder implements every collaborator contract without performing any
// side effect. Dry runs execute against it so the actions-executed
// projection matches a live run while external state stays untouched.
type Recorder struct {
	mu      sync.Mutex
	effects []Effect
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

// Collaborators returns a full collaborator set backed by this recorder.
func (r *Recorder) Collaborators() protocol.Collaborators {
	return protocol.Collaborators{
		Records:     r,
		Stages:      r,
		Tasks:       r,
		Activities:  r,
		Notes:       r,
		Notifier:    r,
		Cadences:    r,
		Enrollments: r,
	}
}

// Effects returns the recorded would-be side effects.
func (r *Recorder) Effects() []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()

	effects := make([]Effect, len(r.effects))
	copy(effects, r.effects)

	return effects
}

func (r *Recorder) record(kind string, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.effects = append(r.effects, Effect{Kind: kind, Details: details})
}

func (r *Recorder) UpdateFields(_ context.Context, _ string, recordID string, fields map[string]models.FieldValue) (*models.Record, error) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	r.record("update_fields", map[string]any{"record_id": recordID, "fields": keys})

	return nil, nil
}

func (r *Recorder) AssignOwner(_ context.Context, _ string, recordID, ownerID string) error {
	r.record("assign_owner", map[string]any{"record_id": recordID, "owner_id": ownerID})

	return nil
}

func (r *Recorder) MoveStage(_ context.Context, _ string, recordID, toStage, _ string, _ string) error {
	r.record("move_stage", map[string]any{"record_id": recordID, "to_stage": toStage})

	return nil
}

func (r *Recorder) CreateTask(_ context.Context, _ string, task protocol.Task) (string, error) {
	r.record("create_task", map[string]any{"record_id": task.RecordID, "title": task.Title})

	return "dry-run", nil
}

func (r *Recorder) CreateActivity(_ context.Context, _ string, activity protocol.Activity) (string, error) {
	r.record("create_activity", map[string]any{"record_id": activity.RecordID, "kind": activity.Kind})

	return "dry-run", nil
}

func (r *Recorder) AddNote(_ context.Context, _ string, recordID, _ string, _ string) (string, error) {
	r.record("add_note", map[string]any{"record_id": recordID})

	return "dry-run", nil
}

func (r *Recorder) Notify(_ context.Context, _ string, notification protocol.Notification) error {
	r.record("notify", map[string]any{"channel": notification.Channel, "recipients": len(notification.Recipients)})

	return nil
}

func (r *Recorder) StartCadence(_ context.Context, _ string, recordID, cadenceID string) error {
	r.record("start_cadence", map[string]any{"record_id": recordID, "cadence_id": cadenceID})

	return nil
}

func (r *Recorder) StopCadence(_ context.Context, _ string, recordID, cadenceID string) error {
	r.record("stop_cadence", map[string]any{"record_id": recordID, "cadence_id": cadenceID})

	return nil
}

func (r *Recorder) CreateDraft(_ context.Context, _ string, recordID string, fields map[string]models.FieldValue) (string, error) {
	r.record("create_enrollment_draft", map[string]any{"record_id": recordID, "fields": len(fields)})

	return "dry-run", nil
}
