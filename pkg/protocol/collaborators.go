package protocol

import (
	"context"

	"github.com/pipewise/pipewise/pkg/models"
)

// Task is a follow-up work item created for a record.
type Task struct {
	RecordID string         `json:"record_id"`
	Title    string         `json:"title"`
	DueAt    string         `json:"due_at,omitempty"`
	OwnerID  string         `json:"owner_id,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Activity is a logged touchpoint (call, meeting, email) on a record.
type Activity struct {
	RecordID string         `json:"record_id"`
	Kind     string         `json:"kind"`
	Subject  string         `json:"subject"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Notification is an outbound message request; delivery is owned by an
// external collaborator.
type Notification struct {
	Channel    string         `json:"channel"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RecordMutator is the narrow contract onto the external record-CRUD system.
type RecordMutator interface {
	UpdateFields(ctx context.Context, orgID, recordID string, fields map[string]models.FieldValue) (*models.Record, error)
	AssignOwner(ctx context.Context, orgID, recordID, ownerID string) error
}

// StageMover lets the move_stage action re-enter the transition executor.
type StageMover interface {
	MoveStage(ctx context.Context, orgID, recordID, toStage, reason, actorID string) error
}

type TaskCreator interface {
	CreateTask(ctx context.Context, orgID string, task Task) (string, error)
}

type ActivityLogger interface {
	CreateActivity(ctx context.Context, orgID string, activity Activity) (string, error)
}

type NoteCreator interface {
	AddNote(ctx context.Context, orgID, recordID, body, authorID string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, orgID string, notification Notification) error
}

type CadenceController interface {
	StartCadence(ctx context.Context, orgID, recordID, cadenceID string) error
	StopCadence(ctx context.Context, orgID, recordID, cadenceID string) error
}

type EnrollmentDrafter interface {
	CreateDraft(ctx context.Context, orgID, recordID string, fields map[string]models.FieldValue) (string, error)
}

// Collaborators bundles every external contract an action may touch. The
// engine swaps in a recording set for dry runs.
type Collaborators struct {
	Records     RecordMutator
	Stages      StageMover
	Tasks       TaskCreator
	Activities  ActivityLogger
	Notes       NoteCreator
	Notifier    Notifier
	Cadences    CadenceController
	Enrollments EnrollmentDrafter
}
