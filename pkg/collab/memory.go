package collab

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/protocol"
)

// Note is a stored record annotation.
type Note struct {
	ID       string
	RecordID string
	Body     string
	AuthorID string
}

// CadenceOp records one cadence start/stop request.
type CadenceOp struct {
	RecordID  string
	CadenceID string
	Stopped   bool
}

// Draft is a created enrollment draft.
type Draft struct {
	ID       string
	RecordID string
	Fields   map[string]models.FieldValue
}

// Memory implements the external collaborator contracts in process. It backs
// tests and single-process deployments where the real task/notification
// systems are not wired.
type Memory struct {
	mu sync.Mutex

	Tasks         []protocol.Task
	Activities    []protocol.Activity
	Notes         []Note
	Notifications []protocol.Notification
	CadenceOps    []CadenceOp
	Drafts        []Draft
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) CreateTask(_ context.Context, _ string, task protocol.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Tasks = append(m.Tasks, task)

	return uuid.New().String(), nil
}

func (m *Memory) CreateActivity(_ context.Context, _ string, activity protocol.Activity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Activities = append(m.Activities, activity)

	return uuid.New().String(), nil
}

func (m *Memory) AddNote(_ context.Context, _ string, recordID, body, authorID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	note := Note{
		ID:       uuid.New().String(),
		RecordID: recordID,
		Body:     body,
		AuthorID: authorID,
	}
	m.Notes = append(m.Notes, note)

	return note.ID, nil
}

func (m *Memory) Notify(_ context.Context, _ string, notification protocol.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Notifications = append(m.Notifications, notification)

	return nil
}

func (m *Memory) StartCadence(_ context.Context, _ string, recordID, cadenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CadenceOps = append(m.CadenceOps, CadenceOp{RecordID: recordID, CadenceID: cadenceID})

	return nil
}

func (m *Memory) StopCadence(_ context.Context, _ string, recordID, cadenceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CadenceOps = append(m.CadenceOps, CadenceOp{RecordID: recordID, CadenceID: cadenceID, Stopped: true})

	return nil
}

func (m *Memory) CreateDraft(_ context.Context, _ string, recordID string, fields map[string]models.FieldValue) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := Draft{
		ID:       uuid.New().String(),
		RecordID: recordID,
		Fields:   fields,
	}
	m.Drafts = append(m.Drafts, draft)

	return draft.ID, nil
}

// Snapshot returns counts per effect type, used by tests to diff state
// around dry runs.
func (m *Memory) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return map[string]int{
		"tasks":         len(m.Tasks),
		"activities":    len(m.Activities),
		"notes":         len(m.Notes),
		"notifications": len(m.Notifications),
		"cadence_ops":   len(m.CadenceOps),
		"drafts":        len(m.Drafts),
	}
}
