package automation

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/actions/createtask"
	"github.com/pipewise/pipewise/pkg/collab"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence/file"
	"github.com/pipewise/pipewise/pkg/protocol"
	"github.com/pipewise/pipewise/pkg/registry"
)

type nopStageMover struct{}

func (nopStageMover) MoveStage(_ context.Context, _, _, _, _, _ string) error {
	return nil
}

type engineFixture struct {
	engine *Engine
	store  *file.Persistence
	memory *collab.Memory
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(addnote.NewFactory())
	reg.RegisterAction(createtask.NewFactory())

	memory := collab.NewMemory()
	collaborators := protocol.Collaborators{
		Records:     collab.NewStoreMutator(store.RecordRepository()),
		Stages:      nopStageMover{},
		Tasks:       memory,
		Activities:  memory,
		Notes:       memory,
		Notifier:    memory,
		Cadences:    memory,
		Enrollments: memory,
	}

	return &engineFixture{
		engine: NewEngine(slog.Default(), store, reg, collaborators),
		store:  store,
		memory: memory,
	}
}

func noteAction(id, body string) models.WorkflowAction {
	return models.WorkflowAction{
		ID:     id,
		Type:   models.ActionAddNote,
		Config: map[string]any{"body": body},
		Order:  1,
	}
}

func saveWorkflow(t *testing.T, f *engineFixture, workflow *models.Workflow) {
	t.Helper()
	require.NoError(t, f.store.WorkflowRepository().Save(t.Context(), workflow))
}

func dealRecord() *models.Record {
	return &models.Record{
		ID:       "rec-1",
		OrgID:    "org-1",
		ModuleID: "deals",
		Stage:    "proposal",
		Data: map[string]models.FieldValue{
			"amount": models.NumberValue(50000),
		},
	}
}

func TestEngine_ExecuteMatching_PriorityAndConditions(t *testing.T) {
	f := newEngineFixture(t)

	saveWorkflow(t, f, &models.Workflow{
		ID: "wf-late", OrgID: "org-1", ModuleID: "deals", Name: "late note",
		Trigger: models.TriggerOnStageChange, Enabled: true, Priority: 20,
		Actions: []models.WorkflowAction{noteAction("a1", "second")},
	})
	saveWorkflow(t, f, &models.Workflow{
		ID: "wf-early", OrgID: "org-1", ModuleID: "deals", Name: "early note",
		Trigger: models.TriggerOnStageChange, Enabled: true, Priority: 5,
		Actions: []models.WorkflowAction{noteAction("a1", "first")},
	})
	saveWorkflow(t, f, &models.Workflow{
		ID: "wf-filtered", OrgID: "org-1", ModuleID: "deals", Name: "small deals only",
		Trigger: models.TriggerOnStageChange, Enabled: true, Priority: 1,
		Conditions: []models.Condition{
			{Field: "amount", Operator: models.OpLessThan, Value: 100},
		},
		Actions: []models.WorkflowAction{noteAction("a1", "never")},
	})

	runs, err := f.engine.ExecuteMatching(t.Context(), MatchInput{
		OrgID:    "org-1",
		ModuleID: "deals",
		Record:   dealRecord(),
		Trigger:  models.TriggerOnStageChange,
		ActorID:  "user-1",
	})
	require.NoError(t, err)

	require.Len(t, runs, 2)
	assert.Equal(t, "wf-early", runs[0].WorkflowID)
	assert.Equal(t, "wf-late", runs[1].WorkflowID)
	assert.Equal(t, models.RunStatusSucceeded, runs[0].Status)

	assert.Equal(t, 2, f.memory.Snapshot()["notes"])
}

func TestEngine_ExecuteMatching_NoMatches(t *testing.T) {
	f := newEngineFixture(t)

	runs, err := f.engine.ExecuteMatching(t.Context(), MatchInput{
		OrgID:    "org-1",
		ModuleID: "deals",
		Record:   dealRecord(),
		Trigger:  models.TriggerOnCreate,
		ActorID:  "user-1",
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestEngine_ExecuteWorkflow_ContinuesPastFailedAction(t *testing.T) {
	f := newEngineFixture(t)

	workflow := &models.Workflow{
		ID: "wf-1", OrgID: "org-1", ModuleID: "deals", Name: "mixed",
		Trigger: models.TriggerManual, Enabled: true,
		Actions: []models.WorkflowAction{
			{ID: "a1", Type: models.ActionAddNote, Config: map[string]any{}, Order: 1},
			{ID: "a2", Type: models.ActionAddNote, Config: map[string]any{"body": "still ran"}, Order: 2},
		},
	}
	saveWorkflow(t, f, workflow)

	run, err := f.engine.ExecuteWorkflow(t.Context(), ExecuteInput{
		OrgID:    "org-1",
		Workflow: workflow,
		Record:   dealRecord(),
		Trigger:  models.TriggerManual,
		ActorID:  "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "action a1 failed")
	require.Len(t, run.ActionsExecuted, 2)
	assert.Equal(t, models.ActionResultFailed, run.ActionsExecuted[0].Status)
	assert.Equal(t, models.ActionResultSucceeded, run.ActionsExecuted[1].Status)

	// The action after the failure really executed.
	assert.Equal(t, 1, f.memory.Snapshot()["notes"])

	stored, err := f.store.RunRepository().GetByID(t.Context(), "org-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestEngine_ExecuteWorkflow_DryRun(t *testing.T) {
	f := newEngineFixture(t)

	workflow := &models.Workflow{
		ID: "wf-1", OrgID: "org-1", ModuleID: "deals", Name: "dry",
		Trigger: models.TriggerManual, Enabled: true,
		Actions: []models.WorkflowAction{
			noteAction("a1", "preview"),
			{ID: "a2", Type: models.ActionCreateTask,
				Config: map[string]any{"title": "follow up"}, Order: 2},
		},
	}
	saveWorkflow(t, f, workflow)

	before := f.memory.Snapshot()

	run, err := f.engine.ExecuteWorkflow(t.Context(), ExecuteInput{
		OrgID:    "org-1",
		Workflow: workflow,
		Record:   dealRecord(),
		Trigger:  models.TriggerManual,
		ActorID:  "user-1",
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusDryRun, run.Status)
	require.Len(t, run.ActionsExecuted, 2)
	assert.Equal(t, models.ActionResultSucceeded, run.ActionsExecuted[0].Status)
	assert.Equal(t, models.ActionResultSucceeded, run.ActionsExecuted[1].Status)

	// No side effects and no persisted run.
	assert.Equal(t, before, f.memory.Snapshot())

	stored, err := f.store.RunRepository().List(t.Context(), "org-1", 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEngine_ExecuteWorkflow_RecordlessRunFailsActions(t *testing.T) {
	f := newEngineFixture(t)

	workflow := &models.Workflow{
		ID: "wf-1", OrgID: "org-1", ModuleID: "deals", Name: "recordless",
		Trigger: models.TriggerScheduled, Enabled: true,
		Actions: []models.WorkflowAction{noteAction("a1", "orphan note")},
	}
	saveWorkflow(t, f, workflow)

	// Scheduled workflows can fire without a pinned record. Record-touching
	// actions fail the run instead of panicking.
	run, err := f.engine.ExecuteWorkflow(t.Context(), ExecuteInput{
		OrgID:    "org-1",
		Workflow: workflow,
		Trigger:  models.TriggerScheduled,
		ActorID:  "scheduler",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusFailed, run.Status)
	require.Len(t, run.ActionsExecuted, 1)
	assert.Equal(t, models.ActionResultFailed, run.ActionsExecuted[0].Status)
	assert.Contains(t, run.ActionsExecuted[0].Error, "requires a record")

	assert.Equal(t, 0, f.memory.Snapshot()["notes"])
}

func TestEngine_Retry(t *testing.T) {
	f := newEngineFixture(t)

	workflow := &models.Workflow{
		ID: "wf-1", OrgID: "org-1", ModuleID: "deals", Name: "flaky",
		Trigger: models.TriggerManual, Enabled: true,
		Actions: []models.WorkflowAction{
			{ID: "a1", Type: models.ActionAddNote, Config: map[string]any{}, Order: 1},
		},
	}
	saveWorkflow(t, f, workflow)
	require.NoError(t, f.store.RecordRepository().Save(t.Context(), dealRecord()))

	failed, err := f.engine.ExecuteWorkflow(t.Context(), ExecuteInput{
		OrgID:    "org-1",
		Workflow: workflow,
		Record:   dealRecord(),
		Trigger:  models.TriggerManual,
		ActorID:  "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.RunStatusFailed, failed.Status)

	retried, err := f.engine.Retry(t.Context(), "org-1", failed.ID, "user-2")
	require.NoError(t, err)

	assert.NotEqual(t, failed.ID, retried.ID)
	assert.True(t, strings.HasPrefix(retried.IdempotencyKey, "retry:"+failed.ID+":"),
		"unexpected idempotency key %q", retried.IdempotencyKey)

	succeeded := &models.AutomationRun{
		ID: "run-ok", OrgID: "org-1", WorkflowID: "wf-1",
		Trigger: models.TriggerManual, Status: models.RunStatusSucceeded,
	}
	require.NoError(t, f.store.RunRepository().Save(t.Context(), succeeded))

	_, err = f.engine.Retry(t.Context(), "org-1", "run-ok", "user-2")
	assert.ErrorIs(t, err, ErrRetryNotFailed)
}
