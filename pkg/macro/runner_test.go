package macro

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/automation"
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

func newTestRunner(t *testing.T) (*Runner, *file.Persistence, *collab.Memory) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(addnote.NewFactory())

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

	engine := automation.NewEngine(slog.Default(), store, reg, collaborators)
	runner := NewRunner(slog.Default(), store, engine)

	record := &models.Record{
		ID:       "rec-1",
		OrgID:    "org-1",
		ModuleID: "deals",
		Stage:    "proposal",
		Data:     map[string]models.FieldValue{},
	}
	require.NoError(t, store.RecordRepository().Save(t.Context(), record))

	macro := &models.Macro{
		ID:           "mac-1",
		OrgID:        "org-1",
		ModuleID:     "deals",
		Name:         "log follow-up note",
		AllowedRoles: []models.Role{models.RoleAdmin, models.RoleManager},
		Actions: []models.WorkflowAction{
			{ID: "a1", Type: models.ActionAddNote,
				Config: map[string]any{"body": "followed up"}, Order: 1},
		},
	}
	require.NoError(t, store.MacroRepository().Save(t.Context(), macro))

	return runner, store, memory
}

func TestRunner_Run(t *testing.T) {
	runner, store, memory := newTestRunner(t)

	run, err := runner.Run(t.Context(), Input{
		OrgID:    "org-1",
		MacroID:  "mac-1",
		RecordID: "rec-1",
		ActorID:  "user-1",
		Role:     models.RoleManager,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, "mac-1", run.MacroID)
	require.Len(t, run.ActionsExecuted, 1)
	assert.Equal(t, models.ActionResultSucceeded, run.ActionsExecuted[0].Status)
	assert.Equal(t, 1, memory.Snapshot()["notes"])

	stored, err := store.RunRepository().GetByID(t.Context(), "org-1", run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, stored.Status)
}

func TestRunner_Run_RoleDenied(t *testing.T) {
	runner, store, memory := newTestRunner(t)

	_, err := runner.Run(t.Context(), Input{
		OrgID:    "org-1",
		MacroID:  "mac-1",
		RecordID: "rec-1",
		ActorID:  "user-2",
		Role:     models.RoleRep,
	})
	assert.ErrorIs(t, err, ErrRoleDenied)

	assert.Equal(t, 0, memory.Snapshot()["notes"])

	runs, err := store.RunRepository().List(t.Context(), "org-1", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunner_Run_DryRun(t *testing.T) {
	runner, store, memory := newTestRunner(t)

	run, err := runner.Run(t.Context(), Input{
		OrgID:    "org-1",
		MacroID:  "mac-1",
		RecordID: "rec-1",
		ActorID:  "user-1",
		Role:     models.RoleAdmin,
		DryRun:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusDryRun, run.Status)
	require.Len(t, run.ActionsExecuted, 1)
	assert.Equal(t, models.ActionResultSucceeded, run.ActionsExecuted[0].Status)

	assert.Equal(t, 0, memory.Snapshot()["notes"])

	runs, err := store.RunRepository().List(t.Context(), "org-1", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
