package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/persistence/file"
	"github.com/pipewise/pipewise/pkg/registry"
)

func newWorkflowService(t *testing.T) (*Workflow, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(addnote.NewFactory())

	return NewWorkflow(store, reg), store
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		OrgID:    "org-1",
		ModuleID: "deals",
		Name:     "note on stage change",
		Trigger:  models.TriggerOnStageChange,
		Enabled:  true,
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddNote, Config: map[string]any{"body": "moved"}, Order: 1},
		},
	}
}

func TestWorkflowService_Create(t *testing.T) {
	service, store := newWorkflowService(t)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Actions[0].ID)

	stored, err := store.WorkflowRepository().GetByID(t.Context(), "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "note on stage change", stored.Name)
}

func TestWorkflowService_Create_Validation(t *testing.T) {
	service, _ := newWorkflowService(t)

	tests := []struct {
		name    string
		mutate  func(w *models.Workflow)
		wantErr error
	}{
		{"missing name", func(w *models.Workflow) { w.Name = "" }, ErrNameRequired},
		{"missing module", func(w *models.Workflow) { w.ModuleID = "" }, ErrModuleRequired},
		{"missing trigger", func(w *models.Workflow) { w.Trigger = "" }, ErrTriggerRequired},
		{"unknown trigger", func(w *models.Workflow) { w.Trigger = "on_vibes" }, ErrInvalidTrigger},
		{"no actions", func(w *models.Workflow) { w.Actions = nil }, ErrActionsRequired},
		{"duplicate order", func(w *models.Workflow) {
			w.Actions = append(w.Actions, models.WorkflowAction{
				Type: models.ActionAddNote, Config: map[string]any{"body": "again"}, Order: 1,
			})
		}, ErrInvalidActionOrder},
		{"scheduled without cron", func(w *models.Workflow) {
			w.Trigger = models.TriggerScheduled
		}, ErrInvalidCron},
		{"scheduled with bad cron", func(w *models.Workflow) {
			w.Trigger = models.TriggerScheduled
			w.TriggerConfig = map[string]any{"cron": "not a cron"}
		}, ErrInvalidCron},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			workflow := validWorkflow()
			tc.mutate(workflow)

			_, err := service.Create(t.Context(), workflow)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestWorkflowService_Create_UnknownActionType(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := validWorkflow()
	workflow.Actions = []models.WorkflowAction{
		{Type: "launch_rocket", Config: map[string]any{}, Order: 1},
	}

	_, err := service.Create(t.Context(), workflow)
	assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
}

func TestWorkflowService_Create_InvalidActionConfig(t *testing.T) {
	service, _ := newWorkflowService(t)

	workflow := validWorkflow()
	workflow.Actions = []models.WorkflowAction{
		{Type: models.ActionAddNote, Config: map[string]any{}, Order: 1},
	}

	_, err := service.Create(t.Context(), workflow)
	assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
}

func TestWorkflowService_Create_ScheduledSyncsSchedule(t *testing.T) {
	service, store := newWorkflowService(t)

	workflow := validWorkflow()
	workflow.Trigger = models.TriggerScheduled
	workflow.TriggerConfig = map[string]any{"cron": "*/5 * * * *"}

	created, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	due, err := store.ScheduleRepository().ListDue(t.Context(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "schedule-"+created.ID, due[0].ID)
	assert.Equal(t, created.ID, due[0].WorkflowID)
}

func TestWorkflowService_Update(t *testing.T) {
	service, store := newWorkflowService(t)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	name := "renamed"
	enabled := false
	priority := 7

	updated, err := service.Update(t.Context(), "org-1", created.ID, WorkflowPatch{
		Name:     &name,
		Enabled:  &enabled,
		Priority: &priority,
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Name)
	assert.False(t, updated.Enabled)
	assert.Equal(t, 7, updated.Priority)

	// Untouched fields survive the patch.
	assert.Equal(t, models.TriggerOnStageChange, updated.Trigger)
	require.Len(t, updated.Actions, 1)

	stored, err := store.WorkflowRepository().GetByID(t.Context(), "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
}

func TestWorkflowService_Update_RetriggerRemovesSchedule(t *testing.T) {
	service, store := newWorkflowService(t)

	workflow := validWorkflow()
	workflow.Trigger = models.TriggerScheduled
	workflow.TriggerConfig = map[string]any{"cron": "*/5 * * * *"}

	created, err := service.Create(t.Context(), workflow)
	require.NoError(t, err)

	trigger := models.TriggerManual

	_, err = service.Update(t.Context(), "org-1", created.ID, WorkflowPatch{Trigger: &trigger})
	require.NoError(t, err)

	due, err := store.ScheduleRepository().ListDue(t.Context(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestWorkflowService_Delete(t *testing.T) {
	service, store := newWorkflowService(t)

	created, err := service.Create(t.Context(), validWorkflow())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), "org-1", created.ID))

	_, err = store.WorkflowRepository().GetByID(t.Context(), "org-1", created.ID)
	assert.True(t, persistence.IsNotFound(err))
}
