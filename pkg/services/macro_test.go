package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/persistence/file"
	"github.com/pipewise/pipewise/pkg/registry"
)

func newMacroService(t *testing.T) (*Macro, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(addnote.NewFactory())

	return NewMacro(store, reg), store
}

func validMacro() *models.Macro {
	return &models.Macro{
		OrgID:        "org-1",
		ModuleID:     "deals",
		Name:         "log a note",
		AllowedRoles: []models.Role{models.RoleManager},
		Actions: []models.WorkflowAction{
			{Type: models.ActionAddNote, Config: map[string]any{"body": "noted"}, Order: 1},
		},
	}
}

func TestMacroService_Create(t *testing.T) {
	service, store := newMacroService(t)

	created, err := service.Create(t.Context(), validMacro())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.Actions[0].ID)

	stored, err := store.MacroRepository().GetByID(t.Context(), "org-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "log a note", stored.Name)
}

func TestMacroService_Create_Validation(t *testing.T) {
	service, _ := newMacroService(t)

	missingName := validMacro()
	missingName.Name = ""
	_, err := service.Create(t.Context(), missingName)
	assert.ErrorIs(t, err, ErrNameRequired)

	noActions := validMacro()
	noActions.Actions = nil
	_, err = service.Create(t.Context(), noActions)
	assert.ErrorIs(t, err, ErrActionsRequired)

	badRole := validMacro()
	badRole.AllowedRoles = []models.Role{"superuser"}
	_, err = service.Create(t.Context(), badRole)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	badConfig := validMacro()
	badConfig.Actions = []models.WorkflowAction{
		{Type: models.ActionAddNote, Config: map[string]any{}, Order: 1},
	}
	_, err = service.Create(t.Context(), badConfig)
	assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
}

func TestMacroService_Update(t *testing.T) {
	service, _ := newMacroService(t)

	created, err := service.Create(t.Context(), validMacro())
	require.NoError(t, err)

	roles := []models.Role{models.RoleAdmin}

	updated, err := service.Update(t.Context(), "org-1", created.ID, MacroPatch{
		AllowedRoles: &roles,
	})
	require.NoError(t, err)

	assert.Equal(t, []models.Role{models.RoleAdmin}, updated.AllowedRoles)
	assert.Equal(t, "log a note", updated.Name)
}

func TestMacroService_Delete(t *testing.T) {
	service, store := newMacroService(t)

	created, err := service.Create(t.Context(), validMacro())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), "org-1", created.ID))

	_, err = store.MacroRepository().GetByID(t.Context(), "org-1", created.ID)
	assert.True(t, persistence.IsNotFound(err))
}
