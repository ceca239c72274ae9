package registry

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/actions/createtask"
	"github.com/pipewise/pipewise/pkg/models"
)

func newTestRegistry() *Registry {
	reg := NewRegistry(slog.Default())
	reg.RegisterAction(addnote.NewFactory())
	reg.RegisterAction(createtask.NewFactory())

	return reg
}

func TestRegistry_CreateAction(t *testing.T) {
	reg := newTestRegistry()

	action, err := reg.CreateAction(models.ActionAddNote, map[string]any{"body": "hello"})
	require.NoError(t, err)
	assert.NotNil(t, action)

	_, err = reg.CreateAction("launch_rocket", map[string]any{})
	assert.ErrorContains(t, err, "not registered")
}

func TestRegistry_ValidateConfig(t *testing.T) {
	reg := newTestRegistry()

	err := reg.ValidateConfig(models.ActionCreateTask, map[string]any{"title": "call back"})
	assert.NoError(t, err)

	// Required key missing.
	err = reg.ValidateConfig(models.ActionCreateTask, map[string]any{"owner_id": "u-1"})
	assert.ErrorContains(t, err, "title")

	err = reg.ValidateConfig("launch_rocket", map[string]any{})
	assert.ErrorContains(t, err, "not registered")
}

func TestRegistry_ValidateActions(t *testing.T) {
	reg := newTestRegistry()

	err := reg.ValidateActions([]models.WorkflowAction{
		{ID: "a1", Type: models.ActionAddNote, Config: map[string]any{"body": "ok"}, Order: 1},
		{ID: "a2", Type: models.ActionCreateTask, Config: map[string]any{}, Order: 2},
	})
	assert.ErrorContains(t, err, "a2")
}

func TestRegistry_HealthCheck(t *testing.T) {
	reg := NewRegistry(slog.Default())

	_, healthy := reg.HealthCheck()
	assert.False(t, healthy)

	reg.RegisterAction(addnote.NewFactory())

	status, healthy := reg.HealthCheck()
	assert.True(t, healthy)
	assert.Contains(t, status, "1 actions registered")

	assert.Contains(t, reg.AvailableActions(), string(models.ActionAddNote))
}
