package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Can(t *testing.T) {
	assert.True(t, RoleAdmin.Can(CapTransitionExecute))
	assert.True(t, RoleRep.Can(CapTransitionExecute))
	assert.False(t, RoleReadOnly.Can(CapTransitionExecute))

	assert.True(t, RoleManager.Can(CapApprovalResolve))
	assert.False(t, RoleRep.Can(CapApprovalResolve))

	assert.True(t, RoleReadOnly.Can(CapTransitionView))
	assert.False(t, RoleSupport.Can(CapWorkflowManage))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("crm_manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleAllowed(t *testing.T) {
	// Empty allowed list admits any role.
	assert.True(t, RoleAllowed(RoleReadOnly, nil))

	allowed := []Role{RoleAdmin, RoleManager}
	assert.True(t, RoleAllowed(RoleManager, allowed))
	assert.False(t, RoleAllowed(RoleRep, allowed))
}
