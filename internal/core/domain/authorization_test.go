package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllows(t *testing.T) {
	labSample := Scope{SpaceCode: "LAB", ProjectCode: "P1"}
	otherSpace := Scope{SpaceCode: "OTHER"}

	tests := []struct {
		name        string
		assignments []RoleAssignment
		scope       Scope
		capability  Capability
		want        bool
	}{
		{"instance admin purges anywhere", []RoleAssignment{{Role: RoleAdmin, Level: RoleLevelInstance}}, otherSpace, CapabilityPurge, true},
		{"space power user deletes in space", []RoleAssignment{{Role: RolePowerUser, Level: RoleLevelSpace, Scope: "LAB"}}, labSample, CapabilityDelete, true},
		{"space power user cannot delete elsewhere", []RoleAssignment{{Role: RolePowerUser, Level: RoleLevelSpace, Scope: "LAB"}}, otherSpace, CapabilityDelete, false},
		{"space power user cannot purge", []RoleAssignment{{Role: RolePowerUser, Level: RoleLevelSpace, Scope: "LAB"}}, labSample, CapabilityPurge, false},
		{"user cannot delete", []RoleAssignment{{Role: RoleUser, Level: RoleLevelInstance}}, labSample, CapabilityDelete, false},
		{"observer reads", []RoleAssignment{{Role: RoleObserver, Level: RoleLevelSpace, Scope: "LAB"}}, labSample, CapabilityRead, true},
		{"project role matches its project", []RoleAssignment{{Role: RolePowerUser, Level: RoleLevelProject, Scope: "LAB/P1"}}, labSample, CapabilityRevert, true},
		{"project role does not cover the space", []RoleAssignment{{Role: RolePowerUser, Level: RoleLevelProject, Scope: "LAB/P1"}}, Scope{SpaceCode: "LAB"}, CapabilityDelete, false},
		{"no assignments", nil, labSample, CapabilityRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allows(tt.assignments, tt.scope, tt.capability))
		})
	}
}

func TestParseRoleAssignments(t *testing.T) {
	got, err := ParseRoleAssignments("INSTANCE_ADMIN, space_power_user:lab ,PROJECT_OBSERVER:LAB/P1")
	require.NoError(t, err)
	assert.Equal(t, []RoleAssignment{
		{Role: RoleAdmin, Level: RoleLevelInstance},
		{Role: RolePowerUser, Level: RoleLevelSpace, Scope: "LAB"},
		{Role: RoleObserver, Level: RoleLevelProject, Scope: "LAB/P1"},
	}, got)
}

func TestParseRoleAssignment_Invalid(t *testing.T) {
	for _, in := range []string{"ADMIN", "INSTANCE_ADMIN:LAB", "SPACE_USER", "PROJECT_USER:LAB", "GALAXY_ADMIN", "SPACE_WIZARD:LAB"} {
		_, err := ParseRoleAssignment(in)
		assert.Error(t, err, in)
	}
}

func TestIsInstanceAdmin(t *testing.T) {
	assert.True(t, IsInstanceAdmin([]RoleAssignment{{Role: RoleAdmin, Level: RoleLevelInstance}}))
	assert.False(t, IsInstanceAdmin([]RoleAssignment{{Role: RoleAdmin, Level: RoleLevelSpace, Scope: "LAB"}}))
}
