package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanCreate(t *testing.T) {
	tests := []struct {
		creator Role
		target  Role
		want    bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleSheikh, true},
		{RoleAdmin, RoleMasool, true},
		{RoleAdmin, RoleMurabi, true},
		{RoleAdmin, RoleSaalik, true},
		{RoleSheikh, RoleMasool, true},
		{RoleSheikh, RoleMurabi, true},
		{RoleSheikh, RoleSaalik, false},
		{RoleSheikh, RoleSheikh, false},
		{RoleSheikh, RoleAdmin, false},
		{RoleMasool, RoleMurabi, true},
		{RoleMasool, RoleSaalik, true},
		{RoleMasool, RoleMasool, false},
		{RoleMurabi, RoleSaalik, true},
		{RoleMurabi, RoleMurabi, false},
		{RoleSaalik, RoleSaalik, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.creator.CanCreate(tt.target),
			"%s creating %s", tt.creator, tt.target)
	}
}

func TestOutranks(t *testing.T) {
	assert.True(t, RoleAdmin.Outranks(RoleSheikh))
	assert.True(t, RoleSheikh.Outranks(RoleSaalik))
	assert.True(t, RoleMurabi.Outranks(RoleSaalik))
	assert.False(t, RoleSaalik.Outranks(RoleSaalik))
	assert.False(t, RoleMurabi.Outranks(RoleMasool))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("Murabi")
	assert.True(t, ok)
	assert.Equal(t, RoleMurabi, role)

	_, ok = ParseRole("murabi")
	assert.False(t, ok)

	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestSupervisory(t *testing.T) {
	assert.False(t, RoleSaalik.Supervisory())
	for _, role := range []Role{RoleMurabi, RoleMasool, RoleSheikh, RoleAdmin} {
		assert.True(t, role.Supervisory(), string(role))
	}
}
