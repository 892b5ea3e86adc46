package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleAdmin, PermDelete, true},
		{RoleAdmin, PermFinancial, true},
		{RoleManager, PermFinancial, true},
		{RoleManager, PermDelete, false},
		{RoleDispatch, PermWrite, true},
		{RoleDispatch, PermFinancial, false},
		{Role("guest"), PermRead, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Can(tc.role, tc.perm), "%s/%s", tc.role, tc.perm)
	}
	assert.True(t, Can(RoleManager, PermRead, PermWrite))
	assert.False(t, Can(RoleDispatch, PermRead, PermFinancial))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestPermissionsReturnsCopy(t *testing.T) {
	perms := Permissions(RoleDispatch)
	perms[0] = PermDelete
	assert.False(t, Can(RoleDispatch, PermDelete))
}
