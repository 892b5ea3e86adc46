// Package access is the static role to permission lookup.
package access

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Role names a user role.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleDispatch Role = "dispatch"
)

// Permission names one capability.
type Permission string

const (
	PermRead      Permission = "read"
	PermWrite     Permission = "write"
	PermDelete    Permission = "delete"
	PermFinancial Permission = "financial"
)

// ErrUnknownRole is returned for role names outside the static table.
var ErrUnknownRole = errors.New("unknown role")

var table = map[Role][]Permission{
	RoleAdmin:    {PermRead, PermWrite, PermDelete, PermFinancial},
	RoleManager:  {PermRead, PermWrite, PermFinancial},
	RoleDispatch: {PermRead, PermWrite},
}

// ParseRole matches raw against the known roles, ignoring case.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := table[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Permissions returns a copy of the permissions granted to role.
func Permissions(role Role) []Permission {
	return slices.Clone(table[role])
}

// Can reports whether role holds every permission in perms.
func Can(role Role, perms ...Permission) bool {
	granted, ok := table[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if !slices.Contains(granted, p) {
			return false
		}
	}
	return true
}
