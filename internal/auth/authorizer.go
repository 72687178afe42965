package auth

import (
	"strings"

	"github.com/frahmantamala/credential-vault/internal"
)

// Requirement describes what a route needs. Roles is only consulted by the legacy role-name gate.
type Requirement struct {
	Permission string
	Roles      []string
}

// Authorizer decides whether a resolved principal satisfies a requirement.
// Implementations hold no mutable state and are safe for concurrent use.
type Authorizer interface {
	Authorize(principal *internal.Principal, req Requirement) bool
	Name() string
}

// Authorize is the permission-key gate: case-insensitive membership of required in granted.
func Authorize(granted []string, required string) bool {
	required = strings.TrimSpace(required)
	if required == "" {
		return false
	}
	for _, g := range granted {
		if strings.EqualFold(strings.TrimSpace(g), required) {
			return true
		}
	}
	return false
}

type PermissionAuthorizer struct{}

func (PermissionAuthorizer) Authorize(principal *internal.Principal, req Requirement) bool {
	if principal == nil {
		return false
	}
	return Authorize(principal.Permissions, req.Permission)
}

func (PermissionAuthorizer) Name() string { return "permission-key" }

// RoleNameAuthorizer is the legacy compatibility gate. Requirements without role names fall back
// to the permission-key gate.
type RoleNameAuthorizer struct {
	Fallback Authorizer
}

func (a RoleNameAuthorizer) Authorize(principal *internal.Principal, req Requirement) bool {
	if principal == nil {
		return false
	}
	if len(req.Roles) == 0 {
		return a.Fallback != nil && a.Fallback.Authorize(principal, req)
	}
	for _, role := range req.Roles {
		if strings.EqualFold(principal.RoleName, role) {
			return true
		}
	}
	return false
}

func (RoleNameAuthorizer) Name() string { return "role-name" }

// NewAuthorizer picks the gate implementation; legacy turns on role-name checks.
func NewAuthorizer(legacy bool) Authorizer {
	if legacy {
		return RoleNameAuthorizer{Fallback: PermissionAuthorizer{}}
	}
	return PermissionAuthorizer{}
}
