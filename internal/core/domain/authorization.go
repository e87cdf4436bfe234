package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RolePowerUser Role = "POWER_USER"
	RoleUser      Role = "USER"
	RoleObserver  Role = "OBSERVER"
)

type RoleLevel string

const (
	RoleLevelInstance RoleLevel = "INSTANCE"
	RoleLevelSpace    RoleLevel = "SPACE"
	RoleLevelProject  RoleLevel = "PROJECT"
)

type Capability string

const (
	CapabilityRead   Capability = "READ"
	CapabilityWrite  Capability = "WRITE"
	CapabilityDelete Capability = "DELETE"
	CapabilityRevert Capability = "REVERT"
	CapabilityPurge  Capability = "PURGE"
	CapabilityFreeze Capability = "FREEZE"
)

// roleCapabilities is a flat capability set per role. Roles do not inherit
// from each other; every capability a role grants is listed explicitly.
var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapabilityRead: true, CapabilityWrite: true, CapabilityDelete: true,
		CapabilityRevert: true, CapabilityPurge: true, CapabilityFreeze: true,
	},
	RolePowerUser: {
		CapabilityRead: true, CapabilityWrite: true, CapabilityDelete: true, CapabilityRevert: true,
	},
	RoleUser: {
		CapabilityRead: true, CapabilityWrite: true,
	},
	RoleObserver: {
		CapabilityRead: true,
	},
}

// Scope is the space/project an entity belongs to.
type Scope struct {
	SpaceCode   string
	ProjectCode string
}

// RoleAssignment grants a role at instance level or on one space or project.
// Scope is empty for INSTANCE, a space code for SPACE and "SPACE/PROJECT" for PROJECT.
type RoleAssignment struct {
	Role  Role      `json:"role"`
	Level RoleLevel `json:"level"`
	Scope string    `json:"scope,omitempty"`
}

func (a RoleAssignment) covers(s Scope) bool {
	switch a.Level {
	case RoleLevelInstance:
		return true
	case RoleLevelSpace:
		return s.SpaceCode != "" && a.Scope == s.SpaceCode
	case RoleLevelProject:
		return s.ProjectCode != "" && a.Scope == s.SpaceCode+"/"+s.ProjectCode
	}
	return false
}

// Allows decides whether any of the assignments grants capability c on scope s.
func Allows(assignments []RoleAssignment, s Scope, c Capability) bool {
	for _, a := range assignments {
		if roleCapabilities[a.Role][c] && a.covers(s) {
			return true
		}
	}
	return false
}

// IsInstanceAdmin reports whether the assignments include an instance-level admin role.
func IsInstanceAdmin(assignments []RoleAssignment) bool {
	for _, a := range assignments {
		if a.Level == RoleLevelInstance && a.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// ParseRoleAssignment parses "LEVEL_ROLE[:scope]", e.g. "INSTANCE_ADMIN",
// "SPACE_POWER_USER:LAB" or "PROJECT_OBSERVER:LAB/P1".
func ParseRoleAssignment(s string) (RoleAssignment, error) {
	s = strings.TrimSpace(s)
	grant, scope, _ := strings.Cut(s, ":")
	level, role, ok := strings.Cut(grant, "_")
	if !ok {
		return RoleAssignment{}, fmt.Errorf("invalid role assignment %q", s)
	}
	a := RoleAssignment{
		Role:  Role(strings.ToUpper(role)),
		Level: RoleLevel(strings.ToUpper(level)),
		Scope: strings.ToUpper(strings.TrimSpace(scope)),
	}
	if _, known := roleCapabilities[a.Role]; !known {
		return RoleAssignment{}, fmt.Errorf("unknown role %q in %q", role, s)
	}
	switch a.Level {
	case RoleLevelInstance:
		if a.Scope != "" {
			return RoleAssignment{}, fmt.Errorf("instance role %q takes no scope", s)
		}
	case RoleLevelSpace:
		if a.Scope == "" || strings.Contains(a.Scope, "/") {
			return RoleAssignment{}, fmt.Errorf("space role %q needs a space code", s)
		}
	case RoleLevelProject:
		if sp, pr, ok := strings.Cut(a.Scope, "/"); !ok || sp == "" || pr == "" {
			return RoleAssignment{}, fmt.Errorf("project role %q needs SPACE/PROJECT", s)
		}
	default:
		return RoleAssignment{}, fmt.Errorf("unknown role level %q in %q", level, s)
	}
	return a, nil
}

// ParseRoleAssignments parses a comma separated list of assignments.
func ParseRoleAssignments(s string) ([]RoleAssignment, error) {
	var out []RoleAssignment
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		a, err := ParseRoleAssignment(part)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
