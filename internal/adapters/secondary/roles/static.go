// Package roles resolves a user's role assignments from configuration or
// from a Kubernetes ConfigMap.
package roles

import (
	"context"
	"fmt"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// Static serves assignments parsed once at startup.
type Static struct {
	byUser map[string][]domain.RoleAssignment
}

var _ ports.RoleResolver = (*Static)(nil)

// NewStatic parses assignment lists keyed by user id.
func NewStatic(raw map[string]string) (*Static, error) {
	byUser := make(map[string][]domain.RoleAssignment, len(raw))
	for user, list := range raw {
		assignments, err := domain.ParseRoleAssignments(list)
		if err != nil {
			return nil, fmt.Errorf("roles of %s: %w", user, err)
		}
		byUser[user] = assignments
	}
	return &Static{byUser: byUser}, nil
}

func (s *Static) Assignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	return append([]domain.RoleAssignment(nil), s.byUser[userID]...), nil
}

// Chain concatenates the assignments of several resolvers. The first error wins.
type Chain []ports.RoleResolver

func (c Chain) Assignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error) {
	var out []domain.RoleAssignment
	for _, r := range c {
		assignments, err := r.Assignments(ctx, userID)
		if err != nil {
			return nil, err
		}
		out = append(out, assignments...)
	}
	return out, nil
}
