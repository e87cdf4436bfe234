package ports

import (
	"context"

	"dms-object-service/internal/core/domain"
)

// RoleResolver defines the contract for looking up a user's role assignments.
type RoleResolver interface {
	// Assignments returns the role assignments of a user. Unknown users have none.
	Assignments(ctx context.Context, userID string) ([]domain.RoleAssignment, error)
}
