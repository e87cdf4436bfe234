package services

import (
	"context"
	"fmt"
	"strings"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// authorizer resolves the caller's role assignments once per call and answers
// capability checks against entity scopes.
type authorizer struct {
	roles ports.RoleResolver
}

func (a authorizer) assignments(ctx context.Context, session domain.Session) ([]domain.RoleAssignment, error) {
	if strings.TrimSpace(session.UserID) == "" {
		return nil, domain.ErrMissingUserID
	}
	assignments, err := a.roles.Assignments(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles of %s: %w", session.UserID, err)
	}
	return assignments, nil
}

func requireCapability(assignments []domain.RoleAssignment, e *domain.Entity, c domain.Capability) error {
	return requireScope(assignments, e.Scope(), e.ID, c)
}

func requireScope(assignments []domain.RoleAssignment, scope domain.Scope, id string, c domain.Capability) error {
	if !domain.Allows(assignments, scope, c) {
		return &domain.UnauthorizedAccessError{EntityID: id}
	}
	return nil
}

// checkMutation applies the freeze policy and counts rejections.
func checkMutation(metrics ports.LifecycleMetrics, target *domain.Entity, op domain.Operation, subject *domain.Entity) error {
	if err := domain.CheckMutation(target, op, subject); err != nil {
		metrics.MutationRejected(op)
		return err
	}
	return nil
}

// loadLive returns the entity with id, treating trashed entities as absent.
func loadLive(ctx context.Context, r ports.StoreReader, id string) (*domain.Entity, error) {
	e, err := r.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Trashed() {
		return nil, domain.EntityNotFound(id)
	}
	return e, nil
}

// loadLiveForUpdate is loadLive with a row lock.
func loadLiveForUpdate(ctx context.Context, tx ports.StoreTx, id string) (*domain.Entity, error) {
	e, err := tx.GetEntityForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Trashed() {
		return nil, domain.EntityNotFound(id)
	}
	return e, nil
}

// NormalizePage clamps a requested page to 1..100 items (20 by default) and a
// non-negative offset.
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
