package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

type DeletionService struct {
	store   ports.EntityStore
	auth    authorizer
	archive ports.ManifestArchive
	metrics ports.LifecycleMetrics
	now     func() time.Time
}

// NewDeletionService builds the deletion, reversion and purge engine. archive
// may be nil, in which case purged sets are not archived.
func NewDeletionService(store ports.EntityStore, roles ports.RoleResolver, archive ports.ManifestArchive, metrics ports.LifecycleMetrics) *DeletionService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &DeletionService{
		store:   store,
		auth:    authorizer{roles: roles},
		archive: archive,
		metrics: metrics,
		now:     time.Now,
	}
}

// Delete moves the entities and their cascade into a new deletion set. An empty
// ids slice is a no-op and returns a nil id without error.
func (s *DeletionService) Delete(ctx context.Context, session domain.Session, ids []string, opts domain.DeleteOptions) (*uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	requested := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, domain.NewValidationError("entity id must not be empty")
		}
		if !seen[id] {
			seen[id] = true
			requested = append(requested, id)
		}
	}
	reason := strings.TrimSpace(opts.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("deletion reason must not be empty")
	}

	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}

	var deletion *domain.DeletionSet
	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		members, err := resolveCascade(ctx, tx, requested)
		if err != nil {
			return err
		}
		for _, e := range members {
			if err := requireCapability(assignments, e, domain.CapabilityDelete); err != nil {
				return err
			}
		}
		for _, e := range members {
			if err := checkMutation(s.metrics, e, domain.OperationDelete, nil); err != nil {
				return err
			}
		}

		deletion = &domain.DeletionSet{
			ID:           uuid.New(),
			Reason:       reason,
			OwnerUserID:  session.UserID,
			CreatedAt:    s.now().UTC(),
			Status:       domain.DeletionStatusActive,
			RequestedIDs: requested,
			EntityIDs:    entityIDs(members),
		}
		if err := tx.CreateDeletion(ctx, deletion); err != nil {
			return err
		}
		return tx.SetDeletionID(ctx, deletion.EntityIDs, &deletion.ID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DeletionCreated(len(deletion.EntityIDs))
	log.WithFields(log.Fields{
		"deletion_id": deletion.ID,
		"user_id":     session.UserID,
		"requested":   len(requested),
		"entities":    len(deletion.EntityIDs),
	}).Info("Deletion set created")

	id := deletion.ID
	return &id, nil
}

// Revert restores every member of an active deletion set. A set can be
// reverted once; afterwards it is reported as not found.
func (s *DeletionService) Revert(ctx context.Context, session domain.Session, id uuid.UUID) error {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return err
	}

	var restored int
	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		deletion, members, err := s.loadActiveSet(ctx, tx, id)
		if err != nil {
			return err
		}
		inSet := make(map[string]bool, len(members))
		for _, e := range members {
			inSet[e.ID] = true
		}
		for _, e := range members {
			if err := requireCapability(assignments, e, domain.CapabilityRevert); err != nil {
				return err
			}
		}
		for _, e := range members {
			if e.OwnerID == nil || inSet[*e.OwnerID] {
				continue
			}
			owner, err := tx.GetEntity(ctx, *e.OwnerID)
			if err != nil {
				return err
			}
			if owner.Trashed() {
				return domain.NewValidationError("cannot revert deletion %s: %s %s of %s %s is still in the trash",
					id, owner.Kind.Label(), owner.Code, e.Kind.Label(), e.Code)
			}
		}

		if err := tx.SetDeletionID(ctx, deletion.EntityIDs, nil); err != nil {
			return err
		}
		closed := s.now().UTC()
		deletion.Status = domain.DeletionStatusReverted
		deletion.ClosedAt = &closed
		restored = len(members)
		return tx.UpdateDeletion(ctx, deletion)
	})
	if err != nil {
		return err
	}

	s.metrics.DeletionReverted(restored)
	log.WithFields(log.Fields{
		"deletion_id": id,
		"user_id":     session.UserID,
		"entities":    restored,
	}).Info("Deletion set reverted")
	return nil
}

// loadActiveSet returns an active deletion set with its members locked.
func (s *DeletionService) loadActiveSet(ctx context.Context, tx ports.StoreTx, id uuid.UUID) (*domain.DeletionSet, []*domain.Entity, error) {
	deletion, err := tx.GetDeletion(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !deletion.Active() {
		return nil, nil, domain.DeletionNotFound(id.String())
	}
	members := make([]*domain.Entity, 0, len(deletion.EntityIDs))
	for _, eid := range deletion.EntityIDs {
		e, err := tx.GetEntityForUpdate(ctx, eid)
		if err != nil {
			return nil, nil, fmt.Errorf("deletion %s: load member: %w", id, err)
		}
		if e.DeletionID == nil || *e.DeletionID != id {
			return nil, nil, fmt.Errorf("deletion %s: entity %s is not held by this set", id, eid)
		}
		members = append(members, e)
	}
	return deletion, members, nil
}

// ListDeletions lists deletion sets. Callers without an instance admin role
// only see their own sets.
func (s *DeletionService) ListDeletions(ctx context.Context, session domain.Session, filter ports.DeletionFilter) ([]*domain.DeletionSet, int, error) {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, 0, err
	}
	if !domain.IsInstanceAdmin(assignments) {
		filter.OwnerUserID = session.UserID
	}
	filter.Limit, filter.Offset = NormalizePage(filter.Limit, filter.Offset)

	var (
		items []*domain.DeletionSet
		total int
	)
	err = s.store.View(ctx, func(r ports.StoreReader) error {
		var err error
		items, total, err = r.ListDeletions(ctx, filter)
		return err
	})
	return items, total, err
}

func (s *DeletionService) GetDeletion(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.DeletionSet, error) {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}
	var deletion *domain.DeletionSet
	err = s.store.View(ctx, func(r ports.StoreReader) error {
		var err error
		deletion, err = r.GetDeletion(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if deletion.OwnerUserID != session.UserID && !domain.IsInstanceAdmin(assignments) {
		return nil, &domain.UnauthorizedAccessError{EntityID: id.String()}
	}
	return deletion, nil
}

func entityIDs(entities []*domain.Entity) []string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	return ids
}
