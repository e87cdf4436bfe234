package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// EntityService registers, reads and modifies live entities.
type EntityService struct {
	store   ports.EntityStore
	auth    authorizer
	metrics ports.LifecycleMetrics
	now     func() time.Time
}

func NewEntityService(store ports.EntityStore, roles ports.RoleResolver, metrics ports.LifecycleMetrics) *EntityService {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &EntityService{store: store, auth: authorizer{roles: roles}, metrics: metrics, now: time.Now}
}

func (s *EntityService) Create(ctx context.Context, session domain.Session, draft domain.EntityDraft) (*domain.Entity, error) {
	code := strings.ToUpper(strings.TrimSpace(draft.Code))
	if code == "" {
		return nil, domain.NewValidationError("code must not be empty")
	}
	if !draft.Kind.Valid() {
		return nil, domain.NewValidationError("unknown entity kind %q", draft.Kind)
	}
	dsKind := draft.DataSetKind
	if draft.Kind == domain.EntityKindDataSet {
		switch dsKind {
		case "":
			dsKind = domain.DataSetKindPhysical
		case domain.DataSetKindPhysical, domain.DataSetKindLink, domain.DataSetKindContainer:
		default:
			return nil, domain.NewValidationError("unknown data set kind %q", dsKind)
		}
	} else if dsKind != "" {
		return nil, domain.NewValidationError("data set kind is only valid for data sets")
	}
	if len(draft.ContainerIDs) > 0 && draft.Kind != domain.EntityKindSample && draft.Kind != domain.EntityKindDataSet {
		return nil, domain.NewValidationError("a %s cannot have containers", draft.Kind.Label())
	}
	if len(draft.ParentIDs) > 0 && draft.Kind != domain.EntityKindSample && draft.Kind != domain.EntityKindDataSet {
		return nil, domain.NewValidationError("a %s cannot have parents", draft.Kind.Label())
	}

	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	e := &domain.Entity{
		ID:            strings.TrimSpace(draft.ID),
		Code:          code,
		Kind:          draft.Kind,
		DataSetKind:   dsKind,
		Description:   draft.Description,
		Properties:    draft.Properties,
		RegistratorID: session.UserID,
		RegisteredAt:  now,
		ModifiedAt:    now,
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Properties == nil {
		e.Properties = make(map[string]string)
	}

	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		if err := s.attachOwner(ctx, tx, assignments, e, strings.TrimSpace(draft.OwnerID)); err != nil {
			return err
		}
		containers, err := s.loadRelated(ctx, tx, e, draft.ContainerIDs, "container")
		if err != nil {
			return err
		}
		for _, c := range containers {
			if e.Kind == domain.EntityKindDataSet && c.DataSetKind != domain.DataSetKindContainer {
				return domain.NewValidationError("data set %s is not a container data set", c.Code)
			}
			if err := requireCapability(assignments, c, domain.CapabilityWrite); err != nil {
				return err
			}
			if err := checkMutation(s.metrics, c, domain.OperationAddComponent, e); err != nil {
				return err
			}
			e.ContainerIDs = append(e.ContainerIDs, c.ID)
		}
		parents, err := s.loadRelated(ctx, tx, e, draft.ParentIDs, "parent")
		if err != nil {
			return err
		}
		for _, p := range parents {
			e.ParentIDs = append(e.ParentIDs, p.ID)
		}
		return tx.CreateEntity(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"entity_id": e.ID,
		"kind":      e.Kind,
		"code":      e.Code,
		"user_id":   session.UserID,
	}).Info("Entity registered")
	return e, nil
}

// attachOwner validates the owner, derives the entity's scope from it and
// checks that the owner accepts new children.
func (s *EntityService) attachOwner(ctx context.Context, tx ports.StoreTx, assignments []domain.RoleAssignment, e *domain.Entity, ownerID string) error {
	if ownerID == "" {
		if domain.RequiresOwner(e.Kind) {
			return domain.NewValidationError("a %s needs an owner", e.Kind.Label())
		}
		e.SpaceCode = e.Code
		return requireScope(assignments, domain.Scope{}, e.ID, domain.CapabilityWrite)
	}
	if !domain.RequiresOwner(e.Kind) {
		return domain.NewValidationError("a %s cannot have an owner", e.Kind.Label())
	}

	owner, err := loadLiveForUpdate(ctx, tx, ownerID)
	if err != nil {
		return err
	}
	if !domain.OwnerAllowed(e.Kind, owner.Kind) {
		return domain.NewValidationError("a %s cannot be owned by a %s", e.Kind.Label(), owner.Kind.Label())
	}
	e.OwnerID = &owner.ID

	var op domain.Operation
	switch owner.Kind {
	case domain.EntityKindSpace:
		e.SpaceCode = owner.Code
		op = domain.OperationSetSpace
	case domain.EntityKindProject:
		e.SpaceCode, e.ProjectCode = owner.SpaceCode, owner.Code
		op = domain.OperationSetProject
	case domain.EntityKindExperiment:
		e.SpaceCode, e.ProjectCode = owner.SpaceCode, owner.ProjectCode
		op = domain.OperationAddSample
		if e.Kind == domain.EntityKindDataSet {
			op = domain.OperationAddDataSet
		}
	default:
		e.SpaceCode, e.ProjectCode = owner.SpaceCode, owner.ProjectCode
		op = domain.OperationAddDataSet
	}

	if err := requireCapability(assignments, e, domain.CapabilityWrite); err != nil {
		return err
	}
	return checkMutation(s.metrics, owner, op, e)
}

// loadRelated loads live entities of the same kind as e, without duplicates.
func (s *EntityService) loadRelated(ctx context.Context, tx ports.StoreTx, e *domain.Entity, ids []string, role string) ([]*domain.Entity, error) {
	seen := make(map[string]bool, len(ids))
	var out []*domain.Entity
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		related, err := loadLiveForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if related.Kind != e.Kind {
			return nil, domain.NewValidationError("%s %s of a %s must be a %s", role, related.Code, e.Kind.Label(), e.Kind.Label())
		}
		out = append(out, related)
	}
	return out, nil
}

// Get returns a live entity; trashed entities are not found.
func (s *EntityService) Get(ctx context.Context, session domain.Session, id string) (*domain.Entity, error) {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}
	var e *domain.Entity
	err = s.store.View(ctx, func(r ports.StoreReader) error {
		var err error
		e, err = loadLive(ctx, r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := requireCapability(assignments, e, domain.CapabilityRead); err != nil {
		return nil, err
	}
	return e, nil
}

// List returns the live entities the caller may read.
func (s *EntityService) List(ctx context.Context, session domain.Session, filter ports.EntityFilter) ([]*domain.Entity, int, error) {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	filter.IncludeTrashed = false
	filter.Limit, filter.Offset = 0, 0

	var all []*domain.Entity
	err = s.store.View(ctx, func(r ports.StoreReader) error {
		var err error
		all, _, err = r.ListEntities(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	visible := all[:0]
	for _, e := range all {
		if domain.Allows(assignments, e.Scope(), domain.CapabilityRead) {
			visible = append(visible, e)
		}
	}
	total := len(visible)
	if offset >= total {
		return []*domain.Entity{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return visible[offset:end], total, nil
}

func (s *EntityService) Update(ctx context.Context, session domain.Session, id string, update domain.EntityUpdate) (*domain.Entity, error) {
	if update.Empty() {
		return nil, domain.NewValidationError("update sets no fields")
	}
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}
	var e *domain.Entity
	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		var err error
		e, err = loadLiveForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireCapability(assignments, e, domain.CapabilityWrite); err != nil {
			return err
		}
		if err := checkMutation(s.metrics, e, domain.OperationUpdate, nil); err != nil {
			return err
		}
		if update.Description != nil {
			e.Description = *update.Description
		}
		if e.Properties == nil {
			e.Properties = make(map[string]string)
		}
		for k, v := range update.Properties {
			if v == "" {
				delete(e.Properties, k)
				continue
			}
			e.Properties[k] = v
		}
		e.ModifiedAt = s.now().UTC()
		return tx.UpdateEntity(ctx, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Freeze sets freeze flags on an entity. Flags are only ever added.
func (s *EntityService) Freeze(ctx context.Context, session domain.Session, id string, flags domain.FreezeFlags) (*domain.Entity, error) {
	assignments, err := s.auth.assignments(ctx, session)
	if err != nil {
		return nil, err
	}
	var e *domain.Entity
	err = s.store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		var err error
		e, err = loadLiveForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireCapability(assignments, e, domain.CapabilityFreeze); err != nil {
			return err
		}
		merged := e.Freeze.Merge(flags)
		if err := merged.ValidateFor(e.Kind); err != nil {
			return err
		}
		if merged == e.Freeze {
			return nil
		}
		e.Freeze = merged
		e.ModifiedAt = s.now().UTC()
		return tx.UpdateEntity(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"entity_id": e.ID,
		"user_id":   session.UserID,
	}).Info("Entity frozen")
	return e, nil
}
