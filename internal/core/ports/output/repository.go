package ports

import (
	"context"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
)

type EntityFilter struct {
	Kind           domain.EntityKind
	SpaceCode      string
	ProjectCode    string
	Code           string
	Search         string
	IncludeTrashed bool
	Limit          int
	Offset         int
}

type DeletionFilter struct {
	Status      domain.DeletionStatus
	OwnerUserID string
	Limit       int
	Offset      int
}

// ============================================================================
// Entity Store
// ============================================================================

// StoreReader is the read side of a store transaction.
type StoreReader interface {
	// GetEntity returns the entity with the given id, trashed or not.
	GetEntity(ctx context.Context, id string) (*domain.Entity, error)

	// ListEntities lists entities matching the filter; trashed entities only with IncludeTrashed.
	ListEntities(ctx context.Context, filter EntityFilter) ([]*domain.Entity, int, error)

	// ListDependents returns live entities whose owner or any container is one of ids.
	ListDependents(ctx context.Context, ids []string) ([]*domain.Entity, error)

	// ListTrashedOwnedBy returns trashed entities whose owner is one of ids.
	ListTrashedOwnedBy(ctx context.Context, ids []string) ([]*domain.Entity, error)

	// GetDeletion returns a deletion set regardless of its status.
	GetDeletion(ctx context.Context, id uuid.UUID) (*domain.DeletionSet, error)

	// ListDeletions lists deletion sets, newest first.
	ListDeletions(ctx context.Context, filter DeletionFilter) ([]*domain.DeletionSet, int, error)

	// ListHistory returns the history entries of an entity ordered by ValidFrom.
	ListHistory(ctx context.Context, entityID string) ([]*domain.HistoryEntry, error)
}

// StoreTx is a unit of work. Nothing written through it is visible to other
// callers until the enclosing RunInTransaction returns nil.
type StoreTx interface {
	StoreReader

	// GetEntityForUpdate is GetEntity plus a row lock where the backend supports one.
	GetEntityForUpdate(ctx context.Context, id string) (*domain.Entity, error)

	CreateEntity(ctx context.Context, entity *domain.Entity) error

	// UpdateEntity replaces the mutable state of an entity: description, properties,
	// freeze flags and content copies.
	UpdateEntity(ctx context.Context, entity *domain.Entity) error

	// SetDeletionID stamps (or clears, with nil) the deletion id of the given entities.
	SetDeletionID(ctx context.Context, ids []string, deletionID *uuid.UUID) error

	// PurgeEntities permanently removes entities with their links, copies and history.
	PurgeEntities(ctx context.Context, ids []string) error

	CreateDeletion(ctx context.Context, deletion *domain.DeletionSet) error
	UpdateDeletion(ctx context.Context, deletion *domain.DeletionSet) error

	AppendHistory(ctx context.Context, entry *domain.HistoryEntry) error
}

// EntityStore runs units of work atomically: all effects of fn commit, or none do.
type EntityStore interface {
	RunInTransaction(ctx context.Context, fn func(tx StoreTx) error) error
	View(ctx context.Context, fn func(r StoreReader) error) error
	Ping(ctx context.Context) error
}
