// Package memory provides an in-memory entity store used for tests and
// ephemeral deployments. Transactions run against a clone of the state that is
// swapped in only when the unit of work succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

var _ ports.EntityStore = (*Store)(nil)

type state struct {
	entities  map[string]*domain.Entity
	deletions map[uuid.UUID]*domain.DeletionSet
	history   map[string][]*domain.HistoryEntry
}

func newState() state {
	return state{
		entities:  make(map[string]*domain.Entity),
		deletions: make(map[uuid.UUID]*domain.DeletionSet),
		history:   make(map[string][]*domain.HistoryEntry),
	}
}

func (s state) clone() state {
	out := newState()
	for id, e := range s.entities {
		out.entities[id] = e.Clone()
	}
	for id, d := range s.deletions {
		out.deletions[id] = d.Clone()
	}
	for id, entries := range s.history {
		// entries are immutable once appended
		out.history[id] = append([]*domain.HistoryEntry(nil), entries...)
	}
	return out
}

// Store is a mutex-serialized in-memory EntityStore.
type Store struct {
	mu    sync.RWMutex
	state state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx ports.StoreTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{reader: reader{state: s.state.clone()}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against the current state without copying it.
func (s *Store) View(_ context.Context, fn func(r ports.StoreReader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(reader{state: s.state})
}

func (s *Store) Ping(context.Context) error { return nil }

// ============================================================================
// Reads
// ============================================================================

type reader struct {
	state state
}

func (r reader) GetEntity(_ context.Context, id string) (*domain.Entity, error) {
	e, ok := r.state.entities[id]
	if !ok {
		return nil, domain.EntityNotFound(id)
	}
	return e.Clone(), nil
}

func (r reader) ListEntities(_ context.Context, filter ports.EntityFilter) ([]*domain.Entity, int, error) {
	var matched []*domain.Entity
	for _, e := range r.state.entities {
		if matchesFilter(e, filter) {
			matched = append(matched, e)
		}
	}
	sortEntities(matched)

	total := len(matched)
	matched = paginate(matched, filter.Limit, filter.Offset)
	out := make([]*domain.Entity, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.Clone())
	}
	return out, total, nil
}

func (r reader) ListDependents(_ context.Context, ids []string) ([]*domain.Entity, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []*domain.Entity
	for _, e := range r.state.entities {
		if e.Trashed() {
			continue
		}
		dependent := e.OwnerID != nil && wanted[*e.OwnerID]
		for _, c := range e.ContainerIDs {
			dependent = dependent || wanted[c]
		}
		if dependent {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r reader) ListTrashedOwnedBy(_ context.Context, ids []string) ([]*domain.Entity, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var out []*domain.Entity
	for _, e := range r.state.entities {
		if e.Trashed() && e.OwnerID != nil && wanted[*e.OwnerID] {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r reader) GetDeletion(_ context.Context, id uuid.UUID) (*domain.DeletionSet, error) {
	d, ok := r.state.deletions[id]
	if !ok {
		return nil, domain.DeletionNotFound(id.String())
	}
	return d.Clone(), nil
}

func (r reader) ListDeletions(_ context.Context, filter ports.DeletionFilter) ([]*domain.DeletionSet, int, error) {
	var matched []*domain.DeletionSet
	for _, d := range r.state.deletions {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.OwnerUserID != "" && d.OwnerUserID != filter.OwnerUserID {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	matched = paginate(matched, filter.Limit, filter.Offset)
	out := make([]*domain.DeletionSet, 0, len(matched))
	for _, d := range matched {
		out = append(out, d.Clone())
	}
	return out, total, nil
}

func (r reader) ListHistory(_ context.Context, entityID string) ([]*domain.HistoryEntry, error) {
	entries := r.state.history[entityID]
	out := make([]*domain.HistoryEntry, 0, len(entries))
	for _, h := range entries {
		c := *h
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ValidFrom.Equal(out[j].ValidFrom) {
			return out[i].ValidFrom.Before(out[j].ValidFrom)
		}
		return out[i].ValidUntil.Before(out[j].ValidUntil)
	})
	return out, nil
}

// ============================================================================
// Writes
// ============================================================================

type transaction struct {
	reader
}

func (tx *transaction) GetEntityForUpdate(ctx context.Context, id string) (*domain.Entity, error) {
	return tx.GetEntity(ctx, id)
}

func (tx *transaction) CreateEntity(_ context.Context, entity *domain.Entity) error {
	if _, exists := tx.state.entities[entity.ID]; exists {
		return domain.ErrEntityCodeConflict
	}
	for _, e := range tx.state.entities {
		if e.Kind == entity.Kind && e.Code == entity.Code {
			return domain.ErrEntityCodeConflict
		}
	}
	tx.state.entities[entity.ID] = entity.Clone()
	return nil
}

func (tx *transaction) UpdateEntity(_ context.Context, entity *domain.Entity) error {
	current, ok := tx.state.entities[entity.ID]
	if !ok {
		return domain.EntityNotFound(entity.ID)
	}
	next := entity.Clone()
	current.Description = next.Description
	current.Properties = next.Properties
	current.Freeze = next.Freeze
	current.ContentCopies = next.ContentCopies
	current.ModifiedAt = next.ModifiedAt
	return nil
}

func (tx *transaction) SetDeletionID(_ context.Context, ids []string, deletionID *uuid.UUID) error {
	for _, id := range ids {
		e, ok := tx.state.entities[id]
		if !ok {
			return domain.EntityNotFound(id)
		}
		if deletionID == nil {
			e.DeletionID = nil
			continue
		}
		d := *deletionID
		e.DeletionID = &d
	}
	return nil
}

func (tx *transaction) PurgeEntities(_ context.Context, ids []string) error {
	purged := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := tx.state.entities[id]; !ok {
			return domain.EntityNotFound(id)
		}
		purged[id] = true
		delete(tx.state.entities, id)
		delete(tx.state.history, id)
	}
	for _, e := range tx.state.entities {
		if e.OwnerID != nil && purged[*e.OwnerID] {
			e.OwnerID = nil
		}
		e.ContainerIDs = without(e.ContainerIDs, purged)
		e.ParentIDs = without(e.ParentIDs, purged)
	}
	return nil
}

func (tx *transaction) CreateDeletion(_ context.Context, deletion *domain.DeletionSet) error {
	tx.state.deletions[deletion.ID] = deletion.Clone()
	return nil
}

func (tx *transaction) UpdateDeletion(_ context.Context, deletion *domain.DeletionSet) error {
	if _, ok := tx.state.deletions[deletion.ID]; !ok {
		return domain.DeletionNotFound(deletion.ID.String())
	}
	tx.state.deletions[deletion.ID] = deletion.Clone()
	return nil
}

func (tx *transaction) AppendHistory(_ context.Context, entry *domain.HistoryEntry) error {
	if _, ok := tx.state.entities[entry.EntityID]; !ok {
		return domain.EntityNotFound(entry.EntityID)
	}
	c := *entry
	tx.state.history[entry.EntityID] = append(tx.state.history[entry.EntityID], &c)
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func matchesFilter(e *domain.Entity, f ports.EntityFilter) bool {
	if e.Trashed() && !f.IncludeTrashed {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.SpaceCode != "" && e.SpaceCode != f.SpaceCode {
		return false
	}
	if f.ProjectCode != "" && e.ProjectCode != f.ProjectCode {
		return false
	}
	if f.Code != "" && e.Code != f.Code {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Code), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func sortEntities(entities []*domain.Entity) {
	sort.Slice(entities, func(i, j int) bool {
		if !entities[i].RegisteredAt.Equal(entities[j].RegisteredAt) {
			return entities[i].RegisteredAt.Before(entities[j].RegisteredAt)
		}
		return entities[i].ID < entities[j].ID
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func without(ids []string, drop map[string]bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}
