// Package storetest holds the behavioural tests every EntityStore adapter
// has to pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// Run exercises a fresh store returned by open for every subtest.
func Run(t *testing.T, open func(t *testing.T) ports.EntityStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store ports.EntityStore)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"CodeConflict", testCodeConflict},
		{"ListEntities", testListEntities},
		{"ListDependents", testListDependents},
		{"DeletionLifecycle", testDeletionLifecycle},
		{"History", testHistory},
		{"Purge", testPurge},
		{"Rollback", testRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func entity(id string, kind domain.EntityKind, owner string, offset int) *domain.Entity {
	e := &domain.Entity{
		ID:            id,
		Code:          id,
		Kind:          kind,
		SpaceCode:     "LAB",
		Properties:    map[string]string{},
		RegistratorID: "tester",
		RegisteredAt:  base.Add(time.Duration(offset) * time.Minute),
		ModifiedAt:    base.Add(time.Duration(offset) * time.Minute),
	}
	if kind == domain.EntityKindDataSet {
		e.DataSetKind = domain.DataSetKindPhysical
	}
	if owner != "" {
		e.OwnerID = &owner
	}
	return e
}

// seed creates LAB, sample S1, container C1 and components D1 and D2 in C1.
func seed(t *testing.T, store ports.EntityStore) {
	t.Helper()
	c1 := entity("C1", domain.EntityKindDataSet, "S1", 2)
	c1.DataSetKind = domain.DataSetKindContainer
	d1 := entity("D1", domain.EntityKindDataSet, "S1", 3)
	d1.ContainerIDs = []string{"C1"}
	d2 := entity("D2", domain.EntityKindDataSet, "S1", 4)
	d2.ContainerIDs = []string{"C1"}
	d2.ParentIDs = []string{"D1"}

	err := store.RunInTransaction(context.Background(), func(tx ports.StoreTx) error {
		for _, e := range []*domain.Entity{
			entity("LAB", domain.EntityKindSpace, "", 0),
			entity("S1", domain.EntityKindSample, "LAB", 1),
			c1, d1, d2,
		} {
			if err := tx.CreateEntity(context.Background(), e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func get(t *testing.T, store ports.EntityStore, id string) (*domain.Entity, error) {
	t.Helper()
	var e *domain.Entity
	err := store.View(context.Background(), func(r ports.StoreReader) error {
		var err error
		e, err = r.GetEntity(context.Background(), id)
		return err
	})
	return e, err
}

func testCreateAndGet(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()

	copyID := uuid.New()
	err := store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		e, err := tx.GetEntityForUpdate(ctx, "D2")
		if err != nil {
			return err
		}
		e.Description = "second component"
		e.Properties = map[string]string{"FORMAT": "tiff"}
		e.Freeze = domain.FreezeFlags{Frozen: true, FrozenForComponents: true}
		e.ContentCopies = []domain.ContentCopy{{
			ID: copyID, ExternalDmsID: "DMS", ExternalCode: "X", Path: "/p", GitCommitHash: "abc",
			GitRepositoryID: "repo", AttachedAt: base.Add(time.Hour),
		}}
		e.ModifiedAt = base.Add(time.Hour)
		return tx.UpdateEntity(ctx, e)
	})
	require.NoError(t, err)

	e, err := get(t, store, "D2")
	require.NoError(t, err)
	assert.Equal(t, domain.EntityKindDataSet, e.Kind)
	assert.Equal(t, domain.DataSetKindPhysical, e.DataSetKind)
	require.NotNil(t, e.OwnerID)
	assert.Equal(t, "S1", *e.OwnerID)
	assert.Equal(t, []string{"C1"}, e.ContainerIDs)
	assert.Equal(t, []string{"D1"}, e.ParentIDs)
	assert.Equal(t, "second component", e.Description)
	assert.Equal(t, map[string]string{"FORMAT": "tiff"}, e.Properties)
	assert.Equal(t, domain.FreezeFlags{Frozen: true, FrozenForComponents: true}, e.Freeze)
	assert.Nil(t, e.DeletionID)
	assert.True(t, e.RegisteredAt.Equal(base.Add(4*time.Minute)))
	assert.True(t, e.ModifiedAt.Equal(base.Add(time.Hour)))
	require.Len(t, e.ContentCopies, 1)
	assert.Equal(t, copyID, e.ContentCopies[0].ID)
	assert.Equal(t, "abc", e.ContentCopies[0].GitCommitHash)
	assert.True(t, e.ContentCopies[0].AttachedAt.Equal(base.Add(time.Hour)))

	_, err = get(t, store, "MISSING")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}

func testCodeConflict(t *testing.T, store ports.EntityStore) {
	seed(t, store)

	err := store.RunInTransaction(context.Background(), func(tx ports.StoreTx) error {
		dup := entity("S1-COPY", domain.EntityKindSample, "LAB", 9)
		dup.Code = "S1"
		return tx.CreateEntity(context.Background(), dup)
	})
	assert.ErrorIs(t, err, domain.ErrEntityCodeConflict)
}

func testListEntities(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()
	deletionID := uuid.New()
	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		return tx.SetDeletionID(ctx, []string{"D2"}, &deletionID)
	}))

	err := store.View(ctx, func(r ports.StoreReader) error {
		items, total, err := r.ListEntities(ctx, ports.EntityFilter{Kind: domain.EntityKindDataSet})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "C1", items[0].ID)
		assert.Equal(t, "D1", items[1].ID)

		_, total, err = r.ListEntities(ctx, ports.EntityFilter{Kind: domain.EntityKindDataSet, IncludeTrashed: true})
		require.NoError(t, err)
		assert.Equal(t, 3, total)

		items, total, err = r.ListEntities(ctx, ports.EntityFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, items, 2)
		assert.Equal(t, "S1", items[0].ID)

		items, _, err = r.ListEntities(ctx, ports.EntityFilter{Search: "c"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "C1", items[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func testListDependents(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()

	ids := func(entities []*domain.Entity) []string {
		var out []string
		for _, e := range entities {
			out = append(out, e.ID)
		}
		return out
	}

	err := store.View(ctx, func(r ports.StoreReader) error {
		deps, err := r.ListDependents(ctx, []string{"C1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"D1", "D2"}, ids(deps))

		deps, err = r.ListDependents(ctx, []string{"S1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "D1", "D2"}, ids(deps))

		// parent edges do not make dependents
		deps, err = r.ListDependents(ctx, []string{"D1"})
		require.NoError(t, err)
		assert.Empty(t, deps)
		return nil
	})
	require.NoError(t, err)

	deletionID := uuid.New()
	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		return tx.SetDeletionID(ctx, []string{"D1"}, &deletionID)
	}))
	err = store.View(ctx, func(r ports.StoreReader) error {
		deps, err := r.ListDependents(ctx, []string{"C1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"D2"}, ids(deps))

		trashed, err := r.ListTrashedOwnedBy(ctx, []string{"S1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"D1"}, ids(trashed))

		// container edges are not ownership
		trashed, err = r.ListTrashedOwnedBy(ctx, []string{"C1"})
		require.NoError(t, err)
		assert.Empty(t, trashed)
		return nil
	})
	require.NoError(t, err)
}

func testDeletionLifecycle(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()

	d := &domain.DeletionSet{
		ID:           uuid.New(),
		Reason:       "cleanup",
		OwnerUserID:  "alice",
		CreatedAt:    base.Add(time.Hour),
		Status:       domain.DeletionStatusActive,
		RequestedIDs: []string{"C1"},
		EntityIDs:    []string{"C1", "D1", "D2"},
	}
	other := &domain.DeletionSet{
		ID:           uuid.New(),
		Reason:       "other",
		OwnerUserID:  "bob",
		CreatedAt:    base.Add(2 * time.Hour),
		Status:       domain.DeletionStatusActive,
		RequestedIDs: []string{"S1"},
		EntityIDs:    []string{"S1"},
	}
	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		if err := tx.CreateDeletion(ctx, d); err != nil {
			return err
		}
		if err := tx.CreateDeletion(ctx, other); err != nil {
			return err
		}
		return tx.SetDeletionID(ctx, d.EntityIDs, &d.ID)
	}))

	e, err := get(t, store, "D1")
	require.NoError(t, err)
	require.NotNil(t, e.DeletionID)
	assert.Equal(t, d.ID, *e.DeletionID)

	closed := base.Add(3 * time.Hour)
	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		if err := tx.SetDeletionID(ctx, d.EntityIDs, nil); err != nil {
			return err
		}
		d.Status = domain.DeletionStatusReverted
		d.ClosedAt = &closed
		return tx.UpdateDeletion(ctx, d)
	}))

	e, err = get(t, store, "D1")
	require.NoError(t, err)
	assert.Nil(t, e.DeletionID)

	err = store.View(ctx, func(r ports.StoreReader) error {
		got, err := r.GetDeletion(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DeletionStatusReverted, got.Status)
		assert.Equal(t, []string{"C1", "D1", "D2"}, got.EntityIDs)
		assert.Equal(t, []string{"C1"}, got.RequestedIDs)
		require.NotNil(t, got.ClosedAt)
		assert.True(t, got.ClosedAt.Equal(closed))

		items, total, err := r.ListDeletions(ctx, ports.DeletionFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, other.ID, items[0].ID)

		items, total, err = r.ListDeletions(ctx, ports.DeletionFilter{Status: domain.DeletionStatusActive, OwnerUserID: "bob"})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, other.ID, items[0].ID)

		_, total, err = r.ListDeletions(ctx, ports.DeletionFilter{OwnerUserID: "alice", Status: domain.DeletionStatusActive})
		require.NoError(t, err)
		assert.Equal(t, 0, total)

		_, err = r.GetDeletion(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrObjectNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testHistory(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()

	later := &domain.HistoryEntry{
		ID: uuid.New(), EntityID: "D1", RelationType: domain.RelationContentCopy, ExternalDmsID: "DMS",
		ExternalCode: "B", ValidFrom: base.Add(2 * time.Hour), ValidUntil: base.Add(3 * time.Hour), AuthorID: "alice",
	}
	earlier := &domain.HistoryEntry{
		ID: uuid.New(), EntityID: "D1", RelationType: domain.RelationContentCopy, ExternalDmsID: "DMS",
		ExternalCode: "A", ValidFrom: base.Add(time.Hour), ValidUntil: base.Add(2 * time.Hour), AuthorID: "alice",
	}
	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		if err := tx.AppendHistory(ctx, later); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, earlier)
	}))

	err := store.View(ctx, func(r ports.StoreReader) error {
		history, err := r.ListHistory(ctx, "D1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "A", history[0].ExternalCode)
		assert.Equal(t, "B", history[1].ExternalCode)
		assert.True(t, history[0].ValidUntil.Equal(history[1].ValidFrom))

		history, err = r.ListHistory(ctx, "D2")
		require.NoError(t, err)
		assert.Empty(t, history)
		return nil
	})
	require.NoError(t, err)
}

func testPurge(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()

	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		if err := tx.AppendHistory(ctx, &domain.HistoryEntry{
			ID: uuid.New(), EntityID: "C1", RelationType: domain.RelationContentCopy, ExternalDmsID: "DMS",
			ValidFrom: base, ValidUntil: base.Add(time.Hour), AuthorID: "alice",
		}); err != nil {
			return err
		}
		return tx.PurgeEntities(ctx, []string{"C1", "D1"})
	}))

	_, err := get(t, store, "C1")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	d2, err := get(t, store, "D2")
	require.NoError(t, err)
	assert.Empty(t, d2.ContainerIDs)
	assert.Empty(t, d2.ParentIDs)

	err = store.View(ctx, func(r ports.StoreReader) error {
		history, err := r.ListHistory(ctx, "C1")
		require.NoError(t, err)
		assert.Empty(t, history)
		return nil
	})
	require.NoError(t, err)

	// purging an owner leaves its survivors without one
	require.NoError(t, store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		return tx.PurgeEntities(ctx, []string{"S1"})
	}))
	d2, err = get(t, store, "D2")
	require.NoError(t, err)
	assert.Nil(t, d2.OwnerID)
}

func testRollback(t *testing.T, store ports.EntityStore) {
	seed(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	deletionID := uuid.New()
	err := store.RunInTransaction(ctx, func(tx ports.StoreTx) error {
		if err := tx.SetDeletionID(ctx, []string{"C1"}, &deletionID); err != nil {
			return err
		}
		if err := tx.CreateEntity(ctx, entity("S2", domain.EntityKindSample, "LAB", 10)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c1, err := get(t, store, "C1")
	require.NoError(t, err)
	assert.Nil(t, c1.DeletionID)
	_, err = get(t, store, "S2")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}
