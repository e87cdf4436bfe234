package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/adapters/secondary/memory"
	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

func newEntityFixture(t *testing.T) (*EntityService, *memory.Store) {
	store := memory.NewStore()
	svc := NewEntityService(store, newRoles(), nil)
	svc.now = newClock().now
	return svc, store
}

func mustCreate(t *testing.T, svc *EntityService, session domain.Session, draft domain.EntityDraft) *domain.Entity {
	t.Helper()
	e, err := svc.Create(context.Background(), session, draft)
	require.NoError(t, err)
	return e
}

func TestEntityService_Create_Hierarchy(t *testing.T) {
	svc, _ := newEntityFixture(t)

	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "lab", Kind: domain.EntityKindSpace})
	assert.Equal(t, "LAB", space.Code)
	assert.Equal(t, "LAB", space.SpaceCode)
	assert.NotEmpty(t, space.ID)

	project := mustCreate(t, svc, labPower, domain.EntityDraft{Code: "P1", Kind: domain.EntityKindProject, OwnerID: space.ID})
	assert.Equal(t, domain.Scope{SpaceCode: "LAB", ProjectCode: "P1"}, project.Scope())

	exp := mustCreate(t, svc, labPower, domain.EntityDraft{Code: "E1", Kind: domain.EntityKindExperiment, OwnerID: project.ID})
	sample := mustCreate(t, svc, labPower, domain.EntityDraft{Code: "S1", Kind: domain.EntityKindSample, OwnerID: exp.ID})
	assert.Equal(t, "P1", sample.ProjectCode)

	ds := mustCreate(t, svc, labPower, domain.EntityDraft{Code: "DS1", Kind: domain.EntityKindDataSet, OwnerID: sample.ID})
	assert.Equal(t, domain.DataSetKindPhysical, ds.DataSetKind)
	assert.Equal(t, labPower.UserID, ds.RegistratorID)
	require.NotNil(t, ds.OwnerID)
	assert.Equal(t, sample.ID, *ds.OwnerID)
}

func TestEntityService_Create_Validation(t *testing.T) {
	svc, _ := newEntityFixture(t)
	space := mustCreate(t, svc, admin, domain.EntityDraft{ID: "LAB", Code: "LAB", Kind: domain.EntityKindSpace})

	tests := []struct {
		name  string
		draft domain.EntityDraft
		err   error
	}{
		{"empty code", domain.EntityDraft{Kind: domain.EntityKindSpace}, domain.ErrValidation},
		{"unknown kind", domain.EntityDraft{Code: "X", Kind: "TAG"}, domain.ErrValidation},
		{"missing owner", domain.EntityDraft{Code: "P", Kind: domain.EntityKindProject}, domain.ErrValidation},
		{"space with owner", domain.EntityDraft{Code: "S", Kind: domain.EntityKindSpace, OwnerID: space.ID}, domain.ErrValidation},
		{"wrong owner kind", domain.EntityDraft{Code: "E", Kind: domain.EntityKindExperiment, OwnerID: space.ID}, domain.ErrValidation},
		{"unknown owner", domain.EntityDraft{Code: "P", Kind: domain.EntityKindProject, OwnerID: "NOPE"}, domain.ErrObjectNotFound},
		{"data set kind on sample", domain.EntityDraft{Code: "S", Kind: domain.EntityKindSample, OwnerID: space.ID, DataSetKind: domain.DataSetKindLink}, domain.ErrValidation},
		{"containers on project", domain.EntityDraft{Code: "P", Kind: domain.EntityKindProject, OwnerID: space.ID, ContainerIDs: []string{"LAB"}}, domain.ErrValidation},
		{"duplicate code", domain.EntityDraft{Code: "lab", Kind: domain.EntityKindSpace}, domain.ErrEntityCodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), admin, tt.draft)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEntityService_Create_Unauthorized(t *testing.T) {
	svc, _ := newEntityFixture(t)

	_, err := svc.Create(context.Background(), labPower, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})
	_, err = svc.Create(context.Background(), observer, domain.EntityDraft{Code: "S", Kind: domain.EntityKindSample, OwnerID: space.ID})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)
}

func TestEntityService_Create_FrozenForProjects(t *testing.T) {
	svc, _ := newEntityFixture(t)
	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "TEST", Kind: domain.EntityKindSpace})
	_, err := svc.Freeze(context.Background(), admin, space.ID, domain.FreezeFlags{Frozen: true, FrozenForProjects: true})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), admin, domain.EntityDraft{Code: "PROJECT_1", Kind: domain.EntityKindProject, OwnerID: space.ID})
	require.ErrorIs(t, err, domain.ErrFrozen)
	assert.Equal(t, "operation SET_SPACE is not allowed because space TEST is frozen for project PROJECT_1", err.Error())

	// samples are still welcome
	_, err = svc.Create(context.Background(), admin, domain.EntityDraft{Code: "S1", Kind: domain.EntityKindSample, OwnerID: space.ID})
	assert.NoError(t, err)
}

func TestEntityService_Create_Containers(t *testing.T) {
	svc, _ := newEntityFixture(t)
	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})
	sample := mustCreate(t, svc, admin, domain.EntityDraft{Code: "S1", Kind: domain.EntityKindSample, OwnerID: space.ID})
	container := mustCreate(t, svc, admin, domain.EntityDraft{Code: "C1", Kind: domain.EntityKindDataSet, DataSetKind: domain.DataSetKindContainer, OwnerID: sample.ID})
	plain := mustCreate(t, svc, admin, domain.EntityDraft{Code: "P1", Kind: domain.EntityKindDataSet, OwnerID: sample.ID})

	component := mustCreate(t, svc, admin, domain.EntityDraft{
		Code: "COMP", Kind: domain.EntityKindDataSet, OwnerID: sample.ID,
		ContainerIDs: []string{container.ID, container.ID}, ParentIDs: []string{plain.ID},
	})
	assert.Equal(t, []string{container.ID}, component.ContainerIDs)
	assert.Equal(t, []string{plain.ID}, component.ParentIDs)

	_, err := svc.Create(context.Background(), admin, domain.EntityDraft{
		Code: "BAD", Kind: domain.EntityKindDataSet, OwnerID: sample.ID, ContainerIDs: []string{plain.ID},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Create(context.Background(), admin, domain.EntityDraft{
		Code: "BAD", Kind: domain.EntityKindDataSet, OwnerID: sample.ID, ParentIDs: []string{sample.ID},
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Freeze(context.Background(), admin, container.ID, domain.FreezeFlags{Frozen: true, FrozenForComponents: true})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), admin, domain.EntityDraft{
		Code: "LATE", Kind: domain.EntityKindDataSet, OwnerID: sample.ID, ContainerIDs: []string{container.ID},
	})
	assert.ErrorIs(t, err, domain.ErrFrozen)
}

func TestEntityService_List_FiltersByReadAccess(t *testing.T) {
	svc, _ := newEntityFixture(t)
	lab := mustCreate(t, svc, admin, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})
	other := mustCreate(t, svc, admin, domain.EntityDraft{Code: "OTHER", Kind: domain.EntityKindSpace})
	mustCreate(t, svc, admin, domain.EntityDraft{Code: "S1", Kind: domain.EntityKindSample, OwnerID: lab.ID})
	mustCreate(t, svc, admin, domain.EntityDraft{Code: "S2", Kind: domain.EntityKindSample, OwnerID: other.ID})

	items, total, err := svc.List(context.Background(), observer, ports.EntityFilter{Kind: domain.EntityKindSample})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "S1", items[0].Code)

	items, total, err = svc.List(context.Background(), admin, ports.EntityFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, items, 1)
}

func TestEntityService_Update(t *testing.T) {
	svc, _ := newEntityFixture(t)
	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})
	sample := mustCreate(t, svc, admin, domain.EntityDraft{
		Code: "S1", Kind: domain.EntityKindSample, OwnerID: space.ID,
		Properties: map[string]string{"COLOR": "red", "SIZE": "L"},
	})

	desc := "updated"
	e, err := svc.Update(context.Background(), labPower, sample.ID, domain.EntityUpdate{
		Description: &desc,
		Properties:  map[string]string{"COLOR": "", "WEIGHT": "3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", e.Description)
	assert.Equal(t, map[string]string{"SIZE": "L", "WEIGHT": "3"}, e.Properties)

	_, err = svc.Update(context.Background(), observer, sample.ID, domain.EntityUpdate{Description: &desc})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	_, err = svc.Freeze(context.Background(), admin, sample.ID, domain.FreezeFlags{Frozen: true})
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), admin, sample.ID, domain.EntityUpdate{Description: &desc})
	assert.ErrorIs(t, err, domain.ErrFrozen)
}

func TestEntityService_Freeze(t *testing.T) {
	svc, _ := newEntityFixture(t)
	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})

	_, err := svc.Freeze(context.Background(), admin, space.ID, domain.FreezeFlags{FrozenForProjects: true})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Freeze(context.Background(), admin, space.ID, domain.FreezeFlags{Frozen: true, FrozenForDataSets: true})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Freeze(context.Background(), labPower, space.ID, domain.FreezeFlags{Frozen: true})
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	e, err := svc.Freeze(context.Background(), admin, space.ID, domain.FreezeFlags{Frozen: true})
	require.NoError(t, err)
	assert.True(t, e.Freeze.Frozen)

	// flags accumulate; a later call cannot clear Frozen
	e, err = svc.Freeze(context.Background(), admin, space.ID, domain.FreezeFlags{FrozenForSamples: true})
	require.NoError(t, err)
	assert.Equal(t, domain.FreezeFlags{Frozen: true, FrozenForSamples: true}, e.Freeze)
}

func TestEntityService_Get(t *testing.T) {
	svc, _ := newEntityFixture(t)
	space := mustCreate(t, svc, admin, domain.EntityDraft{Code: "LAB", Kind: domain.EntityKindSpace})
	other := mustCreate(t, svc, admin, domain.EntityDraft{Code: "OTHER", Kind: domain.EntityKindSpace})

	e, err := svc.Get(context.Background(), observer, space.ID)
	require.NoError(t, err)
	assert.Equal(t, "LAB", e.Code)

	_, err = svc.Get(context.Background(), observer, other.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAccess)

	_, err = svc.Get(context.Background(), observer, "missing")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}
