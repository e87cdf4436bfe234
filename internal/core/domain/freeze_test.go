package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMutation_DeleteFrozen(t *testing.T) {
	sample := &Entity{ID: "S1", Code: "SAMPLE_1", Kind: EntityKindSample, Freeze: FreezeFlags{Frozen: true}}

	err := CheckMutation(sample, OperationDelete, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFrozen)

	var frozen *FrozenError
	require.True(t, errors.As(err, &frozen))
	assert.Equal(t, "S1", frozen.EntityID)
	assert.Equal(t, OperationDelete, frozen.Operation)
}

func TestCheckMutation_NotFrozen(t *testing.T) {
	sample := &Entity{ID: "S1", Kind: EntityKindSample}
	for _, op := range []Operation{OperationDelete, OperationUpdate, OperationAddComponent} {
		assert.NoError(t, CheckMutation(sample, op, nil), string(op))
	}
}

func TestCheckMutation_SpaceFrozenForProjects(t *testing.T) {
	space := &Entity{ID: "SP", Code: "TEST", Kind: EntityKindSpace, Freeze: FreezeFlags{Frozen: true, FrozenForProjects: true}}
	project := &Entity{Code: "PROJECT_1", Kind: EntityKindProject}
	sample := &Entity{Code: "SAMPLE_1", Kind: EntityKindSample}

	err := CheckMutation(space, OperationSetSpace, project)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROJECT_1")
	assert.Equal(t, "operation SET_SPACE is not allowed because space TEST is frozen for project PROJECT_1", err.Error())

	// The projects flag does not block samples.
	assert.NoError(t, CheckMutation(space, OperationSetSpace, sample))
}

func TestCheckMutation_PolicyTable(t *testing.T) {
	tests := []struct {
		name    string
		target  *Entity
		op      Operation
		subject *Entity
		blocked bool
	}{
		{"space frozen for samples", &Entity{Kind: EntityKindSpace, Freeze: FreezeFlags{Frozen: true, FrozenForSamples: true}}, OperationSetSpace, &Entity{Kind: EntityKindSample}, true},
		{"project frozen for experiments", &Entity{Kind: EntityKindProject, Freeze: FreezeFlags{Frozen: true, FrozenForExperiments: true}}, OperationSetProject, &Entity{Kind: EntityKindExperiment}, true},
		{"project frozen for experiments allows samples", &Entity{Kind: EntityKindProject, Freeze: FreezeFlags{Frozen: true, FrozenForExperiments: true}}, OperationSetProject, &Entity{Kind: EntityKindSample}, false},
		{"project frozen for samples", &Entity{Kind: EntityKindProject, Freeze: FreezeFlags{Frozen: true, FrozenForSamples: true}}, OperationSetProject, &Entity{Kind: EntityKindSample}, true},
		{"experiment frozen for samples", &Entity{Kind: EntityKindExperiment, Freeze: FreezeFlags{Frozen: true, FrozenForSamples: true}}, OperationAddSample, &Entity{Kind: EntityKindSample}, true},
		{"experiment frozen only", &Entity{Kind: EntityKindExperiment, Freeze: FreezeFlags{Frozen: true}}, OperationAddSample, &Entity{Kind: EntityKindSample}, false},
		{"sample frozen for data sets", &Entity{Kind: EntityKindSample, Freeze: FreezeFlags{Frozen: true, FrozenForDataSets: true}}, OperationAddDataSet, &Entity{Kind: EntityKindDataSet}, true},
		{"container frozen for components", &Entity{Kind: EntityKindDataSet, Freeze: FreezeFlags{Frozen: true, FrozenForComponents: true}}, OperationAddComponent, &Entity{Kind: EntityKindDataSet}, true},
		{"frozen blocks update", &Entity{Kind: EntityKindDataSet, Freeze: FreezeFlags{Frozen: true}}, OperationUpdate, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMutation(tt.target, tt.op, tt.subject)
			if tt.blocked {
				assert.ErrorIs(t, err, ErrFrozen)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckMutation_DoesNotMutate(t *testing.T) {
	e := &Entity{ID: "E1", Kind: EntityKindExperiment, Freeze: FreezeFlags{Frozen: true}}
	before := *e
	_ = CheckMutation(e, OperationDelete, nil)
	assert.Equal(t, before, *e)
}

func TestFreezeFlags_Merge(t *testing.T) {
	current := FreezeFlags{Frozen: true, FrozenForSamples: true}
	merged := current.Merge(FreezeFlags{FrozenForDataSets: true})
	assert.True(t, merged.Frozen)
	assert.True(t, merged.FrozenForSamples)
	assert.True(t, merged.FrozenForDataSets)

	// Merging an empty set never clears a flag.
	assert.Equal(t, merged, merged.Merge(FreezeFlags{}))
}

func TestFreezeFlags_ValidateFor(t *testing.T) {
	assert.NoError(t, FreezeFlags{Frozen: true}.ValidateFor(EntityKindDataSet))
	assert.NoError(t, FreezeFlags{Frozen: true, FrozenForProjects: true}.ValidateFor(EntityKindSpace))

	err := FreezeFlags{FrozenForSamples: true}.ValidateFor(EntityKindExperiment)
	assert.ErrorIs(t, err, ErrValidation)

	err = FreezeFlags{Frozen: true, FrozenForProjects: true}.ValidateFor(EntityKindSample)
	assert.ErrorIs(t, err, ErrValidation)
}
