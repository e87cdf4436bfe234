package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

// Role assignments used across tests.
var (
	InstanceAdmin = domain.RoleAssignment{Role: domain.RoleAdmin, Level: domain.RoleLevelInstance}
	InstanceUser  = domain.RoleAssignment{Role: domain.RoleUser, Level: domain.RoleLevelInstance}
)

func SpacePowerUser(space string) domain.RoleAssignment {
	return domain.RoleAssignment{Role: domain.RolePowerUser, Level: domain.RoleLevelSpace, Scope: space}
}

func SpaceObserver(space string) domain.RoleAssignment {
	return domain.RoleAssignment{Role: domain.RoleObserver, Level: domain.RoleLevelSpace, Scope: space}
}

// Seed writes entities straight into a store, bypassing the services.
// Scope fields must already be set on the entities.
func Seed(t *testing.T, store ports.EntityStore, entities ...*domain.Entity) {
	t.Helper()
	err := store.RunInTransaction(context.Background(), func(tx ports.StoreTx) error {
		for _, e := range entities {
			if e.Properties == nil {
				e.Properties = map[string]string{}
			}
			if e.RegisteredAt.IsZero() {
				e.RegisteredAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
				e.ModifiedAt = e.RegisteredAt
			}
			if err := tx.CreateEntity(context.Background(), e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func Space(code string) *domain.Entity {
	return &domain.Entity{ID: code, Code: code, Kind: domain.EntityKindSpace, SpaceCode: code}
}

func Sample(code, space string) *domain.Entity {
	owner := space
	return &domain.Entity{ID: code, Code: code, Kind: domain.EntityKindSample, SpaceCode: space, OwnerID: &owner}
}

// DataSet returns a data set owned by sample in space, optionally placed in containers.
func DataSet(code, space, sample string, kind domain.DataSetKind, containers ...string) *domain.Entity {
	owner := sample
	return &domain.Entity{
		ID:           code,
		Code:         code,
		Kind:         domain.EntityKindDataSet,
		DataSetKind:  kind,
		SpaceCode:    space,
		OwnerID:      &owner,
		ContainerIDs: containers,
	}
}
