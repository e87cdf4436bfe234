package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/adapters/secondary/storetest"
	"dms-object-service/internal/core/ports/output"
)

// TestStore runs against the database named by DMS_TEST_POSTGRES_DSN. Each
// subtest starts from empty tables.
func TestStore(t *testing.T) {
	dsn := os.Getenv("DMS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DMS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	require.NoError(t, store.Migrate(ctx))

	storetest.Run(t, func(t *testing.T) ports.EntityStore {
		_, err := pool.Exec(ctx, `TRUNCATE dms_history, dms_content_copy, dms_entity_link, dms_entity, dms_deletion`)
		require.NoError(t, err)
		return store
	})
}
