package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dms-object-service/internal/config"
	"dms-object-service/internal/core/domain"
	"dms-object-service/internal/core/ports/output"
)

func exerciseArchive(t *testing.T, a ports.ManifestArchive) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "deletions/b.json", []byte(`{"b":1}`), "application/json"))
	require.NoError(t, a.Put(ctx, "deletions/a.json", []byte(`{"a":1}`), "application/json"))
	require.NoError(t, a.Put(ctx, "other/c.json", []byte(`{}`), "application/json"))

	body, err := a.Get(ctx, "deletions/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(body))

	keys, err := a.List(ctx, "deletions/")
	require.NoError(t, err)
	assert.Equal(t, []string{"deletions/a.json", "deletions/b.json"}, keys)

	require.NoError(t, a.Put(ctx, "deletions/a.json", []byte(`{"a":2}`), "application/json"))
	body, err = a.Get(ctx, "deletions/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(body))

	_, err = a.Get(ctx, "deletions/missing.json")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)

	assert.Error(t, a.Put(ctx, "../escape.json", []byte(`{}`), ""))
	assert.Error(t, a.Put(ctx, "/abs.json", []byte(`{}`), ""))
}

func TestMemory(t *testing.T) {
	exerciseArchive(t, NewMemory())
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "k", []byte("abc"), ""))

	body, err := m.Get(ctx, "k")
	require.NoError(t, err)
	body[0] = 'x'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestFilesystem(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFilesystem(root)
	require.NoError(t, err)
	exerciseArchive(t, fs)

	_, err = os.Stat(filepath.Join(root, "deletions", "a.json"))
	assert.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(root, "deletions"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files are cleaned up")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, config.ArchiveConfig{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = Open(ctx, config.ArchiveConfig{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, a)

	a, err = Open(ctx, config.ArchiveConfig{Driver: DriverFilesystem, Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Filesystem{}, a)

	_, err = Open(ctx, config.ArchiveConfig{Driver: DriverS3})
	assert.Error(t, err, "bucket is required")

	_, err = Open(ctx, config.ArchiveConfig{Driver: "tape"})
	assert.Error(t, err)
}
