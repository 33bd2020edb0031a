package repository

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"testing"

	promptforge "github.com/set-night/promptforge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) StateStore {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "state.db")
	store, err := Open(context.Background(), url, promptforge.MigrationsFS)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "tg:1", "promptHistory")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "tg:1", "promptHistory", `[]`))
	require.NoError(t, store.Put(ctx, "tg:1", "promptHistory", `[{"id":1}]`))
	require.NoError(t, store.Put(ctx, "tg:2", "promptHistory", `other`))

	v, ok, err := store.Get(ctx, "tg:1", "promptHistory")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, v)

	v, _, err = store.Get(ctx, "tg:2", "promptHistory")
	require.NoError(t, err)
	assert.Equal(t, "other", v)
}

func TestSQLiteStoreDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cli:default", "promptHistory", "h"))
	require.NoError(t, store.Put(ctx, "cli:default", "activePromptId", "2"))
	require.NoError(t, store.Put(ctx, "cli:other", "activePromptId", "5"))

	require.NoError(t, store.Delete(ctx, "cli:default", "promptHistory", "activePromptId"))
	require.NoError(t, store.Delete(ctx, "cli:default"))

	_, ok, err := store.Get(ctx, "cli:default", "activePromptId")
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := store.Get(ctx, "cli:other", "activePromptId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5", v)
}

func TestOpenMigratesTwice(t *testing.T) {
	url := "sqlite://" + filepath.Join(t.TempDir(), "state.db")
	for range 2 {
		store, err := Open(context.Background(), url, promptforge.MigrationsFS)
		require.NoError(t, err)
		require.NoError(t, store.Close())
	}
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/db", promptforge.MigrationsFS)
	assert.Error(t, err)
}

func TestEmbeddedMigrationsPerBackend(t *testing.T) {
	for _, backend := range []string{"sqlite", "postgres"} {
		sub, err := fs.Sub(promptforge.MigrationsFS, path.Join("migrations", backend))
		require.NoError(t, err)
		entries, err := fs.ReadDir(sub, ".")
		require.NoError(t, err, backend)
		assert.Len(t, entries, 2, backend)
	}
}
