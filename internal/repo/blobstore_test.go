package repo

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"botpanel/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func exerciseBlobStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "events:b1", []byte(`[1]`)))
	require.NoError(t, store.Set(ctx, "events:b1", []byte(`[1,2]`)))
	require.NoError(t, store.Set(ctx, "users:b1", []byte(`[]`)))

	got, ok, err := store.Get(ctx, "events:b1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[1,2]`, string(got))

	require.NoError(t, store.Delete(ctx, "events:b1", "users:b1", "never-existed"))
	_, ok, err = store.Get(ctx, "users:b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx))
}

func TestMemoryBlobStore(t *testing.T) {
	exerciseBlobStore(t, NewMemory())
}

func TestMemoryBlobStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value))
	value[0] = 'z'

	got, _, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteBlobStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blobs.db")

	store, err := Open(ctx, Options{Driver: "sqlite", SQLitePath: path, Migrations: migrations.Files}, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	exerciseBlobStore(t, store)
}

func TestSQLiteInMemory(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, Options{Driver: "sqlite", SQLitePath: ":memory:", Migrations: migrations.Files}, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	exerciseBlobStore(t, store)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "blobs.db")

	first, err := Open(ctx, Options{Driver: "sqlite", SQLitePath: path, Migrations: migrations.Files}, discardLogger())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "bots", []byte(`[]`)))
	require.NoError(t, first.Close())

	second, err := Open(ctx, Options{Driver: "sqlite", SQLitePath: path, Migrations: migrations.Files}, discardLogger())
	require.NoError(t, err)
	defer second.Close()

	_, ok, err := second.Get(ctx, "bots")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresBlobStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := Open(ctx, Options{Driver: "postgres", DatabaseURL: url, Migrations: migrations.Files}, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	exerciseBlobStore(t, store)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "mongo"}, discardLogger())
	assert.Error(t, err)
}
