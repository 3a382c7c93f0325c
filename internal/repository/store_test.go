package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/bebop/internal/domain"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewKVStore(openTestDB(t), "test")

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "a", "1"))
	require.NoError(t, kv.Set(ctx, "a", "2"))
	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, kv.SetDefault(ctx, "a", "3"))
	v, err = kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, kv.Delete(ctx, "a"))
	require.NoError(t, kv.Delete(ctx, "a"))
	_, err = kv.Get(ctx, "a")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKVStoreNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	a := NewKVStore(db, "a")
	b := NewKVStore(db, "b")

	require.NoError(t, a.Set(ctx, "k", "from-a"))
	_, err := b.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository(openTestDB(t))

	token, err := repo.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, repo.SetToken(ctx, "abc123"))
	token, err = repo.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	require.NoError(t, repo.ClearToken(ctx))
	token, err = repo.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestCacheRepositoryDefaultsAndAppend(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository(openTestDB(t))

	require.NoError(t, repo.Set(ctx, domain.CacheKeyHead, json.RawMessage(`{"height":7}`)))
	require.NoError(t, repo.Defaults(ctx))

	head, err := repo.Get(ctx, domain.CacheKeyHead)
	require.NoError(t, err)
	assert.JSONEq(t, `{"height":7}`, string(head))

	blocks, err := repo.Get(ctx, domain.CacheKeyBlocks)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(blocks))

	require.NoError(t, repo.Append(ctx, domain.CacheKeyBlocks, json.RawMessage(`{"height":1}`)))
	require.NoError(t, repo.Append(ctx, domain.CacheKeyBlocks, json.RawMessage(`{"height":2}`)))
	blocks, err = repo.Get(ctx, domain.CacheKeyBlocks)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"height":1},{"height":2}]`, string(blocks))
}

func TestCacheRepositoryRejectsInvalidJSON(t *testing.T) {
	repo := NewCacheRepository(openTestDB(t))
	err := repo.Set(context.Background(), domain.CacheKeyHead, json.RawMessage(`{`))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
