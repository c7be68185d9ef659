package sqlcraft_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlcraft"
)

func prepare(t *testing.T, xdb *sqlx.DB, query string) *sqlx.Stmt {
	t.Helper()
	stmt, err := xdb.PreparexContext(context.Background(), query)
	require.NoError(t, err)
	return stmt
}

func TestStmtCache(t *testing.T) {
	_, xdb := sqliteDB(t)
	cache := sqlcraft.NewStmtCache()
	t.Cleanup(func() { _ = cache.Clear() })

	_, found := cache.Get("SELECT 1")
	assert.False(t, found)

	one := prepare(t, xdb, "SELECT 1")
	cache.Set("SELECT 1", one)
	got, found := cache.Get("SELECT 1")
	assert.True(t, found)
	assert.Same(t, one, got)
	assert.Equal(t, 1, cache.Size())

	// replacing an entry closes the old statement
	again := prepare(t, xdb, "SELECT 1")
	cache.Set("SELECT 1", again)
	got, _ = cache.Get("SELECT 1")
	assert.Same(t, again, got)
	assert.Error(t, one.QueryRowx().Err())

	cache.Set("SELECT 2", prepare(t, xdb, "SELECT 2"))
	assert.Equal(t, 2, cache.Size())

	require.NoError(t, cache.Clear())
	assert.Zero(t, cache.Size())
}

func TestStmtCacheTTL(t *testing.T) {
	_, xdb := sqliteDB(t)
	cache := sqlcraft.NewStmtCache(sqlcraft.WithCacheTTL(10 * time.Millisecond))
	t.Cleanup(func() { _ = cache.Clear() })

	cache.Set("SELECT 1", prepare(t, xdb, "SELECT 1"))
	_, found := cache.Get("SELECT 1")
	assert.True(t, found)

	time.Sleep(20 * time.Millisecond)
	_, found = cache.Get("SELECT 1")
	assert.False(t, found)
	assert.Zero(t, cache.Size())
}
