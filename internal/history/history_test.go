package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	CloseDB()
	Configure(filepath.Join(t.TempDir(), "nested", "history.db"))
	t.Cleanup(CloseDB)
}

func texts(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Text
	}
	return out
}

func TestDBLifecycle(t *testing.T) {
	setupTestDB(t)

	d, err := GetDB()
	require.NoError(t, err)
	d2, err := GetDB()
	require.NoError(t, err)
	assert.Same(t, d, d2)

	CloseDB()
	d3, err := GetDB()
	require.NoError(t, err)
	require.NotNil(t, d3)

	_, err = d3.Exec("SELECT id, text, created_at FROM history LIMIT 1")
	assert.NoError(t, err)
	_, err = d3.Exec("SELECT key, value FROM stats LIMIT 1")
	assert.NoError(t, err)
}

func TestGetDB_Unconfigured(t *testing.T) {
	CloseDB()
	Configure("")
	t.Cleanup(CloseDB)

	_, err := GetDB()
	assert.Error(t, err)
	assert.Error(t, Add(context.Background(), "x", 10))
}

func TestAdd_NewestFirst(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, Add(ctx, "https://a.co/", 10))
	require.NoError(t, Add(ctx, "https://b.co/", 10))
	require.NoError(t, Add(ctx, "https://c.co/", 10))

	items, err := Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.co/", "https://b.co/", "https://a.co/"}, texts(items))
	assert.False(t, items[0].Time.IsZero())
}

func TestAdd_DuplicateMovesToTop(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	for _, s := range []string{"a", "b", "c", "a"} {
		require.NoError(t, Add(ctx, s, 10))
	}

	items, err := Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, texts(items))

	n, err := Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestAdd_PrunesToLimit(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.NoError(t, Add(ctx, fmt.Sprintf("item-%02d", i), DefaultLimit))
	}

	items, err := Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, DefaultLimit)
	assert.Equal(t, "item-14", items[0].Text)
	assert.Equal(t, "item-05", items[DefaultLimit-1].Text)

	items, err = Recent(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"item-14", "item-13", "item-12"}, texts(items))
}

func TestClear_KeepsCounter(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, Add(ctx, "a", 10))
	require.NoError(t, Add(ctx, "b", 10))
	require.NoError(t, Clear(ctx))

	items, err := Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	n, err := Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCount_Empty(t *testing.T) {
	setupTestDB(t)
	n, err := Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
