package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_EmptyPath(t *testing.T) {
	_, err := NewStore("")
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)

	cp, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cp.ProcessedIDs)
	assert.Empty(t, cp.QueryCursors)
	assert.False(t, cp.Seen("1"))
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)
	ctx := context.Background()

	cp, err := store.Load(ctx)
	require.NoError(t, err)

	cp.MarkProcessed("11", "12", "13")
	cp.MarkFailed("21", "22")
	cp.ClearFailed("22")
	cp.SetCursor("magnesium sleep", 40)
	require.NoError(t, store.Save(ctx, cp))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Seen("11"))
	assert.True(t, loaded.Seen("13"))
	assert.False(t, loaded.Seen("14"))
	assert.True(t, loaded.FailedIDs["21"])
	assert.False(t, loaded.FailedIDs["22"])
	assert.Equal(t, 40, loaded.Cursor("magnesium sleep"))
	assert.Equal(t, 0, loaded.Cursor("unknown query"))
}

func TestSave_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	cp, _ := store.Load(ctx)
	cp.MarkProcessed("1")
	require.NoError(t, store.Save(ctx, cp))

	cp.MarkProcessed("2")
	require.NoError(t, store.Save(ctx, cp))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "checkpoint.json", entries[0].Name())

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.Seen("1"))
	assert.True(t, loaded.Seen("2"))
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
}
