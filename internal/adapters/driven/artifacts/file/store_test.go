package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marrow-labs/biblio-cli/internal/core/domain"
)

func artifact(id string, chunks int) domain.DocumentChunks {
	dc := domain.DocumentChunks{
		DocumentID: id,
		Title:      "Title " + id,
	}
	for i := 0; i < chunks; i++ {
		dc.Chunks = append(dc.Chunks, domain.Chunk{
			DocumentID:  id,
			Index:       i,
			TotalChunks: chunks,
			Text:        "text",
		})
	}
	return dc
}

func TestSaveHasWalk(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, artifact("PMC2", 2)))
	require.NoError(t, store.Save(ctx, artifact("PMC1", 3)))

	ok, err := store.Has(ctx, "PMC1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Has(ctx, "PMC9")
	require.NoError(t, err)
	assert.False(t, ok)

	var ids []string
	err = store.Walk(ctx, func(dc domain.DocumentChunks) error {
		ids = append(ids, dc.DocumentID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PMC1", "PMC2"}, ids)
}

func TestSave_Replaces(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, artifact("PMC1", 1)))
	require.NoError(t, store.Save(ctx, artifact("PMC1", 5)))

	var got domain.DocumentChunks
	err = store.Walk(ctx, func(dc domain.DocumentChunks) error {
		got = dc
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got.Chunks, 5)
}

func TestSave_EmptyID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), domain.DocumentChunks{})
	require.Error(t, err)
}

func TestWalk_ContextCancelled(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), artifact("PMC1", 1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = store.Walk(ctx, func(domain.DocumentChunks) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
