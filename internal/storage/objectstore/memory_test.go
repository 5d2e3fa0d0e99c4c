package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pollsite/poll-api/internal/config"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "questions/a/b", strings.NewReader("png-bytes"), 9, "image/png"))
	assert.Equal(t, 1, store.Len())

	obj, err := store.Get(ctx, "questions/a/b")
	require.NoError(t, err)
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, int64(9), obj.Size)
}

func TestMemoryStoreSizeMismatch(t *testing.T) {
	store := NewMemoryStore()

	err := store.Put(context.Background(), "k", strings.NewReader("abc"), 10, "image/png")
	assert.Error(t, err)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", strings.NewReader("x"), 1, "image/gif"))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewFromConfigFallsBackToMemory(t *testing.T) {
	cfg := &config.Config{}

	store, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}
