package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_ServesRepeatsFromCache(t *testing.T) {
	// Given: a cached embedder over a counting inner embedder
	ctx := context.Background()
	inner := &countingEmbedder{model: "m1"}
	c := NewCachedEmbedder(inner, 10)

	// When: embedding the same query twice and a new one once
	first, err := c.Embed(ctx, "tax return")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "tax return")
	require.NoError(t, err)
	_, err = c.Embed(ctx, "photos")
	require.NoError(t, err)

	// Then: the model ran once per distinct text
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestCachedEmbedder_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{model: "m1"}
	c := NewCachedEmbedder(inner, 1)

	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, "b")
	_, _ = c.Embed(ctx, "a")

	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := &countingEmbedder{model: "m1"}
	c := NewCachedEmbedder(inner, 0)

	assert.NoError(t, c.Load(context.Background()))
	assert.NoError(t, c.Unload())
	assert.Equal(t, "m1", c.ModelName())
	assert.Equal(t, 2, c.Dimensions())
	assert.Same(t, inner, c.Inner())
}
