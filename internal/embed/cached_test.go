package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls.
type countingEmbedder struct {
	*StaticEmbedder
	embedCalls int
	batchCalls int
	batchTexts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embedCalls++
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls++
	c.batchTexts += len(texts)
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_SecondCallHitsCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)

	first, err := c.Embed(ctx, "repeated query")
	require.NoError(t, err)
	second, err := c.Embed(ctx, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(ctx, "warm")
	require.NoError(t, err)

	batch, err := c.EmbedBatch(ctx, []string{"cold one", "warm", "cold two"})
	require.NoError(t, err)
	require.Len(t, batch, 3)

	// Only the two misses went to the model, in one call.
	assert.Equal(t, 1, inner.batchCalls)
	assert.Equal(t, 2, inner.batchTexts)

	// Order preserved: the cached middle entry matches a direct embed.
	direct, err := inner.StaticEmbedder.Embed(ctx, "warm")
	require.NoError(t, err)
	assert.Equal(t, direct, batch[1])
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	c := NewCachedEmbedder(NewStaticEmbedder(), 10)
	out, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCachedEmbedder_PassesThroughMetadata(t *testing.T) {
	inner := NewStaticEmbedder()
	c := NewCachedEmbedder(inner, 10)

	assert.Equal(t, inner.Dimensions(), c.Dimensions())
	assert.Equal(t, inner.ModelName(), c.ModelName())
}
