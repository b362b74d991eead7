package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder tracks backend calls to verify cache behavior.
type countingEmbedder struct {
	inner Embedder
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int   { return c.inner.Dimensions() }
func (c *countingEmbedder) ModelName() string { return c.inner.ModelName() }

func TestCachedEmbedderAvoidsRecompute(t *testing.T) {
	counting := &countingEmbedder{inner: NewStaticEmbedder()}
	cached := NewCachedEmbedder(counting, 10)
	ctx := context.Background()

	v1, err := cached.Embed(ctx, "base rent")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "base rent")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, counting.calls)
}

func TestCachedEmbedderBatchOnlyEmbedsMisses(t *testing.T) {
	counting := &countingEmbedder{inner: NewStaticEmbedder()}
	cached := NewCachedEmbedder(counting, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "alpha")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, StaticDimensions)
	}

	// alpha was cached; only beta and gamma hit the backend.
	assert.Equal(t, 3, counting.calls)
}

func TestNewEmbedderFactory(t *testing.T) {
	e, err := NewEmbedder(Options{Backend: BackendStatic}, nil)
	require.NoError(t, err)
	assert.Equal(t, StaticDimensions, e.Dimensions())

	_, err = NewEmbedder(Options{Backend: "bogus"}, nil)
	assert.Error(t, err)

	_, err = NewEmbedder(Options{Backend: BackendOpenAI}, nil)
	assert.Error(t, err, "openai backend requires an api key")
}
