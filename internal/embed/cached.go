package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of distinct texts cached by
// CachedEmbedder.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache keyed on text content,
// avoiding recomputation when the same chunk text (or repeated query) is
// embedded more than once, e.g. across incremental re-indexing passes where
// most chunks are unchanged.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU cache holding up to size
// distinct embeddings. size <= 0 uses DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Initialize delegates to the wrapped embedder.
func (c *CachedEmbedder) Initialize(ctx context.Context) error {
	return c.inner.Initialize(ctx)
}

// Dispose delegates to the wrapped embedder.
func (c *CachedEmbedder) Dispose() error {
	return c.inner.Dispose()
}

// Dimension delegates to the wrapped embedder.
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// Embed returns the cached vector for text if present, otherwise computes
// it via the wrapped embedder and caches the result.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
