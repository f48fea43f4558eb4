// Package cached wraps another embedder with a ristretto cache.
//
// The memory engine embeds the same text more than once in normal
// operation (capability probes, repeated queries, retrieve-then-store of
// the same exchange), and local model inference is the slow path, so a
// small in-process cache pays for itself quickly.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/holomentor/insight-go-sdk/memory"
)

// Config holds cache sizing.
type Config struct {
	// MaxEntries caps how many embeddings the cache holds.
	// Default: 4096.
	MaxEntries int64
}

// CachedEmbedder is a memory.Embedder that memoizes another embedder.
type CachedEmbedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// New wraps inner with a cache.
func New(inner memory.Embedder, cfg Config) (*CachedEmbedder, error) {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 4096
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10, // ristretto's recommended 10x ratio
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &CachedEmbedder{
		inner: inner,
		cache: cache,
	}, nil
}

// Embed returns a cached vector when the exact text was embedded before,
// otherwise delegates to the inner embedder and caches the result.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if value, found := c.cache.Get(text); found {
		if embedding, ok := value.([]float32); ok {
			return embedding, nil
		}
	}

	embedding, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// Each entry costs 1; MaxCost caps the entry count.
	c.cache.Set(text, embedding, 1)
	return embedding, nil
}

// Wait blocks until buffered cache writes are applied. Ristretto admits
// entries asynchronously; call this before relying on a warm cache.
func (c *CachedEmbedder) Wait() {
	c.cache.Wait()
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close releases the cache.
func (c *CachedEmbedder) Close() {
	c.cache.Close()
}
