package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder memoises vectors by text digest. Cached slices are shared;
// callers must not modify them.
type CachedEmbedder struct {
	next  EmbedderInterface
	cache *lru.Cache[[sha256.Size]byte, []float64]
}

func NewCachedEmbedder(next EmbedderInterface, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[[sha256.Size]byte, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed implements EmbedderInterface. Failures are not cached.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := sha256.Sum256([]byte(text))
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}
