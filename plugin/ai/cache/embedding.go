package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"
)

const (
	// DefaultEmbeddingCacheSize bounds the number of cached query vectors.
	DefaultEmbeddingCacheSize = 512
	// DefaultEmbeddingTTL is how long a query vector stays valid.
	DefaultEmbeddingTTL = 30 * time.Minute
)

// EmbeddingCache caches query embeddings keyed by backend, model and text.
// Returned vectors are shared and must not be modified.
type EmbeddingCache struct {
	lru    *LRUCache[[]float32]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewEmbeddingCache creates a cache holding up to size vectors for ttl.
func NewEmbeddingCache(size int, ttl time.Duration) *EmbeddingCache {
	if size <= 0 {
		size = DefaultEmbeddingCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultEmbeddingTTL
	}
	return &EmbeddingCache{lru: NewLRUCache[[]float32](size, ttl)}
}

// Get returns the cached vector for text. A nil cache always misses.
func (c *EmbeddingCache) Get(backendID, model, text string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	vector, ok := c.lru.Get(embeddingKey(backendID, model, text))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return vector, ok
}

// Set stores the vector for text. Empty vectors are not cached.
func (c *EmbeddingCache) Set(backendID, model, text string, vector []float32) {
	if c == nil || len(vector) == 0 {
		return
	}
	c.lru.Set(embeddingKey(backendID, model, text), vector, 0)
}

// InvalidateBackend drops every vector produced by the backend.
func (c *EmbeddingCache) InvalidateBackend(backendID string) int {
	if c == nil {
		return 0
	}
	return c.lru.Invalidate(backendID + ":*")
}

// Stats returns the hit and miss counters.
func (c *EmbeddingCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Size returns the number of cached vectors.
func (c *EmbeddingCache) Size() int {
	if c == nil {
		return 0
	}
	return c.lru.Size()
}

func embeddingKey(backendID, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return backendID + ":" + model + ":" + hex.EncodeToString(sum[:])
}
