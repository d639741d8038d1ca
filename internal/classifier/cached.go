package classifier

import (
	"context"
	"strings"
	"time"

	"utgifter/internal/cache"
	"utgifter/internal/core"
)

// Cached remembers successful answers per description. Fallback answers
// are never stored so a recovered inference server is used right away.
type Cached struct {
	next     Classifier
	fallback string
	cache    *cache.LRUCache[string]
}

func NewCached(next Classifier, fallback string, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:     next,
		fallback: fallback,
		cache:    cache.NewLRUCache[string](size, ttl),
	}
}

func (c *Cached) Classify(ctx context.Context, description string) string {
	key := cacheKey(description)
	if label, ok := c.cache.Get(key); ok {
		classificationsTotal.WithLabelValues(outcomeCacheHit).Inc()
		return label
	}

	label := c.next.Classify(ctx, description)
	if !core.SameCategory(label, c.fallback) {
		c.cache.Set(key, label)
	}
	return label
}

// Cache exposes the underlying cache so it can be registered for cleanup.
func (c *Cached) Cache() *cache.LRUCache[string] {
	return c.cache
}

func cacheKey(description string) string {
	return strings.ToLower(strings.Join(strings.Fields(description), " "))
}
