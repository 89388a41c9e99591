package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tastebite/storefront/internal/api"
)

// Cache holds catalog reads for the lifetime of a page. Implementations may
// drop entries at any time; a miss just means a backend fetch.
type Cache interface {
	Get(ctx context.Context, key string) ([]api.Product, error)
	Set(ctx context.Context, key string, products []api.Product) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")

type memoryEntry struct {
	products  []api.Product
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache, the default when no Redis is
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: map[string]memoryEntry{},
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]api.Product, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	return entry.products, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, products []api.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{products: products, expiresAt: time.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
