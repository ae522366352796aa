package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/serroba/shortlink/internal/shortener"
)

const memoryCacheCleanupInterval = 10 * time.Minute

// MemoryCache is an in-process implementation of shortener.Cache.
type MemoryCache struct {
	engine *gocache.Cache
}

// NewMemoryCache creates a new in-process resolution cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		engine: gocache.New(gocache.NoExpiration, memoryCacheCleanupInterval),
	}
}

func (m *MemoryCache) Get(_ context.Context, code shortener.Code) (string, error) {
	v, found := m.engine.Get(string(code))
	if !found {
		return "", shortener.ErrCacheMiss
	}

	address, ok := v.(string)
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	return address, nil
}

// Set stores the address; a zero ttl keeps it until invalidated.
func (m *MemoryCache) Set(_ context.Context, code shortener.Code, address string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	m.engine.Set(string(code), address, ttl)

	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, code shortener.Code) error {
	m.engine.Delete(string(code))

	return nil
}

// Compile-time check.
var _ shortener.Cache = (*MemoryCache)(nil)
