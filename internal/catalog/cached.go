package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/metrics"
	"github.com/cesargomez89/mediasync/internal/store"
)

type Cache interface {
	GetCache(key string) ([]byte, error)
	SetCache(key string, data []byte, ttl time.Duration) error
	ClearCache() error
}

// Source is a catalog that can both search and list trending titles.
type Source interface {
	Searcher
	Trender
}

// CachedSource memoizes raw search and trending payloads. Errors are never
// cached.
type CachedSource struct {
	source   Source
	cache    Cache
	cacheTTL time.Duration
}

func NewCachedSource(source Source, cache Cache, cacheTTL time.Duration) *CachedSource {
	return &CachedSource{
		source:   source,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

func (c *CachedSource) Provider() domain.Provider {
	return c.source.Provider()
}

func (c *CachedSource) Search(ctx context.Context, query string, mt domain.MediaType) ([]json.RawMessage, error) {
	key := fmt.Sprintf("search:%s:%s:%s", c.source.Provider(), mt, strings.ToLower(strings.TrimSpace(query)))
	return c.cached(key, func() ([]json.RawMessage, error) {
		return c.source.Search(ctx, query, mt)
	})
}

func (c *CachedSource) Trending(ctx context.Context, mt domain.MediaType) ([]json.RawMessage, error) {
	key := fmt.Sprintf("trending:%s:%s", c.source.Provider(), mt)
	return c.cached(key, func() ([]json.RawMessage, error) {
		return c.source.Trending(ctx, mt)
	})
}

func (c *CachedSource) cached(key string, load func() ([]json.RawMessage, error)) ([]json.RawMessage, error) {
	provider := string(c.source.Provider())

	data, err := c.cache.GetCache(key)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err == nil {
			metrics.CacheHits.WithLabelValues(provider).Inc()
			return items, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(provider).Inc()

	items, err := load()
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		_ = c.cache.SetCache(key, data, c.cacheTTL)
	}

	return items, nil
}

func (c *CachedSource) ClearCache() error {
	return c.cache.ClearCache()
}

var _ Source = (*CachedSource)(nil)

// NewStoreCache exposes the database cache table as a Cache.
func NewStoreCache(db *store.DB) Cache {
	return &storeCache{store: db}
}

type storeCache struct {
	store *store.DB
}

func (s *storeCache) GetCache(key string) ([]byte, error) {
	return s.store.GetCache(key)
}

func (s *storeCache) SetCache(key string, data []byte, ttl time.Duration) error {
	return s.store.SetCache(key, data, ttl)
}

func (s *storeCache) ClearCache() error {
	return s.store.ClearCache()
}

var _ Cache = (*storeCache)(nil)
