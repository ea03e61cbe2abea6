package memory

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"trivia-party-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogLoader fetches the provider's category catalog (display name to
// provider category id).
type CatalogLoader interface {
	LoadCatalog(ctx context.Context) (map[string]int, error)
}

// CategoryCache caches the category catalog with TTL to avoid hitting the
// provider on every game start.
type CategoryCache struct {
	loader CatalogLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	catalog   map[string]int
	expiresAt time.Time
}

func NewCategoryCache(loader CatalogLoader, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Resolve maps a category display name to the provider's numeric id.
// Matching is case-insensitive.
func (c *CategoryCache) Resolve(ctx context.Context, name string) (int, error) {
	catalog, err := c.Catalog(ctx)
	if err != nil {
		return 0, err
	}
	for display, id := range catalog {
		if strings.EqualFold(display, name) {
			return id, nil
		}
	}
	return 0, domain.ErrCategoryNotFound
}

// Catalog returns the cached catalog, filling it through singleflight on miss.
func (c *CategoryCache) Catalog(ctx context.Context) (map[string]int, error) {
	now := c.clock()

	c.mu.RLock()
	if c.catalog != nil && c.expiresAt.After(now) {
		catalog := c.catalog
		c.mu.RUnlock()
		return catalog, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("catalog", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.catalog != nil && c.expiresAt.After(now) {
			catalog := c.catalog
			c.mu.RUnlock()
			return catalog, nil
		}
		c.mu.RUnlock()

		catalog, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.catalog = catalog
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]int), nil
}

// StaticCatalogLoader is a loader backed by a fixed map (useful for tests/demos).
type StaticCatalogLoader struct {
	catalog map[string]int
}

func NewStaticCatalogLoader(catalog map[string]int) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalog: catalog}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context) (map[string]int, error) {
	return l.catalog, nil
}

func (c *CategoryCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
