package redis

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"trivia-party-service/internal/domain"
	"trivia-party-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CategoryCache caches the provider's category catalog in a Redis hash and
// falls back to a loader on cache miss.
// The catalog is stored as: HSET trivia:categories {name} {id}
type CategoryCache struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCategoryCache(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		client: client,
		loader: loader,
		ttl:    ttl,
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

// Catalog returns the catalog, reading the Redis hash first and filling it
// through singleflight on miss.
func (c *CategoryCache) Catalog(ctx context.Context) (map[string]int, error) {
	cached, err := c.client.HGetAll(ctx, c.key()).Result()
	if err == nil && len(cached) > 0 {
		return parseCatalog(cached), nil
	}

	result, err, _ := c.sf.Do(c.key(), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := c.client.HGetAll(ctx, c.key()).Result()
		if err == nil && len(cached) > 0 {
			return parseCatalog(cached), nil
		}

		catalog, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		for name, id := range catalog {
			pipe.HSet(ctx, c.key(), name, id)
		}
		if ttl > 0 {
			pipe.Expire(ctx, c.key(), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return catalog, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]int), nil
}

func (c *CategoryCache) key() string {
	return "trivia:categories"
}

func parseCatalog(cached map[string]string) map[string]int {
	catalog := make(map[string]int, len(cached))
	for name, raw := range cached {
		if id, err := strconv.Atoi(raw); err == nil {
			catalog[name] = id
		}
	}
	return catalog
}

func (c *CategoryCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
