package redis

import (
	"context"
	"testing"
	"time"

	"trivia-party-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCategoryCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		CatalogLoader: memory.NewStaticCatalogLoader(map[string]int{
			"General Knowledge": 9,
			"History":           23,
		}),
	}
	cache := NewCategoryCache(client, loader, time.Minute)

	id, err := cache.Resolve(context.Background(), "History")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != 23 {
		t.Fatalf("expected id 23, got %d", id)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("trivia:categories") {
		t.Fatalf("expected catalog hash in redis")
	}

	// Second resolve should hit the redis hash, loader not incremented.
	if _, err := cache.Resolve(context.Background(), "General Knowledge"); err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.CatalogLoader
	calls int
}

func (l *countingLoader) LoadCatalog(ctx context.Context) (map[string]int, error) {
	l.calls++
	return l.CatalogLoader.LoadCatalog(ctx)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
