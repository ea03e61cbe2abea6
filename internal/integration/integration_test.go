package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/domain"
	"trivia-party-service/internal/infra/memory"
	pginfra "trivia-party-service/internal/infra/postgres"
	pgmigrations "trivia-party-service/internal/infra/postgres/migrations"
	redisinfra "trivia-party-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestGameStartPersistsSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSessions(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	rooms := redisinfra.NewRoomStore(redisClient, 5*time.Minute)
	logger := pginfra.NewSessionLogger(pool)
	opts := app.DefaultOptions()
	opts.RequireReady = false
	coordinator := app.NewCoordinator(rooms, memory.NewGameStore(), &stubProvider{}, logger, opts)

	coordinator.EnsureRoom("ABCDE", "p1", nil)
	if _, err := coordinator.Join("ABCDE", domain.Player{ID: "p1", Name: "Alice"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := coordinator.Join("ABCDE", domain.Player{ID: "p2", Name: "Bob"}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := coordinator.StartGame(ctx, "ABCDE"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// The session append is fire-and-forget; poll for the row.
	deadline := time.Now().Add(10 * time.Second)
	for {
		var count int
		err := pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE room=$1`, "ABCDE").Scan(&count)
		if err == nil && count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected session row for room ABCDE, count=%d err=%v", count, err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Room liveness marker sits in redis until teardown.
	if n, err := redisClient.Exists(ctx, "trivia:room:ABCDE").Result(); err != nil || n != 1 {
		t.Fatalf("expected room liveness key, n=%d err=%v", n, err)
	}
	coordinator.Disconnect("p1")
	coordinator.Disconnect("p2")
	if n, _ := redisClient.Exists(ctx, "trivia:room:ABCDE").Result(); n != 0 {
		t.Fatalf("expected liveness key removed after teardown")
	}
}

func TestCategoryCacheAgainstRealRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startRedis(t, ctx)
	defer cleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := memory.NewStaticCatalogLoader(map[string]int{"General Knowledge": 9})
	cache := redisinfra.NewCategoryCache(client, loader, 5*time.Minute)

	id, err := cache.Resolve(ctx, "general knowledge")
	if err != nil || id != 9 {
		t.Fatalf("resolve: id=%d err=%v", id, err)
	}
}

type stubProvider struct{}

func (p *stubProvider) Fetch(_ context.Context, _ int, _ string) ([]domain.QuestionContent, error) {
	return []domain.QuestionContent{
		{Prompt: "What is 2 + 2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "5", "22"}},
	}, nil
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSessions(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
