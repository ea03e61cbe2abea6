package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/config"
	"trivia-party-service/internal/infra/jsonfile"
	"trivia-party-service/internal/infra/memory"
	"trivia-party-service/internal/infra/opentdb"
	pglogger "trivia-party-service/internal/infra/postgres"
	redisinfra "trivia-party-service/internal/infra/redis"
	transport "trivia-party-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "4000"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, time.Hour)

	providerTimeout := config.TTLDuration(cfg.Provider.Timeout, 10*time.Second)
	catalogTTL := config.TTLDuration(cfg.Provider.CatalogTTL, time.Hour)
	client := opentdb.NewClient(cfg.Provider.BaseURL, providerTimeout)

	var categories opentdb.CategoryResolver
	if redisClient != nil {
		categories = redisinfra.NewCategoryCache(redisClient, client, catalogTTL)
	} else {
		categories = memory.NewCategoryCache(client, catalogTTL)
	}
	provider := opentdb.NewProvider(client, categories)

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, redisTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	var sessions app.SessionLogger
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		sessions = pglogger.NewSessionLogger(pool)
	} else {
		path := cfg.SessionLog.Path
		if path == "" {
			path = "sessions.json"
		}
		sessions = jsonfile.NewSessionLogger(path)
	}

	opts := app.DefaultOptions()
	opts.RequireReady = cfg.RequireReady()
	opts.FetchTimeout = providerTimeout
	coordinator := app.NewCoordinator(rooms, memory.NewGameStore(), provider, sessions, opts)
	wsHandler := transport.NewWSHandler(coordinator)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
