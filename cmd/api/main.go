// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/quoteflow/cachecore/cache"
	"github.com/quoteflow/cachecore/internal/catalog"
	"github.com/quoteflow/cachecore/internal/config"
	"github.com/quoteflow/cachecore/internal/http/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Printf("starting cache api on :%s", cfg.Port)

	// Redis (backing store)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	// DB (business data behind the warming fetchers)
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	// Cache service + built-in warming task set
	svc := cache.New(rdb, logger)
	registry := cache.NewRegistry()
	if err := catalog.RegisterWarmingTasks(registry, catalog.New(pool)); err != nil {
		log.Fatalf("warming registry error: %v", err)
	}

	// Populate the critical entries before serving. Best effort: a failed
	// warm only costs cold-cache latency, never startup.
	if cfg.WarmOnStart {
		res := svc.WarmCritical(context.Background(), registry)
		logger.Info().Int("warmed", res.Warmed).Int("failed", res.Failed).Msg("startup warming done")
	}

	// Queue client for warm/refresh triggers from the control plane
	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if closeErr := queue.Close(); closeErr != nil {
			log.Printf("Error closing asynq client: %v", closeErr)
		}
	}()

	// Router / server
	s := routes.New(routes.ServerOptions{
		Cache:      svc,
		Registry:   registry,
		Queue:      queue,
		AdminToken: cfg.AdminToken,
		Log:        logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: h}
	log.Fatal(srv.ListenAndServe())
}
