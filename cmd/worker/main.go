// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quoteflow/cachecore/cache"
	"github.com/quoteflow/cachecore/internal/catalog"
	"github.com/quoteflow/cachecore/internal/config"
	"github.com/quoteflow/cachecore/internal/jobs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	svc := cache.New(rdb, logger)
	registry := cache.NewRegistry()
	if err := catalog.RegisterWarmingTasks(registry, catalog.New(pool)); err != nil {
		log.Fatalf("warming registry error: %v", err)
	}

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			jobs.QueueWarming: 10, // higher priority
			"default":         5,  // default priority
		},
	})
	mux := asynq.NewServeMux()

	// Warming and refresh passes absorb per-task failures themselves, so
	// handlers always return nil; there is nothing useful to retry at the
	// job level that the next scheduled pass won't cover.
	mux.HandleFunc(jobs.TaskWarmAll, func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		res := svc.WarmAll(ctx, registry)
		log.Printf("[warm] all done warmed=%d failed=%d duration=%v", res.Warmed, res.Failed, time.Since(start))
		return nil
	})
	mux.HandleFunc(jobs.TaskWarmCritical, func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		res := svc.WarmCritical(ctx, registry)
		log.Printf("[warm] critical done warmed=%d failed=%d duration=%v", res.Warmed, res.Failed, time.Since(start))
		return nil
	})
	mux.HandleFunc(jobs.TaskRefresh, func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		res := svc.Refresh(ctx, registry)
		log.Printf("[refresh] done refreshed=%d fresh=%d failed=%d duration=%v", res.Refreshed, res.Fresh, res.Failed, time.Since(start))
		return nil
	})

	// Periodic triggers: a cron full warm plus a fixed-interval refresh of
	// the high-priority tiers.
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, nil)
	if _, err := scheduler.Register(cfg.WarmAllCron, asynq.NewTask(jobs.TaskWarmAll, nil), asynq.Queue(jobs.QueueWarming)); err != nil {
		log.Fatalf("register warm schedule: %v", err)
	}
	refreshSpec := fmt.Sprintf("@every %s", cfg.RefreshInterval)
	if _, err := scheduler.Register(refreshSpec, asynq.NewTask(jobs.TaskRefresh, nil), asynq.Queue(jobs.QueueWarming)); err != nil {
		log.Fatalf("register refresh schedule: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("scheduler start: %v", err)
	}
	defer scheduler.Shutdown()

	log.Println("Cache worker running...")
	log.Fatal(srv.Run(mux))
}
