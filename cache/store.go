package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// store wraps the Redis client with the fail-open semantics the rest of the
// package relies on: reads degrade to misses, writes and deletes are
// best-effort, scans return nothing on error. A broken cache must look like
// an empty cache, never like a broken caller.
type store struct {
	client  *redis.Client
	metrics *Collector
	log     zerolog.Logger
}

// read fetches a key and reports the outcome (hit/miss plus duration) to the
// metrics collector. Transport errors are logged and counted as misses.
func (s *store) read(ctx context.Context, key string) ([]byte, bool) {
	start := time.Now()
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		s.metrics.Record(false, time.Since(start))
		return nil, false
	}
	s.metrics.Record(true, time.Since(start))
	return data, true
}

// write stores a value, with expiry when ttl > 0. Errors are logged and
// swallowed; a failed cache write must never fail the caller's operation.
func (s *store) write(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// remove deletes the given keys in one batch and returns how many existed.
func (s *store) remove(ctx context.Context, keys ...string) int {
	if len(keys) == 0 {
		return 0
	}
	n, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.log.Warn().Err(err).Int("keys", len(keys)).Msg("cache delete failed")
		return 0
	}
	return int(n)
}

// scan enumerates keys matching pattern, returning nil on error.
func (s *store) scan(ctx context.Context, pattern string) []string {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		s.log.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed")
		return nil
	}
	return keys
}

// ping reports backing-store connectivity, for health checks.
func (s *store) ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
