// Package cache implements the namespaced caching layer used by the
// quoteflow services: JSON values in Redis addressed by canonical keys, with
// tag and dependency reverse indices for bulk invalidation, a priority-driven
// warming registry and a background refresher.
//
// The cache is strictly an optimization layer. Every operation fails open:
// store errors degrade to misses or silent no-ops so that a Redis outage
// never breaks the business operation being cached. The one exception is
// GetOrSet's fetch function: its error is the caller's actual data and does
// propagate.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options control how an entry is written.
type Options struct {
	// TTL is the entry's expiry. Zero means no expiry.
	TTL time.Duration
	// Tags are category labels the entry is indexed under for bulk
	// invalidation (e.g. "products").
	Tags []string
	// Dependencies are external-resource identifiers the entry's validity
	// is tied to (e.g. "quote:1234").
	Dependencies []string
}

// FetchFunc computes a fresh value for a cache entry. The cache never
// inspects the value beyond JSON-serializing it.
type FetchFunc func(ctx context.Context) (any, error)

// Service is the caller-facing cache. Safe for concurrent use; it adds no
// locking of its own around store operations, so concurrent writes to the
// same canonical key race exactly as Redis's last-write-wins allows.
type Service struct {
	store   *store
	metrics *Collector
	log     zerolog.Logger
}

// New builds a Service on top of an existing Redis client. The caller owns
// the client's lifecycle.
func New(client *redis.Client, log zerolog.Logger) *Service {
	metrics := NewCollector()
	return &Service{
		store:   &store{client: client, metrics: metrics, log: log},
		metrics: metrics,
		log:     log,
	}
}

// Get returns the raw JSON stored under (namespace, key, params), or
// ok=false on a miss. Store errors read as misses.
func (s *Service) Get(ctx context.Context, namespace, key string, params map[string]any) (json.RawMessage, bool) {
	data, ok := s.store.read(ctx, Key(namespace, key, params))
	if !ok {
		return nil, false
	}
	return data, true
}

// Set serializes value and stores it under the canonical key, registering it
// in the tag and dependency indices named in opts. Best-effort: failures are
// logged, never returned.
func (s *Service) Set(ctx context.Context, namespace, key string, value any, opts Options, params map[string]any) {
	ck := Key(namespace, key, params)
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Error().Err(err).Str("key", ck).Msg("value not serializable, skipping cache write")
		return
	}
	s.store.write(ctx, ck, data, opts.TTL)
	for _, tag := range opts.Tags {
		s.store.addToIndex(ctx, tagKey(tag), ck)
	}
	for _, dep := range opts.Dependencies {
		s.store.addToIndex(ctx, depKey(dep), ck)
	}
}

// GetOrSet is the read-through path: on a miss it calls fetch, stores the
// result with opts and returns it. A fetch error propagates to the caller;
// the fetched value is the data the caller actually needs, not a cache
// internality.
func (s *Service) GetOrSet(ctx context.Context, namespace, key string, fetch FetchFunc, opts Options, params map[string]any) (json.RawMessage, error) {
	if data, ok := s.Get(ctx, namespace, key, params); ok {
		return data, nil
	}
	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	s.Set(ctx, namespace, key, value, opts, params)
	return data, nil
}

// Delete removes the entry and scrubs its canonical key from every tag and
// dependency index that might reference it.
func (s *Service) Delete(ctx context.Context, namespace, key string, params map[string]any) {
	ck := Key(namespace, key, params)
	s.store.remove(ctx, ck)
	s.store.scrubIndexes(ctx, ck)
}

// Metrics returns a point-in-time copy of the hit/miss counters.
func (s *Service) Metrics() Metrics {
	return s.metrics.Snapshot()
}

// ResetMetrics zeroes the counters and the latency window.
func (s *Service) ResetMetrics() {
	s.metrics.Reset()
}

// Ping reports backing-store connectivity, for health endpoints.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.ping(ctx)
}

// GetValue is a typed Get: it decodes the cached JSON into T. Decode
// failures read as misses (a corrupt entry is as good as absent).
func GetValue[T any](ctx context.Context, s *Service, namespace, key string, params map[string]any) (T, bool) {
	var v T
	data, ok := s.Get(ctx, namespace, key, params)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		s.log.Warn().Err(err).Str("key", Key(namespace, key, params)).Msg("cached value failed to decode")
		var zero T
		return zero, false
	}
	return v, true
}
