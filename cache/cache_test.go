package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *redis.Client, *Service) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client, New(client, zerolog.Nop())
}

type product struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func TestRoundTrip(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "products", "42", product{Name: "desk", Price: 249.99}, Options{TTL: time.Hour}, nil)

	got, ok := GetValue[product](ctx, c, "products", "42", nil)
	require.True(t, ok)
	assert.Equal(t, product{Name: "desk", Price: 249.99}, got)
}

func TestRoundTripWithParams(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()
	params := map[string]any{"page": 1, "per_page": 20}

	c.Set(ctx, "products", "list", []string{"a", "b"}, Options{}, params)

	got, ok := GetValue[[]string](ctx, c, "products", "list", params)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	// Different params are a different entry.
	_, ok = c.Get(ctx, "products", "list", map[string]any{"page": 2, "per_page": 20})
	assert.False(t, ok)
}

func TestTTLSemantics(t *testing.T) {
	mr, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "expiring", "v", Options{TTL: time.Hour}, nil)
	assert.Equal(t, time.Hour, mr.TTL(Key("ns", "expiring", nil)))

	c.Set(ctx, "ns", "forever", "v", Options{}, nil)
	assert.Zero(t, mr.TTL(Key("ns", "forever", nil)))

	mr.FastForward(2 * time.Hour)
	_, ok := c.Get(ctx, "ns", "expiring", nil)
	assert.False(t, ok)
	_, ok = c.Get(ctx, "ns", "forever", nil)
	assert.True(t, ok)
}

func TestGetMiss(t *testing.T) {
	_, _, c := newTestCache(t)

	_, ok := c.Get(context.Background(), "ns", "nope", nil)
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Metrics().Misses)
}

func TestFailOpenRead(t *testing.T) {
	mr, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "k", "v", Options{}, nil)

	mr.SetError("backing store unreachable")
	_, ok := c.Get(ctx, "ns", "k", nil)
	assert.False(t, ok, "store errors must read as misses")
	assert.Equal(t, int64(1), c.Metrics().Misses)

	mr.SetError("")
	_, ok = c.Get(ctx, "ns", "k", nil)
	assert.True(t, ok, "entry survives once the store recovers")
}

func TestFailOpenWrite(t *testing.T) {
	mr, _, c := newTestCache(t)
	ctx := context.Background()

	mr.SetError("backing store unreachable")
	// Must not panic or surface anything.
	c.Set(ctx, "ns", "k", "v", Options{TTL: time.Minute, Tags: []string{"t"}}, nil)
	c.Delete(ctx, "ns", "k", nil)
	assert.Zero(t, c.ClearNamespace(ctx, "ns"))
}

func TestUnserializableValueSkipsWrite(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "bad", func() {}, Options{}, nil)

	_, ok := c.Get(ctx, "ns", "bad", nil)
	assert.False(t, ok)
}

func TestGetOrSet(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return product{Name: "chair", Price: 99}, nil
	}

	data, err := c.GetOrSet(ctx, "products", "7", fetch, Options{TTL: time.Hour}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"chair","price":99}`, string(data))
	assert.Equal(t, 1, calls)

	// Second call is served from the cache.
	data, err = c.GetOrSet(ctx, "products", "7", fetch, Options{TTL: time.Hour}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"chair","price":99}`, string(data))
	assert.Equal(t, 1, calls)
}

func TestGetOrSetFetchErrorPropagates(t *testing.T) {
	_, _, c := newTestCache(t)

	boom := errors.New("upstream down")
	_, err := c.GetOrSet(context.Background(), "ns", "k", func(ctx context.Context) (any, error) {
		return nil, boom
	}, Options{}, nil)

	assert.ErrorIs(t, err, boom)
}

func TestTagInvalidation(t *testing.T) {
	_, client, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "products", "1", "a", Options{Tags: []string{"products"}}, nil)
	c.Set(ctx, "products", "2", "b", Options{Tags: []string{"products"}}, nil)
	c.Set(ctx, "quotes", "9", "q", Options{Tags: []string{"quotes"}}, nil)

	removed := c.InvalidateByTags(ctx, []string{"products"})
	assert.Equal(t, 2, removed)

	_, ok := c.Get(ctx, "products", "1", nil)
	assert.False(t, ok)
	_, ok = c.Get(ctx, "products", "2", nil)
	assert.False(t, ok)
	_, ok = c.Get(ctx, "quotes", "9", nil)
	assert.True(t, ok, "unrelated tag must survive")

	// The tag set itself is gone, so a second pass is a clean no-op.
	n, err := client.Exists(ctx, "tag:products").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, c.InvalidateByTags(ctx, []string{"products"}))
}

func TestDependencyIsolation(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "tagged", "a", Options{Tags: []string{"t2"}}, nil)
	c.Set(ctx, "ns", "dep1", "b", Options{Dependencies: []string{"d1"}}, nil)
	c.Set(ctx, "ns", "dep2", "c", Options{Dependencies: []string{"d2"}}, nil)

	assert.Equal(t, 1, c.InvalidateByDependencies(ctx, []string{"d1"}))

	_, ok := c.Get(ctx, "ns", "dep1", nil)
	assert.False(t, ok)
	_, ok = c.Get(ctx, "ns", "tagged", nil)
	assert.True(t, ok)
	_, ok = c.Get(ctx, "ns", "dep2", nil)
	assert.True(t, ok)
}

func TestOverlappingInvalidation(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	// One entry under two tags invalidated in the same call: deleted once.
	c.Set(ctx, "ns", "both", "v", Options{Tags: []string{"a", "b"}}, nil)

	removed := c.InvalidateByTags(ctx, []string{"a", "b"})
	assert.Equal(t, 1, removed)
}

func TestDeleteScrubsIndices(t *testing.T) {
	_, client, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "k", "v", Options{Tags: []string{"t1", "t2"}, Dependencies: []string{"d1"}}, nil)
	c.Set(ctx, "ns", "other", "w", Options{Tags: []string{"t1"}}, nil)

	c.Delete(ctx, "ns", "k", nil)

	_, ok := c.Get(ctx, "ns", "k", nil)
	assert.False(t, ok)

	ck := Key("ns", "k", nil)
	for _, indexKey := range []string{"tag:t1", "tag:t2", "dep:d1"} {
		members, err := client.SMembers(ctx, indexKey).Result()
		require.NoError(t, err)
		assert.NotContains(t, members, ck, "deleted key must be scrubbed from %s", indexKey)
	}

	// The sibling entry keeps its index membership.
	members, err := client.SMembers(ctx, "tag:t1").Result()
	require.NoError(t, err)
	assert.Contains(t, members, Key("ns", "other", nil))
}

func TestClearNamespace(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "a", 1, Options{}, nil)
	c.Set(ctx, "ns", "b", 2, Options{}, nil)
	c.Set(ctx, "other", "c", 3, Options{}, nil)

	assert.Equal(t, 2, c.ClearNamespace(ctx, "ns"))

	_, ok := c.Get(ctx, "ns", "a", nil)
	assert.False(t, ok)
	_, ok = c.Get(ctx, "ns", "b", nil)
	assert.False(t, ok)

	got, ok := GetValue[int](ctx, c, "other", "c", nil)
	require.True(t, ok)
	assert.Equal(t, 3, got)

	assert.Zero(t, c.ClearNamespace(ctx, "ns"))
}

func TestMetricsArithmetic(t *testing.T) {
	_, _, c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "ns", "k", "v", Options{}, nil)
	c.Get(ctx, "ns", "k", nil)    // hit
	c.Get(ctx, "ns", "nope", nil) // miss

	m := c.Metrics()
	assert.Equal(t, int64(1), m.Hits)
	assert.Equal(t, int64(1), m.Misses)
	assert.Equal(t, float64(50), m.HitRate)

	c.ResetMetrics()
	m = c.Metrics()
	assert.Zero(t, m.TotalOperations)
	assert.Zero(t, m.HitRate)
}
