package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type storedValue struct {
	value []byte
	ttl   time.Duration
}

// stubRedis answers GET, SET and DEL from a map; other commands are not used by RedisCache.
type stubRedis struct {
	redis.Cmdable
	data map[string]storedValue
	err  error
}

func newStubRedis() *stubRedis {
	return &stubRedis{data: map[string]storedValue{}}
}

func (s *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if s.err != nil {
		return redis.NewStringResult("", s.err)
	}
	v, ok := s.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v.value), nil)
}

func (s *stubRedis) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	if s.err != nil {
		return redis.NewStatusResult("", s.err)
	}
	s.data[key] = storedValue{value: value.([]byte), ttl: ttl}
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if s.err != nil {
		return redis.NewIntResult(0, s.err)
	}
	var n int64
	for _, k := range keys {
		if _, ok := s.data[k]; ok {
			delete(s.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisCache_GetSetWithPrefix(t *testing.T) {
	stub := newStubRedis()
	c := NewRedisCache(stub, RedisConfig{Prefix: "pokeapp"})
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "species:pikachu"); err != nil || hit {
		t.Fatalf("expected clean miss, got hit=%v err=%v", hit, err)
	}

	if err := c.Set(ctx, "species:pikachu", []byte(`{"name":"pikachu"}`), 10*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	stored, ok := stub.data["pokeapp:species:pikachu"]
	if !ok {
		t.Fatalf("expected prefixed key, have %v", stub.data)
	}
	if stored.ttl != 10*time.Minute {
		t.Fatalf("expected ttl 10m, got %v", stored.ttl)
	}

	got, hit, err := c.Get(ctx, "species:pikachu")
	if err != nil || !hit || string(got) != `{"name":"pikachu"}` {
		t.Fatalf("unexpected get: %q hit=%v err=%v", got, hit, err)
	}
}

func TestRedisCache_NoPrefix(t *testing.T) {
	stub := newStubRedis()
	c := NewRedisCache(stub, RedisConfig{})

	if err := c.Set(context.Background(), "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := stub.data["k"]; !ok {
		t.Fatalf("expected bare key, have %v", stub.data)
	}
}

func TestRedisCache_NonPositiveTTLDeletes(t *testing.T) {
	stub := newStubRedis()
	c := NewRedisCache(stub, RedisConfig{Prefix: "p"})
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if err := c.Set(ctx, "k", []byte("v2"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Fatalf("expected key removed")
	}
}

func TestRedisCache_Errors(t *testing.T) {
	stub := newStubRedis()
	stub.err = errors.New("connection refused")
	c := NewRedisCache(stub, RedisConfig{})
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "k"); err == nil || hit {
		t.Fatalf("expected error miss, got hit=%v err=%v", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Fatalf("expected set error")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := c.Get(cancelled, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
