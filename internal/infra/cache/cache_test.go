package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/infra/cache"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := cache.New[bool](0)
	defer c.Close()

	c.Set("reminder:inst-1", true)
	time.Sleep(20 * time.Millisecond)

	if v, ok := c.Get("reminder:inst-1"); !ok || !v {
		t.Fatal("expected entry to persist with a zero TTL")
	}
}

func TestCache_NegativeTTL(t *testing.T) {
	c := cache.New[float64](-time.Minute)
	defer c.Close()

	c.Set("threshold", 10000)
	if v, ok := c.Get("threshold"); !ok || v != 10000 {
		t.Fatalf("expected 10000, got %v (found=%v)", v, ok)
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("key1", "value1")
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected cache to stay readable after Close")
	}
}

func TestRedis_UnavailableDegradesToMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := cache.NewRedis[string](rdb, "test:", time.Minute, zap.NewNop())
	c.Set("key1", "value1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected miss when redis is unreachable")
	}
	c.Delete("key1")
}

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := cache.Connect(context.Background(), "not-a-redis-url"); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
