package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupMiniRedis creates a miniredis server for testing.
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

func TestNewRedisCache(t *testing.T) {
	mr := setupMiniRedis(t)

	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), Prefix: "cybered:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()
}

func TestNewRedisCacheUnreachable(t *testing.T) {
	mr := setupMiniRedis(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := NewRedisCache(ctx, RedisConfig{Addr: addr}); err == nil {
		t.Error("NewRedisCache should fail when the server is down")
	}
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "cybered:")
	defer c.Close()

	if _, hit, err := c.Get(ctx, "coursesList"); hit || err != nil {
		t.Fatalf("Get on empty = %v, %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "coursesList", []byte(`[{"id":1}]`), 2*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("cybered:coursesList") {
		t.Error("key should be stored under the prefix")
	}
	if ttl := mr.TTL("cybered:coursesList"); ttl != 2*time.Minute {
		t.Errorf("TTL = %v, want 2m", ttl)
	}

	data, hit, err := c.Get(ctx, "coursesList")
	if err != nil || !hit {
		t.Fatalf("Get = %v, %v; want hit", hit, err)
	}
	if string(data) != `[{"id":1}]` {
		t.Errorf("Get data = %s", data)
	}

	if err := c.Delete(ctx, "coursesList"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "coursesList"); hit {
		t.Error("Get should miss after Delete")
	}
}

func TestRedisCacheNoExpiration(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "p:")

	if err := c.Set(ctx, "userProfile", []byte(`{}`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL("p:userProfile"); ttl != 0 {
		t.Errorf("TTL = %v, want none", ttl)
	}
}

func TestRedisCacheExpiration(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "p:")

	if err := c.Set(ctx, "enrollments", []byte(`[]`), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, hit, _ := c.Get(ctx, "enrollments"); hit {
		t.Error("expired key should miss")
	}
}

func TestRedisCacheClearOnlyPrefix(t *testing.T) {
	ctx := context.Background()
	mr := setupMiniRedis(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "cybered:")

	_ = c.Set(ctx, "userProfile", []byte(`{}`), 0)
	_ = c.Set(ctx, "courseDetails:7", []byte(`{}`), 0)
	if err := mr.Set("other:key", "keep"); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if mr.Exists("cybered:userProfile") || mr.Exists("cybered:courseDetails:7") {
		t.Error("prefixed keys should be cleared")
	}
	if !mr.Exists("other:key") {
		t.Error("keys outside the prefix must be kept")
	}

	// Clearing an empty prefix space is fine
	if err := c.Clear(ctx); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
