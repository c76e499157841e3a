package storage

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestLevel_SetAndGet(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisCache(client)

	client.Del(ctx, stockKey(9001))
	if err := cache.SetLevel(ctx, 9001, 10); err != nil {
		t.Fatalf("set: %v", err)
	}

	qty, ok, err := cache.Level(ctx, 9001)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || qty != 10 {
		t.Errorf("expected (10, true), got (%d, %v)", qty, ok)
	}
}

func TestLevel_Missing(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisCache(client)

	client.Del(ctx, stockKey(9002))
	_, ok, err := cache.Level(ctx, 9002)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestDecrementLevel(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisCache(client)

	client.Del(ctx, stockKey(9003))
	cache.SetLevel(ctx, 9003, 10)

	if err := cache.DecrementLevel(ctx, 9003, 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	qty, _, _ := cache.Level(ctx, 9003)
	if qty != 7 {
		t.Errorf("expected 7, got %d", qty)
	}
}

func TestDecrementLevel_ClampsAtZero(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisCache(client)

	client.Del(ctx, stockKey(9004))
	cache.SetLevel(ctx, 9004, 2)

	// Over-decrementing a lagging mirror must floor at zero, not go
	// negative.
	if err := cache.DecrementLevel(ctx, 9004, 5); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	qty, _, _ := cache.Level(ctx, 9004)
	if qty != 0 {
		t.Errorf("expected 0, got %d", qty)
	}
}

func TestDecrementLevel_MissingKeyIsNoop(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	cache := NewRedisCache(client)

	client.Del(ctx, stockKey(9005))
	if err := cache.DecrementLevel(ctx, 9005, 1); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	_, ok, _ := cache.Level(ctx, 9005)
	if ok {
		t.Error("decrement must not create a key")
	}
}
