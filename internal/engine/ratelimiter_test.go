package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !rl.Allow(ctx, "student1", 5) {
			t.Errorf("request %d should be allowed (limit=5)", i+1)
		}
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rl.Allow(ctx, "student1", 3)
	}

	if rl.Allow(ctx, "student1", 3) {
		t.Error("request should be blocked when over limit")
	}
}

func TestRateLimiter_ZeroLimit_AllowsAll(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if !rl.Allow(ctx, "student1", 0) {
			t.Errorf("request %d should be allowed with limit=0 (unlimited)", i+1)
		}
	}
}

func TestRateLimiter_IsolationBetweenUsers(t *testing.T) {
	client, _ := setupTestRedis(t)
	rl := NewRateLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rl.Allow(ctx, "student1", 2)
	}

	if rl.Allow(ctx, "student1", 2) {
		t.Error("student1 should be blocked")
	}
	if !rl.Allow(ctx, "student2", 2) {
		t.Error("student2 should be allowed, limits are per user")
	}
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client, mr := setupTestRedis(t)
	rl := NewRateLimiter(client, testLogger())

	mr.SetError("server unavailable")
	defer mr.SetError("")

	if !rl.Allow(context.Background(), "student1", 1) {
		t.Error("limiter should allow requests when redis errors")
	}
}
