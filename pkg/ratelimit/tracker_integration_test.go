//go:build integration

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_BlockAndReset(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	tracker := NewTracker(NewRedisStateStore(redisClient, "integration"), zerolog.Nop())

	header := http.Header{}
	header.Set(HeaderRemaining, "0")
	header.Set(HeaderReset, "1")
	if err := tracker.Observe(ctx, "origin.test", http.StatusOK, header); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	if err := tracker.Allow(ctx, "origin.test"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("Allow() = %v, want ErrBlocked", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if err := tracker.Allow(ctx, "origin.test"); err != nil {
		t.Errorf("Allow() after reset = %v, want nil", err)
	}
}

func TestTracker_Integration_StateExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRedisStateStore(redisClient, "integration")

	now := time.Now()
	state := State{Remaining: 3, ResetAt: now.Add(10 * time.Second), LastUpdate: now}
	if err := store.Set(ctx, "origin.test", state); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := redisClient.TTL(ctx, "integration:ratelimit:origin.test").Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 10*time.Second || ttl > 10*time.Second+stateGrace {
		t.Errorf("TTL = %v, want window plus grace", ttl)
	}
}
