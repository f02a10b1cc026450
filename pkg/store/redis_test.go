package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/httpcache/pkg/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-process Redis. Integration tests use
// testcontainers-go with a real instance instead.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		client.Close()
	})

	return server, client
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

func TestRedisStore(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseAdapter(t, NewRedisStore(client))
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	server, client := setupTestRedis(t)
	s := NewRedisStore(client, WithKeyPrefix("app"))
	ctx := context.Background()

	req := cache.NewRequest("GET", "http://example.com/a", nil)
	if err := s.Store(ctx, req, stampedResponse("body")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	keys := server.Keys()
	if len(keys) != 1 {
		t.Fatalf("Keys = %v, want exactly one", keys)
	}
	if want := "app:GET:http://example.com/a"; keys[0] != want {
		t.Errorf("Key = %q, want %q", keys[0], want)
	}
}

func TestRedisStore_TTL(t *testing.T) {
	server, client := setupTestRedis(t)
	s := NewRedisStore(client, WithTTL(time.Minute))
	ctx := context.Background()

	req := cache.NewRequest("GET", "http://example.com/ttl", nil)
	if err := s.Store(ctx, req, stampedResponse("body")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	server.FastForward(2 * time.Minute)

	got, err := s.Lookup(ctx, req)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Error("Entry should have been evicted after its TTL")
	}
}

func TestRedisStore_InvalidEntry(t *testing.T) {
	server, client := setupTestRedis(t)
	s := NewRedisStore(client)
	ctx := context.Background()

	req := cache.NewRequest("GET", "http://example.com/corrupt", nil)
	if err := server.Set(cache.KeyFor(req).String(), "not json"); err != nil {
		t.Fatalf("Failed to seed key: %v", err)
	}

	_, err := s.Lookup(ctx, req)
	if !errors.Is(err, cache.ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry, got %v", err)
	}
}

func TestRedisStore_ConnectionError(t *testing.T) {
	server, client := setupTestRedis(t)
	s := NewRedisStore(client)
	ctx := context.Background()
	req := cache.NewRequest("GET", "http://example.com/", nil)

	server.Close()

	if _, err := s.Lookup(ctx, req); err == nil || !strings.Contains(err.Error(), "redis get") {
		t.Errorf("Lookup error = %v, want redis get error", err)
	}
	if err := s.Store(ctx, req, stampedResponse("body")); err == nil || !strings.Contains(err.Error(), "redis set") {
		t.Errorf("Store error = %v, want redis set error", err)
	}
}

func TestRedisStore_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	s := NewRedisStore(client)
	ctx := context.Background()
	req := cache.NewRequest("GET", "http://example.com/delete", nil)

	if err := s.Store(ctx, req, stampedResponse("body")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Delete(ctx, req); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := s.Lookup(ctx, req)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got != nil {
		t.Error("Expected miss after Delete")
	}
}

func TestRedisStore_Store_NilResponse(t *testing.T) {
	_, client := setupTestRedis(t)
	s := NewRedisStore(client)

	err := s.Store(context.Background(), cache.NewRequest("GET", "http://example.com/", nil), nil)
	if err == nil {
		t.Error("Store with nil response should return error")
	}
}
