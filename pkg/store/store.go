// Package store provides cache.Adapter implementations backed by memory,
// Redis and SQLite.
package store

import (
	"context"
	"fmt"

	"github.com/Sternrassler/httpcache/pkg/cache"
	"github.com/Sternrassler/httpcache/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Store is a cache.Adapter that owns resources which must be released.
type Store interface {
	cache.Adapter
	Close() error
}

type nopCloser struct {
	cache.Adapter
}

func (nopCloser) Close() error { return nil }

type redisCloser struct {
	*RedisStore
}

func (r redisCloser) Close() error { return r.redis.Close() }

// New builds the backend selected by cfg. Redis connectivity is checked
// with a ping.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return nopCloser{NewMemoryStore()}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return redisCloser{NewRedisStore(client, WithKeyPrefix(cfg.Redis.KeyPrefix), WithTTL(cfg.Redis.TTL))}, nil

	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLite.Path)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
