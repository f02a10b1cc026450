package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/httpcache/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps JSON-encoded entries in Redis.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix replaces the leading "httpcache" segment of every key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL lets Redis evict entries after ttl. Zero keeps entries until they
// are overwritten.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a store on redisClient.
func NewRedisStore(redisClient *redis.Client, opts ...RedisOption) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	s := &RedisStore{redis: redisClient}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(req *cache.Request) string {
	key := cache.KeyFor(req).String()
	if s.prefix == "" {
		return key
	}
	return s.prefix + key[len("httpcache"):]
}

// Lookup implements cache.Adapter. A missing key is a miss, not an error.
func (s *RedisStore) Lookup(ctx context.Context, req *cache.Request) (*cache.Response, error) {
	data, err := s.redis.Get(ctx, s.key(req)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		cache.StoreErrors.WithLabelValues("redis", "lookup").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := cache.DecodeEntry(data)
	if err != nil {
		cache.StoreErrors.WithLabelValues("redis", "lookup").Inc()
		return nil, err
	}

	return entry.Response(), nil
}

// Store implements cache.Adapter, overwriting any previous entry.
func (s *RedisStore) Store(ctx context.Context, req *cache.Request, resp *cache.Response) error {
	if resp == nil {
		return fmt.Errorf("cache response cannot be nil")
	}

	data, err := cache.NewEntry(req, resp).Encode()
	if err != nil {
		cache.StoreErrors.WithLabelValues("redis", "store").Inc()
		return err
	}

	if err := s.redis.Set(ctx, s.key(req), data, s.ttl).Err(); err != nil {
		cache.StoreErrors.WithLabelValues("redis", "store").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes the entry for req.
func (s *RedisStore) Delete(ctx context.Context, req *cache.Request) error {
	if err := s.redis.Del(ctx, s.key(req)).Err(); err != nil {
		cache.StoreErrors.WithLabelValues("redis", "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ cache.Adapter = (*RedisStore)(nil)
