package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps rate limit state per origin host.
type StateStore interface {
	// Get returns the state of host, or nil if none is known.
	Get(ctx context.Context, host string) (*State, error)

	// Set replaces the state of host.
	Set(ctx context.Context, host string, state State) error
}

// MemoryStateStore keeps state in process memory.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

// Get implements StateStore.
func (m *MemoryStateStore) Get(_ context.Context, host string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[host]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Set implements StateStore.
func (m *MemoryStateStore) Set(_ context.Context, host string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[host] = state
	return nil
}

// Redis hash fields of a stored state.
const (
	fieldRemaining  = "remaining"
	fieldResetAt    = "reset_at"
	fieldLastUpdate = "last_update"
)

// stateGrace keeps a state around after its window reset.
const stateGrace = time.Minute

// RedisStateStore shares state between processes through Redis hashes.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore creates a Redis-backed state store. Keys are
// "<prefix>:ratelimit:<host>".
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	if client == nil {
		panic("ratelimit: redis client must not be nil")
	}
	if prefix == "" {
		prefix = "httpcache"
	}
	return &RedisStateStore{client: client, prefix: prefix}
}

func (r *RedisStateStore) key(host string) string {
	return r.prefix + ":ratelimit:" + host
}

// Get implements StateStore.
func (r *RedisStateStore) Get(ctx context.Context, host string) (*State, error) {
	fields, err := r.client.HGetAll(ctx, r.key(host)).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	remaining, err := strconv.Atoi(fields[fieldRemaining])
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldRemaining, err)
	}
	resetAt, err := strconv.ParseInt(fields[fieldResetAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldResetAt, err)
	}
	lastUpdate, err := strconv.ParseInt(fields[fieldLastUpdate], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fieldLastUpdate, err)
	}

	return &State{
		Remaining:  remaining,
		ResetAt:    time.UnixMilli(resetAt),
		LastUpdate: time.UnixMilli(lastUpdate),
	}, nil
}

// Set implements StateStore. The hash expires shortly after the window resets.
func (r *RedisStateStore) Set(ctx context.Context, host string, state State) error {
	key := r.key(host)
	ttl := state.ResetAt.Sub(state.LastUpdate) + stateGrace

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key,
		fieldRemaining, state.Remaining,
		fieldResetAt, state.ResetAt.UnixMilli(),
		fieldLastUpdate, state.LastUpdate.UnixMilli(),
	)
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
