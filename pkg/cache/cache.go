package cache

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrNilResponse is returned when a performer yields neither a response nor an error.
var ErrNilResponse = errors.New("performer returned nil response")

// Adapter is the storage collaborator of the cache.
//
// Contract:
//   - Lookup must not mutate the request. A miss is (nil, nil), never an error.
//   - Store persists or overwrites the entry for the request key and may be
//     called again with a newer response for the same key.
//   - Concurrent calls for the same key are the adapter's to resolve.
type Adapter interface {
	Lookup(ctx context.Context, req *Request) (*Response, error)
	Store(ctx context.Context, req *Request, resp *Response) error
}

// Performer sends a request to the origin and returns its response.
type Performer interface {
	Perform(ctx context.Context, req *Request, opts any) (*Response, error)
}

// PerformerFunc adapts a function to Performer.
type PerformerFunc func(ctx context.Context, req *Request, opts any) (*Response, error)

// Perform implements Performer.
func (f PerformerFunc) Perform(ctx context.Context, req *Request, opts any) (*Response, error) {
	return f(ctx, req, opts)
}

// Cache applies HTTP caching rules around a performer.
// It holds no per-request state and is safe for concurrent use when its
// adapter is.
type Cache struct {
	adapter      Adapter
	clock        Clock
	freshness    Freshness
	mergeHeaders []string
	logger       zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source used for freshness and stamping.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMergeHeaders sets the headers a 304 response refreshes on the stored
// response. Defaults to DefaultMergeHeaders.
func WithMergeHeaders(names ...string) Option {
	return func(c *Cache) {
		c.mergeHeaders = append([]string(nil), names...)
	}
}

// New creates a cache backed by adapter.
func New(adapter Adapter, opts ...Option) *Cache {
	if adapter == nil {
		panic("cache adapter cannot be nil")
	}

	c := &Cache{
		adapter:      adapter,
		clock:        SystemClock,
		mergeHeaders: DefaultMergeHeaders,
		logger:       log.With().Str("component", "httpcache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	c.freshness = NewFreshness(c.clock)

	return c
}

// Perform answers req from the cache or through performer.
//
// A fresh stored response is returned without calling performer. A stale one
// is revalidated with a conditional request; a 304 reply refreshes and
// re-stores the cached representation. Every other origin response is
// stamped, stored when cacheable, and returned. performer runs at most once
// and opts is handed to it unchanged. Adapter and performer errors are
// returned as is.
func (c *Cache) Perform(ctx context.Context, req *Request, opts any, performer Performer) (*Response, error) {
	logger := c.logger.With().Str("method", req.Method).Str("url", req.URL).Logger()

	if !ShouldLookup(req) {
		CacheLookups.WithLabelValues(LookupBypass).Inc()
		logger.Debug().Msg("Request bypasses cache lookup")
		return c.fetchAndStore(ctx, req, opts, performer, logger)
	}

	cached, err := c.adapter.Lookup(ctx, req)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		CacheLookups.WithLabelValues(LookupMiss).Inc()
		logger.Debug().Msg("Cache miss")
		return c.fetchAndStore(ctx, req, opts, performer, logger)
	}

	if c.freshness.IsFresh(cached) {
		CacheLookups.WithLabelValues(LookupHit).Inc()
		logger.Debug().Dur("age", c.freshness.Age(cached)).Msg("Serving fresh cached response")
		return cached, nil
	}

	CacheLookups.WithLabelValues(LookupStale).Inc()
	conditional := BuildConditional(req, cached)
	logger.Debug().
		Dur("age", c.freshness.Age(cached)).
		Str("etag", conditional.Header.Get(HeaderIfNoneMatch)).
		Str("if_modified_since", conditional.Header.Get(HeaderIfModifiedSince)).
		Msg("Revalidating stale cached response")

	requestedAt := c.clock.Now()
	resp, err := c.perform(ctx, conditional, opts, performer)
	if err != nil {
		return nil, err
	}
	receivedAt := c.clock.Now()

	if resp.StatusCode == http.StatusNotModified {
		Revalidations.WithLabelValues("not_modified").Inc()

		merged := MergeNotModified(cached, resp, c.mergeHeaders)
		merged.stamp(requestedAt, receivedAt)
		if err := c.store(ctx, req, merged); err != nil {
			return nil, err
		}
		logger.Debug().Msg("Cached response revalidated")
		return merged, nil
	}

	Revalidations.WithLabelValues("replaced").Inc()
	logger.Debug().Int("status", resp.StatusCode).Msg("Revalidation returned a new response")
	return c.finish(ctx, req, resp, requestedAt, receivedAt, logger)
}

// fetchAndStore sends the unconditional req to the origin.
func (c *Cache) fetchAndStore(ctx context.Context, req *Request, opts any, performer Performer, logger zerolog.Logger) (*Response, error) {
	requestedAt := c.clock.Now()
	resp, err := c.perform(ctx, req, opts, performer)
	if err != nil {
		return nil, err
	}
	return c.finish(ctx, req, resp, requestedAt, c.clock.Now(), logger)
}

func (c *Cache) finish(ctx context.Context, key *Request, resp *Response, requestedAt, receivedAt time.Time, logger zerolog.Logger) (*Response, error) {
	resp.stamp(requestedAt, receivedAt)

	if !ShouldStore(resp) {
		logger.Debug().Int("status", resp.StatusCode).Msg("Response not cacheable")
		return resp, nil
	}
	if err := c.store(ctx, key, resp); err != nil {
		return nil, err
	}
	logger.Debug().Int("status", resp.StatusCode).Msg("Stored response")
	return resp, nil
}

func (c *Cache) perform(ctx context.Context, req *Request, opts any, performer Performer) (*Response, error) {
	OriginRequests.Inc()
	resp, err := performer.Perform(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}
	return resp, nil
}

func (c *Cache) store(ctx context.Context, req *Request, resp *Response) error {
	if err := c.adapter.Store(ctx, req, resp); err != nil {
		return err
	}
	CacheStores.Inc()
	return nil
}
