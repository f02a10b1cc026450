// Package cache implements HTTP response caching semantics for a client.
//
// For every outgoing request the cache decides whether a stored response can
// answer it, whether a stored response has to be revalidated with the origin,
// and whether a newly received response may be stored:
//
// - Cache-Control directive parsing (private, public, no-cache, no-store, max-age)
// - Freshness from max-age, aged from the Date header or the receive time
// - Conditional revalidation with If-None-Match and If-Modified-Since
// - 304 Not Modified responses refresh and re-store the cached representation
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Any Adapter works; see pkg/store for memory, Redis and SQLite
//	c := cache.New(store.NewMemoryStore())
//
//	req := cache.NewRequest("GET", "http://example.com/", nil)
//	resp, err := c.Perform(ctx, req, nil, cache.PerformerFunc(
//		func(ctx context.Context, req *cache.Request, _ any) (*cache.Response, error) {
//			// send req to the origin
//		}))
//
// The performer is the only way the cache reaches the origin. It is called at
// most once per Perform and receives the options value unchanged.
//
// # Storage Rules
//
// A request with Cache-Control: no-cache skips the lookup, but its response
// may still be stored. A response is stored only when it carries private,
// public or max-age and neither no-store nor no-cache. Treating no-cache like
// no-store is stricter than RFC 9111, which allows storing such responses.
//
// # Freshness
//
// Without max-age a stored response stays fresh until overwritten; there is
// no heuristic lifetime from Last-Modified.
//
// # Metrics
//
//   - httpcache_lookups_total{result} - hit, miss, stale, bypass
//   - httpcache_stores_total - responses written to the adapter
//   - httpcache_revalidations_total{outcome} - not_modified, replaced
//   - httpcache_origin_requests_total - performer invocations
//   - httpcache_store_errors_total{backend,operation} - adapter failures
package cache
