// Package metrics exposes the Prometheus registry shared by the cache.
// Metrics are defined in their respective packages (cache, store, client,
// ratelimit)
// to keep them next to the code that updates them; this package only serves
// them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all httpcache metrics use.
// Metrics are registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler reads from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - httpcache_lookups_total{result} (Counter): Lookups by result (hit, miss, stale, bypass)
//   - httpcache_stores_total (Counter): Responses written to the store
//   - httpcache_revalidations_total{outcome} (Counter): Stale revalidations (not_modified, replaced)
//   - httpcache_origin_requests_total (Counter): Calls made to the origin
//   - httpcache_store_errors_total{backend, operation} (Counter): Store backend failures
//
// Request Metrics (pkg/client):
//   - httpcache_client_requests_total{status} (Counter): Round trips by HTTP status or "error"
//   - httpcache_client_request_duration_seconds{method} (Histogram): Round trip duration
//   - httpcache_client_origin_errors_total{class} (Counter): Origin errors by class
//
// Retry Metrics (pkg/client):
//   - httpcache_client_retries_total{error_class} (Counter): Retry attempts by error class
//   - httpcache_client_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - httpcache_client_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Rate Limit Metrics (pkg/ratelimit):
//   - httpcache_ratelimit_remaining{host} (Gauge): Requests left in the origin's window
//   - httpcache_ratelimit_blocks_total{host} (Counter): Requests blocked on an exhausted window
//   - httpcache_ratelimit_throttles_total{host} (Counter): Requests delayed on a nearly exhausted window
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(httpcache_lookups_total{result="hit"}[5m])) /
//   sum(rate(httpcache_lookups_total[5m]))
//
//   # Revalidations answered with 304
//   rate(httpcache_revalidations_total{outcome="not_modified"}[5m])
//
//   # Origin Error Rate
//   rate(httpcache_client_origin_errors_total[5m])
//
//   # P95 Round Trip Latency
//   histogram_quantile(0.95, rate(httpcache_client_request_duration_seconds_bucket[5m]))
