package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results recorded in CacheLookups.
const (
	LookupHit    = "hit"
	LookupMiss   = "miss"
	LookupStale  = "stale"
	LookupBypass = "bypass"
)

var (
	// CacheLookups tracks lookup outcomes by result
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "stale", "bypass"
	)

	// CacheStores tracks responses written to the adapter
	CacheStores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_stores_total",
			Help: "Total number of responses stored in the cache",
		},
	)

	// Revalidations tracks conditional requests by outcome
	Revalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_revalidations_total",
			Help: "Total number of conditional revalidations by outcome",
		},
		[]string{"outcome"}, // "not_modified", "replaced"
	)

	// OriginRequests tracks performer invocations
	OriginRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "httpcache_origin_requests_total",
			Help: "Total number of requests sent to the origin",
		},
	)

	// StoreErrors tracks adapter failures by backend and operation
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpcache_store_errors_total",
			Help: "Total number of cache store operation errors",
		},
		[]string{"backend", "operation"}, // "lookup", "store", "delete"
	)
)
