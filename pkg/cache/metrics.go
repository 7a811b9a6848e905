package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks resolver cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cotd_resolver_cache_hits_total",
			Help: "Total number of player resolutions served from cache",
		},
	)

	// CacheMisses tracks resolver cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cotd_resolver_cache_misses_total",
			Help: "Total number of player resolution cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cotd_resolver_cache_errors_total",
			Help: "Total number of resolver cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
