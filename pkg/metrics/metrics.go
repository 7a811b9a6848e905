// Package metrics exposes the Prometheus metrics of the COTD client.
// All metrics are defined in their respective packages (client, ratelimit,
// pagination, aggregator, cache) and registered through promauto.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - cotd_http_requests_total{method, status} (Counter): requests by method and HTTP status
//   - cotd_http_request_duration_seconds{method} (Histogram): request duration, throttling excluded
//   - cotd_http_errors_total{class} (Counter): failed requests by class (client, server, rate_limit, network)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - cotd_ratelimit_remaining (Gauge): last seen X-Ratelimit-Remaining
//   - cotd_ratelimit_sleeps_total (Counter): throttling sleeps
//   - cotd_ratelimit_sleep_seconds (Histogram): throttling sleep duration
//
// Pagination Metrics (pkg/pagination):
//   - cotd_pages_fetched_total (Counter): history pages fetched
//   - cotd_entries_fetched_total (Counter): COTD entries parsed
//
// Run Metrics (pkg/aggregator):
//   - cotd_players_total{result} (Counter): players processed (success, failure, skipped)
//   - cotd_player_failures_total{kind} (Counter): failed players by error kind
//
// Cache Metrics (pkg/cache):
//   - cotd_resolver_cache_hits_total (Counter)
//   - cotd_resolver_cache_misses_total (Counter)
//   - cotd_resolver_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Throttling share of a run
//   sum(rate(cotd_ratelimit_sleep_seconds_sum[5m]))
//
//   # Player failure ratio
//   sum(rate(cotd_players_total{result="failure"}[1h])) / sum(rate(cotd_players_total[1h]))
