// Package metrics exposes the Prometheus metrics of the artworks grid.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination) to maintain modularity and avoid circular
// dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the grid.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewMux returns a mux serving /metrics and /health.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - artic_rate_limit_remaining (Gauge): Requests remaining per X-RateLimit-Remaining
//   - artic_rate_limit_blocks_total{reason} (Counter): Requests blocked ("critical", "window")
//   - artic_rate_limit_throttles_total (Counter): Requests delayed by a low budget
//   - artic_rate_limit_wait_seconds (Histogram): Local token bucket wait
//
// Cache Metrics (pkg/cache):
//   - artic_cache_hits_total{state} (Counter): Hits by state ("fresh", "revalidated")
//   - artic_cache_misses_total (Counter): Cache misses
//   - artic_cache_size_bytes (Gauge): Bytes written to the page cache
//   - artic_304_responses_total (Counter): 304 Not Modified responses
//   - artic_conditional_requests_total (Counter): Conditional requests sent
//   - artic_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - artic_requests_total{endpoint, status} (Counter): Requests by endpoint and status
//   - artic_request_duration_seconds{endpoint} (Histogram): Request duration
//   - artic_errors_total{class} (Counter): Errors by class
//
// Paging Metrics (pkg/pagination):
//   - artic_pages_fetched_total{operation} (Counter): Pages fetched ("lazy", "bulk")
//   - artic_page_fetch_failures_total{operation} (Counter): Failed page fetches
//   - artic_operations_superseded_total{operation} (Counter): Results dropped for a newer operation
//   - artic_bulk_selected_rows (Histogram): Rows selected per bulk submit
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(artic_cache_hits_total[5m])) /
//   (sum(rate(artic_cache_hits_total[5m])) + sum(rate(artic_cache_misses_total[5m])))
//
//   # Budget Status
//   artic_rate_limit_remaining < 10
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
//
//   # Pages per bulk crawl
//   rate(artic_pages_fetched_total{operation="bulk"}[5m])
