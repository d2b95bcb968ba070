// Package metrics provides centralized Prometheus metrics registry for the
// parking feed pipeline. All metrics are defined in their respective packages
// (client, decode, cache, pipeline) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation, the registry and the scrape handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by every package.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what Registry holds.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every metric in Gatherer in the Prometheus text format.
// Scrapes are themselves counted in Registry.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		Registry,
		promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}),
	)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - parking_feed_requests_total{status} (Counter): Feed requests by HTTP status or "error"
//   - parking_feed_request_duration_seconds (Histogram): Feed request duration
//   - parking_feed_errors_total{class} (Counter): Fetch failures by class (network, client, server, status, body_limit)
//
// Decode Metrics (pkg/decode):
//   - parking_feed_rows_skipped_total{reason} (Counter): Rows dropped (not_object, missing_field, invalid_value)
//   - parking_feed_decode_failures_total{reason} (Counter): Whole-body failures (malformed-json, missing-envelope, missing-rows)
//
// Cache Metrics (pkg/cache):
//   - parking_feed_cache_hits_total (Counter): Response cache hits
//   - parking_feed_cache_misses_total (Counter): Response cache misses
//   - parking_feed_cache_errors_total{operation} (Counter): Cache operation errors
//
// Run Metrics (pkg/pipeline):
//   - parking_feed_runs_total{outcome} (Counter): Runs by outcome (ok, failed, cancelled, busy)
//   - parking_feed_run_duration_seconds (Histogram): Run duration, delivered or not
//
// Example Prometheus Queries:
//
//	# Cache Hit Rate
//	sum(rate(parking_feed_cache_hits_total[5m])) /
//	(sum(rate(parking_feed_cache_hits_total[5m])) + sum(rate(parking_feed_cache_misses_total[5m])))
//
//	# Rejected runs
//	rate(parking_feed_runs_total{outcome="busy"}[5m])
//
//	# Skipped row rate
//	sum by (reason) (rate(parking_feed_rows_skipped_total[5m]))
//
//	# P95 Request Latency
//	histogram_quantile(0.95, rate(parking_feed_request_duration_seconds_bucket[5m]))
