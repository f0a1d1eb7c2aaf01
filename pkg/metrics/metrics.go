// Package metrics exposes the Prometheus metrics of the wiki client.
// Metrics are defined next to the code that records them (client, pagination,
// store) via promauto; this package documents them and serves them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the Prometheus registerer all wiki metrics are registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an http.Handler serving every registered metric in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - wiki_requests_total{action, status} (Counter): api.php requests by action and HTTP status
//   - wiki_request_duration_seconds{action} (Histogram): request duration by action
//   - wiki_errors_total{class} (Counter): failures by class (network, client, server, api, parse)
//
// Pagination Metrics (pkg/pagination):
//   - wiki_pagination_pages_total{list} (Counter): pages fetched while following continuation
//   - wiki_pagination_items_per_page{list} (Histogram): items returned per upstream page
//
// Snapshot Store Metrics (pkg/store):
//   - wiki_store_operations_total{operation} (Counter): successful save/load operations
//   - wiki_store_errors_total{operation} (Counter): failed save/load operations
//   - wiki_store_snapshot_items{kind} (Histogram): titles per saved backlink snapshot
//
// Example Prometheus Queries:
//
//	# Pages per backlink walk
//	rate(wiki_pagination_pages_total{list="backlinks"}[5m]) /
//	rate(wiki_requests_total{action="query"}[5m])
//
//	# Upstream error rate
//	sum(rate(wiki_errors_total[5m])) by (class)
//
//	# P95 request latency
//	histogram_quantile(0.95, rate(wiki_request_duration_seconds_bucket[5m]))
