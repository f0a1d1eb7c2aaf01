package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations tracks successful store operations
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiki_store_operations_total",
			Help: "Total number of successful snapshot store operations",
		},
		[]string{"operation"}, // "save_backlinks", "load_backlinks", "save_entity", "load_entity", "delete"
	)

	// StoreErrors tracks failed store operations
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wiki_store_errors_total",
			Help: "Total number of snapshot store operation errors",
		},
		[]string{"operation"},
	)

	// SnapshotItems tracks the number of titles per saved backlink snapshot
	SnapshotItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wiki_store_snapshot_items",
			Help:    "Number of titles per saved backlink snapshot",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9), // 1 .. 65536
		},
		[]string{"kind"},
	)
)
