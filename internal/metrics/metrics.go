// Package metrics exposes Prometheus instrumentation for the profile
// store, deactivation log, and rescrape scheduler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StoreUpdatesTotal counts ProfileStore.Update calls by outcome.
	StoreUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twprofiles_store_updates_total",
			Help: "Total number of profile store update operations",
		},
		[]string{"outcome"}, // success, conflict_retry, error
	)

	// StoreLookupDuration tracks ProfileStore.Lookup latency.
	StoreLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twprofiles_store_lookup_duration_seconds",
			Help:    "Duration of profile store lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	// StoreEntriesTotal reports the current number of (user_id,
	// screen_name) cells in the store, refreshed on each Statistics call.
	StoreEntriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "twprofiles_store_entries",
			Help: "Current number of entries in the profile store",
		},
	)

	// DeactivationsTotal counts entries appended to the deactivation log
	// by status.
	DeactivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twprofiles_deactivations_total",
			Help: "Total number of deactivation log entries appended",
		},
		[]string{"status"}, // suspended, not_found, deactivated, other(<code>)
	)

	// SchedulerQueueSize reports the current size of the rescrape
	// priority queue.
	SchedulerQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "twprofiles_scheduler_queue_size",
			Help: "Current number of ids pending in the rescrape queue",
		},
	)

	// SchedulerBatchesTotal counts NextBatch calls.
	SchedulerBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "twprofiles_scheduler_batches_total",
			Help: "Total number of rescrape batches dispatched",
		},
	)

	// ScraperFetchesTotal counts lookup results processed by the scraper
	// runner, by outcome.
	ScraperFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twprofiles_scraper_fetches_total",
			Help: "Total number of scraper fetch results processed",
		},
		[]string{"outcome"}, // updated, deactivated, error
	)

	// ScraperBatchDuration tracks wall time of a full scraper RunBatch.
	ScraperBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "twprofiles_scraper_batch_duration_seconds",
			Help:    "Duration of a scraper run batch",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
