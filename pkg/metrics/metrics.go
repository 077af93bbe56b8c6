package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool metrics
	StagedHolonsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "holontx_staged_holons_total",
			Help: "Current number of holons staged in the Nursery, across all open transactions",
		},
	)

	TransientHolonsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "holontx_transient_holons_total",
			Help: "Current number of holons in TransientHolonManagers, across all open transactions",
		},
	)

	// Commit metrics
	CommitAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holontx_commit_attempts_total",
			Help: "Total number of commit attempts by outcome status",
		},
		[]string{"status"},
	)

	CommitHolonsSaved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holontx_commit_holons_saved_total",
			Help: "Total number of holons persisted across all commits",
		},
	)

	CommitHolonsAbandoned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holontx_commit_holons_abandoned_total",
			Help: "Total number of abandoned staged holons skipped during commit",
		},
	)

	CommitRelationshipsSaved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holontx_commit_relationships_saved_total",
			Help: "Total number of relationships persisted during commit pass 2",
		},
	)

	CommitPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holontx_commit_pass_duration_seconds",
			Help:    "Duration of a single commit pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pass"},
	)

	// Cache metrics
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holontx_cache_hits_total",
			Help: "Total number of cache reads served without reaching the persistence adapter",
		},
	)

	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holontx_cache_misses_total",
			Help: "Total number of cache reads that fell through to the persistence adapter",
		},
	)

	CacheInvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "holontx_cache_invalidations_total",
			Help: "Total number of per-HolonId cache invalidations",
		},
	)

	// Loader metrics
	LoaderPassDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holontx_loader_pass_duration_seconds",
			Help:    "Duration of a single loader pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pass"},
	)

	LoaderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holontx_loader_errors_total",
			Help: "Total number of non-fatal loader errors by pass",
		},
		[]string{"pass"},
	)

	LoaderBundlesLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holontx_loader_bundles_total",
			Help: "Total number of bundles loaded by final status",
		},
		[]string{"status"},
	)

	// Dispatch metrics
	DispatchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holontx_dispatch_requests_total",
			Help: "Total number of dispatched dance requests by name and status code",
		},
		[]string{"dance", "status_code"},
	)

	DispatchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "holontx_dispatch_request_duration_seconds",
			Help:    "Dance dispatch duration in seconds by dance name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dance"},
	)
)

func init() {
	// Register pool metrics
	prometheus.MustRegister(StagedHolonsTotal)
	prometheus.MustRegister(TransientHolonsTotal)

	// Register commit metrics
	prometheus.MustRegister(CommitAttemptsTotal)
	prometheus.MustRegister(CommitHolonsSaved)
	prometheus.MustRegister(CommitHolonsAbandoned)
	prometheus.MustRegister(CommitRelationshipsSaved)
	prometheus.MustRegister(CommitPassDuration)

	// Register cache metrics
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(CacheInvalidationsTotal)

	// Register loader metrics
	prometheus.MustRegister(LoaderPassDuration)
	prometheus.MustRegister(LoaderErrorsTotal)
	prometheus.MustRegister(LoaderBundlesLoaded)

	// Register dispatch metrics
	prometheus.MustRegister(DispatchRequestsTotal)
	prometheus.MustRegister(DispatchRequestDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
