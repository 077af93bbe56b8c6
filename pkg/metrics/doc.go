/*
Package metrics provides Prometheus metrics collection and exposition for
the holon engine.

The metrics package defines and registers engine metrics using the
Prometheus client library, providing observability into pool occupancy,
commit outcomes, cache efficiency, loader throughput, and dispatch
latency. Metrics are exposed via an HTTP endpoint for scraping by
Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                 │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Categories               │          │
	│  │                                              │          │
	│  │  Pool: staged/transient holon counts        │          │
	│  │  Commit: attempts, saved/abandoned, pass    │          │
	│  │          durations                          │          │
	│  │  Cache: hit/miss/invalidation counters      │          │
	│  │  Loader: pass durations, error counts,      │          │
	│  │          bundle outcomes                    │          │
	│  │  Dispatch: request counts, latency          │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Format: Prometheus text exposition       │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

Pool:

	holontx_staged_holons_total (gauge)
	holontx_transient_holons_total (gauge)

Commit:

	holontx_commit_attempts_total{status} (counter)
	holontx_commit_holons_saved_total (counter)
	holontx_commit_holons_abandoned_total (counter)
	holontx_commit_relationships_saved_total (counter)
	holontx_commit_pass_duration_seconds{pass} (histogram)

Cache:

	holontx_cache_hits_total (counter)
	holontx_cache_misses_total (counter)
	holontx_cache_invalidations_total (counter)

Loader:

	holontx_loader_pass_duration_seconds{pass} (histogram)
	holontx_loader_errors_total{pass} (counter)
	holontx_loader_bundles_total{status} (counter)

Dispatch:

	holontx_dispatch_requests_total{dance,status_code} (counter)
	holontx_dispatch_request_duration_seconds{dance} (histogram)

# Usage

	timer := metrics.NewTimer()
	resp, err := commit.Run(ctx, tc, adapter, router)
	timer.ObserveDurationVec(metrics.CommitPassDuration, "nodes")

	metrics.CommitAttemptsTotal.WithLabelValues(string(resp.Status)).Inc()
	metrics.CommitHolonsSaved.Add(float64(len(resp.SavedHolons)))

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

Package Init Registration: all metrics registered in init(), so
MustRegister panics on a duplicate name before main() ever starts.

Timer Pattern: create a Timer at operation start, observe elapsed
duration against a histogram (or histogram vec with labels) at
completion.

Label Discipline: labels stay low-cardinality (pass name, dance
name, status). Holon and transaction IDs never become label values —
they belong in logs, not metrics.
*/
package metrics
