package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sourceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "briefly_source_requests_total",
		Help: "Source adapter calls by backend and outcome (ok, empty, error).",
	}, []string{"source", "outcome"})

	sourceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "briefly_source_latency_seconds",
		Help:    "Wall-clock latency of source adapter calls, including timeouts.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"source"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "briefly_research_runs_total",
		Help: "Research runs by outcome (ok, no_results, quota_exceeded, invalid).",
	}, []string{"outcome"})

	enrichOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "briefly_enrichment_total",
		Help: "Enrichment stage outcomes (ok, no_pages, rewrite_failed).",
	}, []string{"outcome"})
)
