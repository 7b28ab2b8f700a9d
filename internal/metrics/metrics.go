// Package metrics defines the Prometheus collectors for the audit read API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audittrail_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audittrail_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Listing metrics
	PagesServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audittrail_pages_served_total",
			Help: "Total number of event pages served, by pagination strategy",
		},
		[]string{"strategy"},
	)

	// Payload metrics
	PayloadReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audittrail_payload_reads_total",
			Help: "Total number of payload documents read from storage",
		},
	)

	PayloadReadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audittrail_payload_read_failures_total",
			Help: "Total number of failed payload reads",
		},
	)

	PayloadReadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audittrail_payload_read_duration_seconds",
			Help:    "Duration of single payload reads in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	// Snapshot metrics
	SnapshotRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audittrail_snapshot_rows",
			Help: "Number of event rows in the active snapshot",
		},
	)

	SnapshotBuildDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audittrail_snapshot_build_duration_seconds",
			Help: "Wall time the last snapshot build took in seconds",
		},
	)

	SnapshotBuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audittrail_snapshot_builds_total",
			Help: "Total number of snapshot builds",
		},
	)

	// Boundary cache metrics
	BoundaryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audittrail_boundary_cache_hits_total",
			Help: "Total number of keyset boundary cache hits",
		},
	)

	BoundaryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audittrail_boundary_cache_misses_total",
			Help: "Total number of keyset boundary cache misses",
		},
	)
)
