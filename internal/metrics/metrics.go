// Ichnaea - Geolocation Observation Export
// Copyright 2026 Karthik L. Sarma (karthiklsarma)
// SPDX-License-Identifier: Apache-2.0
// https://github.com/karthiklsarma/ichnaea

// Package metrics provides Prometheus instrumentation for the export
// pipeline: rows and pages per shard table, scan latency, and failure
// counts. The process is one-shot, so the collectors primarily feed the
// end-of-run summary, but they use the standard registry so the binary
// can be scraped when embedded in tooling that keeps it alive.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportRowsTotal counts rows written to the output stream.
	ExportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_rows_total",
			Help: "Total number of rows exported",
		},
		[]string{"datatype", "table"},
	)

	// ExportPagesTotal counts non-empty scan windows.
	ExportPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_pages_total",
			Help: "Total number of non-empty scan windows read",
		},
		[]string{"datatype", "table"},
	)

	// ShardScanDuration observes the wall time spent scanning one shard.
	ShardScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "export_shard_scan_duration_seconds",
			Help:    "Duration of a full shard scan in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"datatype", "table"},
	)

	// ExportErrorsTotal counts aborted runs by stage.
	ExportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_errors_total",
			Help: "Total number of export failures",
		},
		[]string{"stage"}, // "scan", "write", "backend"
	)

	// ExportDuration observes the wall time of a whole export run.
	ExportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Duration of a complete export run in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
		},
	)
)

// RecordShardScan records the outcome of one shard scan.
func RecordShardScan(datatype, table string, rows, pages int64, duration time.Duration) {
	ExportRowsTotal.WithLabelValues(datatype, table).Add(float64(rows))
	ExportPagesTotal.WithLabelValues(datatype, table).Add(float64(pages))
	ShardScanDuration.WithLabelValues(datatype, table).Observe(duration.Seconds())
}

// RecordFailure counts one aborted run at the given stage.
func RecordFailure(stage string) {
	ExportErrorsTotal.WithLabelValues(stage).Inc()
}
