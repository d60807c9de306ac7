// Package metrics provides Prometheus metrics for install runs and the status server.
//
// Install metrics:
//   - refdata_downloads_total: Counter with source and outcome labels
//   - refdata_download_bytes_total: Counter with source label
//   - refdata_download_duration_seconds: Histogram with source label
//   - refdata_api_requests_total: Counter with endpoint and status labels
//   - refdata_remodeler_genes: Gauge, rows in the last chromatin remodeler CSV
//   - refdata_last_run_timestamp_seconds / refdata_last_run_failures: Gauges
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Download outcomes
const (
	OutcomeOK           = "ok"
	OutcomeHTTPError    = "http_error"
	OutcomeNetworkError = "network_error"
	OutcomeWriteError   = "write_error"
)

var (
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_downloads_total",
			Help: "Reference file downloads by outcome",
		},
		[]string{"source", "outcome"},
	)

	DownloadBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_download_bytes_total",
			Help: "Bytes written for successful downloads",
		},
		[]string{"source"},
	)

	DownloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "refdata_download_duration_seconds",
			Help:    "Time spent downloading a reference file",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"source"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refdata_api_requests_total",
			Help: "Harmonizome API requests by endpoint and HTTP status",
		},
		[]string{"endpoint", "status"},
	)

	RemodelerGenes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "refdata_remodeler_genes",
			Help: "Rows written to the chromatin remodeler CSV by the last run",
		},
	)

	LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "refdata_last_run_timestamp_seconds",
			Help: "Unix time the last install run finished",
		},
	)

	LastRunFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "refdata_last_run_failures",
			Help: "Failed steps in the last install run",
		},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total status server HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Status server HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		DownloadsTotal,
		DownloadBytesTotal,
		DownloadDuration,
		APIRequestsTotal,
		RemodelerGenes,
		LastRunTimestamp,
		LastRunFailures,
		HTTPRequestTotals,
		HTTPRequestDuration,
	)
}

// WriteTextfile writes every registered metric to path in the text exposition
// format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
