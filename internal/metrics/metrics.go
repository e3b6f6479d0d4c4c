// Package metrics exposes Prometheus collectors for the ingest pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsDiscoveredTotal       *prometheus.CounterVec
	documentsFetchedTotal      *prometheus.CounterVec
	extractionsTotal           *prometheus.CounterVec
	normalizationWarningsTotal *prometheus.CounterVec
	recordsUpsertedTotal       prometheus.Counter
	runDurationSeconds         *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		leadsDiscoveredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_leads_discovered_total",
				Help: "Total leads emitted by the source crawler, labeled by status category.",
			},
			[]string{"status"},
		)

		documentsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_documents_fetched_total",
				Help: "Total document fetch attempts, labeled by result.",
			},
			[]string{"result"},
		)

		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_extractions_total",
				Help: "Total extraction attempts, labeled by result.",
			},
			[]string{"result"},
		)

		normalizationWarningsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_normalization_warnings_total",
				Help: "Total normalization fallbacks to a default category, labeled by field.",
			},
			[]string{"field"},
		)

		recordsUpsertedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_records_upserted_total",
				Help: "Total case records merged into the record store.",
			},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Histogram of pipeline phase durations.",
				Buckets: []float64{0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"phase"},
		)
	})
}

// LeadDiscovered increments the discovered-lead counter for a status category.
func LeadDiscovered(status string) {
	if leadsDiscoveredTotal != nil {
		leadsDiscoveredTotal.WithLabelValues(status).Inc()
	}
}

// DocumentFetched records one fetch attempt outcome
// (fetched, cached, network_error, content_type_mismatch).
func DocumentFetched(result string) {
	if documentsFetchedTotal != nil {
		documentsFetchedTotal.WithLabelValues(result).Inc()
	}
}

// ExtractionResult records one extraction outcome
// (ok, missing_case_number, missing_incident_date, missing_location, recognition_error).
func ExtractionResult(result string) {
	if extractionsTotal != nil {
		extractionsTotal.WithLabelValues(result).Inc()
	}
}

// NormalizationWarning counts a fallback to a default category for a field.
func NormalizationWarning(field string) {
	if normalizationWarningsTotal != nil {
		normalizationWarningsTotal.WithLabelValues(field).Inc()
	}
}

// RecordUpserted counts one successful record store merge.
func RecordUpserted() {
	if recordsUpsertedTotal != nil {
		recordsUpsertedTotal.Inc()
	}
}

// ObservePhase records how long a pipeline phase took.
func ObservePhase(phase string, d time.Duration) {
	if runDurationSeconds != nil {
		runDurationSeconds.WithLabelValues(phase).Observe(d.Seconds())
	}
}
