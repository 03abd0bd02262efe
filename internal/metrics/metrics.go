// Package metrics holds the prometheus instruments of the ingestion pipeline
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "traktdb"

// Metrics bundles the pipeline instruments and their private registry
type Metrics struct {
	Registry         *prometheus.Registry
	RowsWritten      *prometheus.CounterVec
	EntriesSkipped   *prometheus.CounterVec
	EventsWithheld   *prometheus.CounterVec
	Lookups          *prometheus.CounterVec
	CategoryDuration *prometheus.HistogramVec
}

// New registers the instruments on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows inserted into the store, by table.",
		}, []string{"table"}),
		EntriesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_skipped_total",
			Help:      "Malformed activity entries skipped, by category.",
		}, []string{"category"}),
		EventsWithheld: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_withheld_total",
			Help:      "Event rows not written because their reference did not resolve, by category.",
		}, []string{"category"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "External lookups, by kind and result.",
		}, []string{"kind", "result"}),
		CategoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "category_duration_seconds",
			Help:      "Time spent ingesting one category.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"category"}),
	}

	m.Registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
		m.RowsWritten,
		m.EntriesSkipped,
		m.EventsWithheld,
		m.Lookups,
		m.CategoryDuration,
	)
	return m
}

// AddRows records rows inserted into table
func (m *Metrics) AddRows(table string, n int64) {
	if n > 0 {
		m.RowsWritten.WithLabelValues(table).Add(float64(n))
	}
}

// AddSkipped records skipped entries of a category
func (m *Metrics) AddSkipped(category string, n int) {
	if n > 0 {
		m.EntriesSkipped.WithLabelValues(category).Add(float64(n))
	}
}

// AddWithheld records event rows held back because of dangling references
func (m *Metrics) AddWithheld(category string, n int) {
	if n > 0 {
		m.EventsWithheld.WithLabelValues(category).Add(float64(n))
	}
}

// Lookup records one external lookup result: ok, not_found or failed
func (m *Metrics) Lookup(kind, result string) {
	m.Lookups.WithLabelValues(kind, result).Inc()
}

// ObserveCategory records how long a category took
func (m *Metrics) ObserveCategory(category string, d time.Duration) {
	m.CategoryDuration.WithLabelValues(category).Observe(d.Seconds())
}

// WriteTextfile writes the current values in the node exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
