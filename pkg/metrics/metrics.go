// Package metrics defines the Prometheus collectors used by the extraction
// engine and exposes an HTTP handler for scraping. *Metrics satisfies the
// intersector's Recorder contract so timings flow into Prometheus instead of
// process-wide counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the extraction engine.
type Metrics struct {
	IntersectionsTotal  *prometheus.CounterVec
	IntersectDuration   *prometheus.HistogramVec
	ExtendTotal         *prometheus.CounterVec
	ExtendDuration      *prometheus.HistogramVec
	MergeDuration       *prometheus.HistogramVec
	SentencesTotal      *prometheus.CounterVec
	PatternsFound       prometheus.Histogram
	LatticeNodes        prometheus.Histogram
	ExtractionDuration  prometheus.Histogram
	PrecomputationLoads *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var latencyBuckets = []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// New creates all collectors and registers them with reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		IntersectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intersections_total",
				Help: "Total pattern intersections by path (collocation, merge).",
			},
			[]string{"path"},
		),
		IntersectDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intersect_duration_seconds",
				Help:    "Intersection latency in seconds by path.",
				Buckets: latencyBuckets,
			},
			[]string{"path"},
		),
		ExtendTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phrase_location_extensions_total",
				Help: "Phrase locations materialized, by source (inverted_index, suffix_array).",
			},
			[]string{"source"},
		),
		ExtendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phrase_location_extend_duration_seconds",
				Help:    "Time spent materializing phrase locations.",
				Buckets: latencyBuckets,
			},
			[]string{"source"},
		),
		MergeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "merge_duration_seconds",
				Help:    "Matching merge latency by strategy (linear, binary_search).",
				Buckets: latencyBuckets,
			},
			[]string{"strategy"},
		),
		SentencesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentences_extracted_total",
				Help: "Input sentences processed by status (ok, error).",
			},
			[]string{"status"},
		),
		PatternsFound: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "patterns_found",
				Help:    "Distinct patterns with at least one occurrence per sentence.",
				Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
			},
		),
		LatticeNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lattice_nodes",
				Help:    "Node count of input lattices after epsilon removal.",
				Buckets: []float64{2, 5, 10, 20, 40, 80, 160},
			},
		),
		ExtractionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sentence_extraction_duration_seconds",
				Help:    "End-to-end pattern extraction latency per sentence.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		PrecomputationLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "precomputation_loads_total",
				Help: "Precomputation loads by source (file, redis, build).",
			},
			[]string{"source"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.IntersectionsTotal,
		m.IntersectDuration,
		m.ExtendTotal,
		m.ExtendDuration,
		m.MergeDuration,
		m.SentencesTotal,
		m.PatternsFound,
		m.LatticeNodes,
		m.ExtractionDuration,
		m.PrecomputationLoads,
	)

	return m
}

// ObserveIntersection records one Intersect call.
func (m *Metrics) ObserveIntersection(path string, d time.Duration) {
	m.IntersectionsTotal.WithLabelValues(path).Inc()
	m.IntersectDuration.WithLabelValues(path).Observe(d.Seconds())
}

// ObserveExtend records one phrase-location materialization.
func (m *Metrics) ObserveExtend(source string, d time.Duration) {
	m.ExtendTotal.WithLabelValues(source).Inc()
	m.ExtendDuration.WithLabelValues(source).Observe(d.Seconds())
}

// ObserveMerge records the time spent inside a merger.
func (m *Metrics) ObserveMerge(strategy string, d time.Duration) {
	m.MergeDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveSentence records one extracted input sentence.
func (m *Metrics) ObserveSentence(status string, nodes, patterns int, d time.Duration) {
	m.SentencesTotal.WithLabelValues(status).Inc()
	if status != "ok" {
		return
	}
	m.LatticeNodes.Observe(float64(nodes))
	m.PatternsFound.Observe(float64(patterns))
	m.ExtractionDuration.Observe(d.Seconds())
}

// ObservePrecomputationLoad records where the precomputation came from.
func (m *Metrics) ObservePrecomputationLoad(source string) {
	m.PrecomputationLoads.WithLabelValues(source).Inc()
}
