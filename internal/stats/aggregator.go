// Package stats aggregates extraction summaries and persists run snapshots
// to PostgreSQL.
package stats

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Grammar-Extraction-Platform/internal/extractor"
)

// RunStats is a snapshot of everything extracted since the aggregator
// started.
type RunStats struct {
	Sentences          int64   `json:"sentences"`
	Failed             int64   `json:"failed"`
	Patterns           int64   `json:"patterns"`
	Gapped             int64   `json:"gapped"`
	Occurrences        int64   `json:"occurrences"`
	LatticeNodes       int64   `json:"lattice_nodes"`
	AvgLatencyMs       float64 `json:"avg_latency_ms"`
	P50LatencyMs       float64 `json:"p50_latency_ms"`
	P95LatencyMs       float64 `json:"p95_latency_ms"`
	P99LatencyMs       float64 `json:"p99_latency_ms"`
	SentencesPerMinute float64 `json:"sentences_per_minute"`
}

// Aggregator accumulates extraction outcomes. Record and RecordFailure are
// safe for concurrent use.
type Aggregator struct {
	mu        sync.RWMutex
	sentences atomic.Int64
	failed    atomic.Int64
	patterns  atomic.Int64
	gapped    atomic.Int64
	occs      atomic.Int64
	nodes     atomic.Int64
	latencies []time.Duration
	startTime time.Time
}

// NewAggregator returns an Aggregator whose rate clock starts now.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies: make([]time.Duration, 0, 10000),
		startTime: time.Now(),
	}
}

// Record adds one successfully extracted sentence.
func (a *Aggregator) Record(s extractor.Summary) {
	a.sentences.Add(1)
	a.patterns.Add(int64(s.Patterns))
	a.gapped.Add(int64(s.Gapped))
	a.occs.Add(int64(s.Occurrences))
	a.nodes.Add(int64(s.Nodes))

	a.mu.Lock()
	a.latencies = append(a.latencies, s.Duration)
	a.mu.Unlock()
}

// RecordFailure counts an input that could not be extracted.
func (a *Aggregator) RecordFailure() {
	a.failed.Add(1)
}

// Stats returns a snapshot of the totals and latency percentiles.
func (a *Aggregator) Stats() RunStats {
	a.mu.RLock()
	sorted := slices.Clone(a.latencies)
	a.mu.RUnlock()

	stats := RunStats{
		Sentences:    a.sentences.Load(),
		Failed:       a.failed.Load(),
		Patterns:     a.patterns.Load(),
		Gapped:       a.gapped.Load(),
		Occurrences:  a.occs.Load(),
		LatticeNodes: a.nodes.Load(),
	}
	if len(sorted) > 0 {
		slices.Sort(sorted)
		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = milliseconds(sum) / float64(len(sorted))
		stats.P50LatencyMs = milliseconds(percentile(sorted, 50))
		stats.P95LatencyMs = milliseconds(percentile(sorted, 95))
		stats.P99LatencyMs = milliseconds(percentile(sorted, 99))
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.SentencesPerMinute = float64(stats.Sentences) / elapsed
	}
	return stats
}

func percentile(sorted []time.Duration, pct int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
