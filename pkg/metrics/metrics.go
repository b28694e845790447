// Package metrics defines the Prometheus metric collectors used across the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	BatchesTotal     *prometheus.CounterVec
	RecordsTotal     prometheus.Counter
	TokensTotal      prometheus.Counter
	BatchRecords     prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	ScoreCacheHits   prometheus.Counter
	ScoreCacheMisses prometheus.Counter
	PipelineState    prometheus.Gauge
}

var (
	once     sync.Once
	instance *Metrics
)

// New returns the process-wide collector set, registering it on first use.
// Every caller shares one registration; the collectors are safe for
// concurrent use.
func New() *Metrics {
	once.Do(func() {
		instance = newMetrics()
		prometheus.MustRegister(
			instance.BatchesTotal,
			instance.RecordsTotal,
			instance.TokensTotal,
			instance.BatchRecords,
			instance.StageDuration,
			instance.ScoreCacheHits,
			instance.ScoreCacheMisses,
			instance.PipelineState,
		)
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_batches_total",
				Help: "Total micro-batches processed by outcome (ok, failed).",
			},
			[]string{"status"},
		),
		RecordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_records_total",
				Help: "Total raw records decoded from the topic.",
			},
		),
		TokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pipeline_tokens_total",
				Help: "Total classified tokens written to the sink.",
			},
		),
		BatchRecords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_batch_records",
				Help:    "Number of records per micro-batch.",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_stage_duration_seconds",
				Help:    "Per-stage processing latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		ScoreCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "score_cache_hits_total",
				Help: "Total token scores served from the cache.",
			},
		),
		ScoreCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "score_cache_misses_total",
				Help: "Total token scores computed after a cache miss.",
			},
		),
		PipelineState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_state",
				Help: "Pipeline lifecycle state (0=starting, 1=streaming, 2=stopped, 3=failed).",
			},
		),
	}
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
