package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stageRuns      *prometheus.CounterVec
	pairsProcessed *prometheus.CounterVec
	pairErrors     *prometheus.CounterVec
	rowsUpserted   *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		stageRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_stage_runs_total",
				Help: "Total number of pipeline stage runs by outcome",
			},
			[]string{"stage", "status"},
		),
		pairsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_pairs_processed_total",
				Help: "Total number of instrument/timeframe pairs processed",
			},
			[]string{"stage"},
		),
		pairErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_pair_errors_total",
				Help: "Total number of per-pair errors by kind",
			},
			[]string{"stage", "kind"},
		),
		rowsUpserted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendpulse_rows_upserted_total",
				Help: "Total number of rows written to the store",
			},
			[]string{"table"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trendpulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendpulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordStageRun records a completed stage run with its outcome.
func (r *Recorder) RecordStageRun(stage string, ok bool) {
	status := "failed"
	if ok {
		status = "completed"
	}
	r.stageRuns.WithLabelValues(stage, status).Inc()
}

// RecordPairProcessed records a processed instrument/timeframe pair.
func (r *Recorder) RecordPairProcessed(stage string) {
	r.pairsProcessed.WithLabelValues(stage).Inc()
}

// RecordPairError records a per-pair error occurrence.
func (r *Recorder) RecordPairError(stage, kind string) {
	r.pairErrors.WithLabelValues(stage, kind).Inc()
}

// RecordRowsUpserted records rows written to a store table.
func (r *Recorder) RecordRowsUpserted(table string, n int) {
	r.rowsUpserted.WithLabelValues(table).Add(float64(n))
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
