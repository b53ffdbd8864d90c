package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/nameforge/pkg/batch/core/metrics"
	logger "github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// Metrics are exported by writing the registry to a node_exporter textfile at the end of a run.
type PrometheusRecorder struct {
	registry     *prometheus.Registry
	textfilePath string

	// Item Metrics
	itemCounter      *prometheus.CounterVec
	itemFailureCount *prometheus.CounterVec
	itemSkipCounter  *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec

	// Run Metrics
	runDurationSeconds prometheus.Gauge
	runLastSuccess     prometheus.Gauge
	runRemaining       prometheus.Gauge
	runStoppedEarly    prometheus.Gauge
	manifestSize       prometheus.Gauge
	skippedSize        prometheus.Gauge
	ledgerSize         prometheus.Gauge
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder. An empty textfilePath disables Flush.
func NewPrometheusRecorder(textfilePath string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	r := &PrometheusRecorder{
		registry:     registry,
		textfilePath: textfilePath,
		itemCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nameforge_items_total",
			Help: "Items resolved by pass and result.",
		}, []string{"pass", "result"}),
		itemFailureCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nameforge_item_failures_total",
			Help: "Failed enrichment attempts by pass and error kind.",
		}, []string{"pass", "kind"}),
		itemSkipCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nameforge_items_skipped_total",
			Help: "Items moved to the skipped set.",
		}, []string{"reason"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nameforge_enrichment_call_duration_seconds",
			Help:    "Duration of enrichment calls.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"pass", "result"}),
		runDurationSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		runLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_run_last_finished_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		runRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_run_remaining_items",
			Help: "Items left for future runs after the last run.",
		}),
		runStoppedEarly: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_run_stopped_early",
			Help: "1 if the last run stopped before finishing its batch.",
		}),
		manifestSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_manifest_items",
			Help: "Items with a durably stored record.",
		}),
		skippedSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_skipped_items",
			Help: "Items in the skipped set.",
		}),
		ledgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nameforge_failure_ledger_items",
			Help: "Items with a failure ledger entry.",
		}),
	}

	registry.MustRegister(
		r.itemCounter,
		r.itemFailureCount,
		r.itemSkipCounter,
		r.callDuration,
		r.runDurationSeconds,
		r.runLastSuccess,
		r.runRemaining,
		r.runStoppedEarly,
		r.manifestSize,
		r.skippedSize,
		r.ledgerSize,
	)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordItemSuccess records a succeeded item.
func (r *PrometheusRecorder) RecordItemSuccess(ctx context.Context, pass model.Pass, duration time.Duration) {
	r.itemCounter.WithLabelValues(string(pass), "succeeded").Inc()
	r.callDuration.WithLabelValues(string(pass), "succeeded").Observe(duration.Seconds())
}

// RecordItemFailure records a failed item.
func (r *PrometheusRecorder) RecordItemFailure(ctx context.Context, pass model.Pass, kind string, duration time.Duration) {
	r.itemCounter.WithLabelValues(string(pass), "failed").Inc()
	r.itemFailureCount.WithLabelValues(string(pass), kind).Inc()
	r.callDuration.WithLabelValues(string(pass), "failed").Observe(duration.Seconds())
}

// RecordItemSkip records an item moved to the skipped set.
func (r *PrometheusRecorder) RecordItemSkip(ctx context.Context, reason string) {
	r.itemSkipCounter.WithLabelValues(reason).Inc()
}

// RecordRunEnd records the run summary gauges.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, summary *model.RunSummary) {
	r.runDurationSeconds.Set(summary.Duration().Seconds())
	r.runLastSuccess.Set(float64(summary.FinishedAt.Unix()))
	r.runRemaining.Set(float64(summary.Remaining))
	if summary.StoppedEarly {
		r.runStoppedEarly.Set(1)
	} else {
		r.runStoppedEarly.Set(0)
	}
	r.manifestSize.Set(float64(summary.Cumulative.TotalEnriched))
	r.skippedSize.Set(float64(summary.Cumulative.TotalSkipped))
	r.ledgerSize.Set(float64(summary.Cumulative.LedgerSize))
	logger.Debugf("Metrics: run '%s' ended. Duration: %.3fs", summary.RunID, summary.Duration().Seconds())
}

// Flush writes the registry to the textfile, if one is configured.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.textfilePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.textfilePath), 0o755); err != nil {
		return fmt.Errorf("create metrics textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(r.textfilePath, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile '%s': %w", r.textfilePath, err)
	}
	logger.Debugf("Metrics: written to '%s'.", r.textfilePath)
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
