// Package metrics defines the Prometheus instrumentation for the
// booking ML pipeline: export volume, training outcomes, and prediction
// traffic. The export and train jobs push nothing; they expose these
// series on a local endpoint for scrape-on-run setups and tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus series for the pipeline.
type Metrics struct {
	// Export metrics
	ExportedRows   *prometheus.CounterVec // rows exported, labeled by entity type
	ExportDuration prometheus.Histogram   // wall time of a full export run
	ExportErrors   prometheus.Counter     // failed export runs

	// Training metrics
	TrainingRuns  *prometheus.CounterVec // training runs, labeled by model
	ModelAccuracy *prometheus.GaugeVec   // last holdout accuracy, labeled by model
	ModelSamples  *prometheus.GaugeVec   // labeled rows the current model was fit on
	BaselineModel *prometheus.GaugeVec   // 1 when the current model is a baseline fallback

	// Prediction metrics
	Predictions       *prometheus.CounterVec // predictions served, labeled by model
	PredictionErrors  prometheus.Counter     // failed predictions
	PredictionLatency prometheus.Histogram   // end-to-end scoring latency
	PredictionScores  prometheus.Histogram   // distribution of served probabilities
	RemindersFlagged  prometheus.Counter     // bookings flagged for an extra reminder
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics on a custom registry, which keeps
// tests isolated from the global state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ExportedRows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "export_rows_total",
			Help: "Rows written to the feature table, by entity type",
		}, []string{"entity"}),
		ExportDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "export_duration_seconds",
			Help:    "Wall time of a full export run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ExportErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "export_errors_total",
			Help: "Failed export runs",
		}),
		TrainingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Completed training runs, by model",
		}, []string{"model"}),
		ModelAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Holdout accuracy of the most recently trained model",
		}, []string{"model"}),
		ModelSamples: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "model_samples",
			Help: "Labeled rows the most recent model was fit on",
		}, []string{"model"}),
		BaselineModel: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "model_baseline",
			Help: "1 when the most recent model is a synthetic or no-holdout baseline",
		}, []string{"model"}),
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Predictions served, by model",
		}, []string{"model"}),
		PredictionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Predictions that failed (missing model, bad input)",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end scoring latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_scores",
			Help:    "Distribution of served probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		RemindersFlagged: factory.NewCounter(prometheus.CounterOpts{
			Name: "reminders_flagged_total",
			Help: "Bookings flagged for an extra reminder",
		}),
	}
}

// ObserveTraining records the outcome of one training run.
func (m *Metrics) ObserveTraining(model string, accuracy float64, samples int, baseline bool) {
	m.TrainingRuns.WithLabelValues(model).Inc()
	m.ModelAccuracy.WithLabelValues(model).Set(accuracy)
	m.ModelSamples.WithLabelValues(model).Set(float64(samples))
	b := 0.0
	if baseline {
		b = 1
	}
	m.BaselineModel.WithLabelValues(model).Set(b)
}
