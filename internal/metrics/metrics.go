// Package metrics records training progress as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Split label values.
const (
	SplitTrain = "train"
	SplitValid = "valid"
	SplitTest  = "test"
)

// Recorder owns a private registry so several runs (and tests) never collide
// on the default one.
type Recorder struct {
	registry *prometheus.Registry

	// EpochsTotal counts completed epochs
	EpochsTotal prometheus.Counter

	// Loss tracks the latest mean loss per split
	Loss *prometheus.GaugeVec

	// Accuracy tracks the latest mean accuracy per split
	Accuracy *prometheus.GaugeVec

	// EpochDuration tracks wall time per epoch in seconds
	EpochDuration prometheus.Histogram

	// BestValidLoss tracks the validation loss of the saved checkpoint
	BestValidLoss prometheus.Gauge

	// CheckpointsTotal counts checkpoint writes
	CheckpointsTotal prometheus.Counter

	// Parameters tracks the number of trainable scalars
	Parameters prometheus.Gauge
}

// NewRecorder registers every training metric on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		EpochsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentiment_epochs_total",
			Help: "Total completed training epochs",
		}),
		Loss: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentiment_loss",
			Help: "Latest mean binary cross entropy by split",
		}, []string{"split"}),
		Accuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sentiment_accuracy_ratio",
			Help: "Latest mean accuracy by split (0-1)",
		}, []string{"split"}),
		EpochDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentiment_epoch_duration_seconds",
			Help:    "Epoch wall time in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		BestValidLoss: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentiment_best_valid_loss",
			Help: "Validation loss of the persisted checkpoint",
		}),
		CheckpointsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentiment_checkpoints_total",
			Help: "Total checkpoint writes",
		}),
		Parameters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentiment_model_parameters",
			Help: "Number of trainable parameters",
		}),
	}
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSplit records the result of one pass over split.
func (r *Recorder) ObserveSplit(split string, loss, accuracy float64) {
	r.Loss.WithLabelValues(split).Set(loss)
	r.Accuracy.WithLabelValues(split).Set(accuracy)
}

// ObserveEpoch records a finished epoch.
func (r *Recorder) ObserveEpoch(d time.Duration) {
	r.EpochsTotal.Inc()
	r.EpochDuration.Observe(d.Seconds())
}

// CheckpointSaved records a checkpoint write at validLoss.
func (r *Recorder) CheckpointSaved(validLoss float64) {
	r.CheckpointsTotal.Inc()
	r.BestValidLoss.Set(validLoss)
}

// WriteTextfile dumps the registry in the text exposition format, the way
// node_exporter's textfile collector expects it.
func (r *Recorder) WriteTextfile(filename string) error {
	if err := prometheus.WriteToTextfile(filename, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
