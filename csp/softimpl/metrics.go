package softimpl

import (
	"time"

	"github.com/tsoniclang/tsonic-node-sub000/common/metrics"
	"github.com/tsoniclang/tsonic-node-sub000/common/metrics/disabled"
)

var (
	enginesCreatedOpts = metrics.CounterOpts{
		Namespace:  "csp",
		Name:       "engines_created",
		Help:       "The number of streaming engines created, by engine kind and algorithm.",
		LabelNames: []string{"kind", "algorithm"},
	}

	operationsFailedOpts = metrics.CounterOpts{
		Namespace:  "csp",
		Name:       "operations_failed",
		Help:       "The number of provider operations that returned an error.",
		LabelNames: []string{"operation"},
	}

	keysGeneratedOpts = metrics.GaugeOpts{
		Namespace:  "csp",
		Name:       "keys_generated",
		Help:       "The number of keys generated or imported by the provider, by key type.",
		LabelNames: []string{"type"},
	}

	taskDurationOpts = metrics.HistogramOpts{
		Namespace:  "csp",
		Name:       "task_duration_seconds",
		Help:       "The time spent by asynchronous tasks, by operation.",
		Buckets:    []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		LabelNames: []string{"operation"},
	}
)

// Metrics 软件实现记录的度量指标。
type Metrics struct {
	EnginesCreated   metrics.Counter
	OperationsFailed metrics.Counter
	KeysGenerated    metrics.Gauge
	TaskDuration     metrics.Histogram
}

// NewMetrics provider 为 nil 时不记录任何指标。
func NewMetrics(provider metrics.Provider) *Metrics {
	if provider == nil {
		provider = &disabled.Provider{}
	}
	return &Metrics{
		EnginesCreated:   provider.NewCounter(enginesCreatedOpts),
		OperationsFailed: provider.NewCounter(operationsFailedOpts),
		KeysGenerated:    provider.NewGauge(keysGeneratedOpts),
		TaskDuration:     provider.NewHistogram(taskDurationOpts),
	}
}

func (m *Metrics) engineCreated(kind, algorithm string) {
	m.EnginesCreated.With("kind", kind, "algorithm", algorithm).Add(1)
}

func (m *Metrics) failed(operation string, err error) error {
	if err != nil {
		m.OperationsFailed.With("operation", operation).Add(1)
	}
	return err
}

func (m *Metrics) taskFinished(operation string, elapsed time.Duration) {
	m.TaskDuration.With("operation", operation).Observe(elapsed.Seconds())
}
