package agent

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "research"
	metricsSubsystem = "agent"
)

// Metrics holds the Prometheus collectors of unit executions.
type Metrics struct {
	Executions *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Tokens     *prometheus.CounterVec
}

// NewMetrics registers the execution collectors on reg. A nil reg uses a
// private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "executions_total",
				Help:      "Total number of unit executions by outcome",
			},
			[]string{"task_type", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "execution_duration_seconds",
				Help:      "Duration of unit executions in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"task_type"},
		),
		Tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: metricsSubsystem,
				Name:      "tokens_total",
				Help:      "Total tokens reported by backends",
			},
			[]string{"task_type", "backend"},
		),
	}
}

// observe records one finished execution. Failures are labelled by error kind.
func (m *Metrics) observe(taskType string, result *Result, elapsed time.Duration) {
	if m == nil || result == nil {
		return
	}
	status := "success"
	if !result.Success {
		status = string(result.Metadata.ErrorKind)
	}
	m.Executions.WithLabelValues(taskType, status).Inc()
	m.Duration.WithLabelValues(taskType).Observe(elapsed.Seconds())
	if result.Metadata.TokensUsed > 0 {
		m.Tokens.WithLabelValues(taskType, result.Metadata.BackendID).Add(float64(result.Metadata.TokensUsed))
	}
}
