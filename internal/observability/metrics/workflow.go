package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// WorkflowMetrics observes orchestration runs: terminal statuses, per-stage
// latency and retries, and how many cases sit in human review.
type WorkflowMetrics struct {
	registry *prometheus.Registry

	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	stageRetries   *prometheus.CounterVec
	reviewsPending prometheus.Gauge
}

func NewWorkflowMetrics(service string) *WorkflowMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskflow",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Total finished workflow runs by terminal status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskflow",
			Subsystem: "workflow",
			Name:      "run_duration_seconds",
			Help:      "End-to-end run duration in seconds by terminal status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riskflow",
			Subsystem: "workflow",
			Name:      "stage_duration_seconds",
			Help:      "Stage duration in seconds, including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskflow",
			Subsystem: "workflow",
			Name:      "stage_failures_total",
			Help:      "Total stage executions that exhausted their retry budget.",
		},
		[]string{"service", "stage"},
	)
	stageRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskflow",
			Subsystem: "workflow",
			Name:      "stage_retries_total",
			Help:      "Total retry attempts by operation.",
		},
		[]string{"service", "operation"},
	)
	reviewsPending := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riskflow",
			Subsystem: "workflow",
			Name:      "reviews_pending",
			Help:      "Number of runs currently suspended in human review.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(runsTotal, runDuration, stageDuration, stageFailures, stageRetries, reviewsPending)

	return &WorkflowMetrics{
		registry:       registry,
		runsTotal:      runsTotal,
		runDuration:    runDuration,
		stageDuration:  stageDuration,
		stageFailures:  stageFailures,
		stageRetries:   stageRetries,
		reviewsPending: reviewsPending,
	}
}

func (m *WorkflowMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observer binds the metrics to one service label for the orchestrator.
func (m *WorkflowMetrics) Observer(service string) *WorkflowObserver {
	return &WorkflowObserver{metrics: m, service: service}
}

type WorkflowObserver struct {
	metrics *WorkflowMetrics
	service string
}

func (o *WorkflowObserver) RunFinished(status domain.RunStatus, duration time.Duration) {
	o.metrics.runsTotal.WithLabelValues(o.service, string(status)).Inc()
	o.metrics.runDuration.WithLabelValues(o.service, string(status)).Observe(duration.Seconds())
}

func (o *WorkflowObserver) StageObserved(stage string, duration time.Duration, err error) {
	o.metrics.stageDuration.WithLabelValues(o.service, stage).Observe(duration.Seconds())
	if err != nil {
		o.metrics.stageFailures.WithLabelValues(o.service, stage).Inc()
	}
}

func (o *WorkflowObserver) ReviewOpened() {
	o.metrics.reviewsPending.Inc()
}

func (o *WorkflowObserver) ReviewClosed() {
	o.metrics.reviewsPending.Dec()
}

// RecordRetry counts one retry attempt for an operation. Wired into the
// resilience executor's retry hook.
func (o *WorkflowObserver) RecordRetry(operation string, _ int) {
	o.metrics.stageRetries.WithLabelValues(o.service, operation).Inc()
}
