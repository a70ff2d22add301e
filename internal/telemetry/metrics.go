// Package telemetry exposes DireClaw's operational surface: Prometheus
// metrics over the supervisor's /metrics endpoint and OpenTelemetry traces
// for workflow runs, step attempts, and provider invocations. Grounded on
// the teacher's internal/tracing package (MetricsCollector, OTelProvider),
// narrowed to what DireClaw's spec actually names: no local SQLite trace
// storage (the module carries no SQL driver at all, see DESIGN.md) and no
// custom tracer-abstraction layer over otel; callers use the otel API
// directly.
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus instrument the daemon publishes, plus the
// live gauges a caller updates directly (queue depth, in-flight count)
// rather than via Inc/Add, since those reflect current state instead of a
// running total.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	stepAttempts *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec

	queueDepth   prometheus.Gauge
	inFlight     prometheus.Gauge
	runState     *prometheus.GaugeVec
}

// NewMetrics builds a fresh registry and registers every DireClaw
// instrument on it. A dedicated registry (rather than prometheus's global
// DefaultRegisterer) keeps repeated construction in tests from colliding
// on duplicate registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "direclaw_runs_total",
			Help: "Workflow runs completed, labeled by terminal state.",
		}, []string{"workflow", "state"}),
		stepAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "direclaw_step_attempts_total",
			Help: "Step attempts made, labeled by workflow, step, kind (the workflow engine reports the step's agent) and outcome.",
		}, []string{"workflow", "step", "kind", "outcome"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "direclaw_run_duration_seconds",
			Help:    "Wall-clock duration of a workflow run from queued to terminal.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s .. 8192s (~2.3h)
		}, []string{"workflow", "state"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "direclaw_step_duration_seconds",
			Help:    "Duration of a single step attempt, including provider invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"workflow", "step", "kind"}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "direclaw_queue_depth",
			Help: "Pending incoming messages not yet claimed by the queue worker.",
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "direclaw_runs_in_flight",
			Help: "Workflow runs currently in the running or waiting state.",
		}),
		runState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "direclaw_run_state",
			Help: "1 for the run's current state, 0 otherwise; one series per (workflow, state) pair seen.",
		}, []string{"workflow", "state"}),
	}
	return m
}

// ObserveRunCompleted records a terminal run outcome: one counter
// increment and one duration observation.
func (m *Metrics) ObserveRunCompleted(workflow, state string, durationSeconds float64) {
	m.runsTotal.WithLabelValues(workflow, state).Inc()
	m.runDuration.WithLabelValues(workflow, state).Observe(durationSeconds)
}

// ObserveStepAttempt records one step attempt's outcome and duration.
func (m *Metrics) ObserveStepAttempt(workflow, step, kind, outcome string, durationSeconds float64) {
	m.stepAttempts.WithLabelValues(workflow, step, kind, outcome).Inc()
	m.stepDuration.WithLabelValues(workflow, step, kind).Observe(durationSeconds)
}

// SetQueueDepth sets the current pending-incoming-message count.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// SetInFlight sets the current count of non-terminal runs.
func (m *Metrics) SetInFlight(n int) {
	m.inFlight.Set(float64(n))
}

// SetRunState marks workflow's current state, zeroing every other known
// state for that workflow so stale series don't linger at 1.
func (m *Metrics) SetRunState(workflow, state string, knownStates []string) {
	for _, s := range knownStates {
		if s == state {
			m.runState.WithLabelValues(workflow, s).Set(1)
		} else {
			m.runState.WithLabelValues(workflow, s).Set(0)
		}
	}
}

// Handler returns the HTTP handler the supervisor mounts at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry so the otel Prometheus exporter
// (internal/telemetry/tracing.go) can bridge otel metrics into the same
// series space instead of running a second /metrics listener.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns a process-wide Metrics instance, built once on first
// use, for a caller that has no *Metrics threaded to it. cmd/direclawd
// does not use it: it builds its own instance with NewMetrics and passes
// that to the components it wires.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}
