package grid

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects solver and analysis metrics for production
// monitoring. All metrics are namespaced with "gridsim_":
//
//   - inflight_solves (gauge): power-flow solves currently executing.
//   - solve_latency_ms (histogram): per-timestamp solve duration.
//     Labels: run_id, stage, status (success/error).
//   - solver_iterations (histogram): sweep iterations until convergence.
//     Labels: run_id, stage.
//   - scenarios_total (counter): analysis scenarios evaluated.
//     Labels: run_id, kind (contingency/ev/tap).
//   - convergence_failures_total (counter): solves that hit the iteration
//     budget. Labels: run_id, stage.
//
// Thread-safe; methods may be called concurrently from batch workers.
type PrometheusMetrics struct {
	inflightSolves      prometheus.Gauge
	solveLatency        *prometheus.HistogramVec
	solverIterations    *prometheus.HistogramVec
	scenarios           *prometheus.CounterVec
	convergenceFailures *prometheus.CounterVec

	enabled bool
}

// NewPrometheusMetrics creates and registers all gridsim metrics with the
// provided registry. Pass prometheus.DefaultRegisterer for the global
// registry, or a private prometheus.NewRegistry() for isolation (recommended
// in tests).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		inflightSolves: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridsim",
			Name:      "inflight_solves",
			Help:      "Number of power-flow solves currently executing",
		}),
		solveLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridsim",
			Name:      "solve_latency_ms",
			Help:      "Per-timestamp power-flow solve duration in milliseconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		}, []string{"run_id", "stage", "status"}),
		solverIterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridsim",
			Name:      "solver_iterations",
			Help:      "Sweep iterations until convergence",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		}, []string{"run_id", "stage"}),
		scenarios: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridsim",
			Name:      "scenarios_total",
			Help:      "Analysis scenarios evaluated (contingency alternatives, tap positions, EV assignments)",
		}, []string{"run_id", "kind"}),
		convergenceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridsim",
			Name:      "convergence_failures_total",
			Help:      "Power-flow solves that exhausted the iteration budget",
		}, []string{"run_id", "stage"}),
	}
}

// RecordSolve records one solve's duration and outcome.
func (pm *PrometheusMetrics) RecordSolve(runID, stage string, latency time.Duration, status string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.solveLatency.WithLabelValues(runID, stage, status).Observe(float64(latency.Microseconds()) / 1000)
}

// RecordIterations records the iteration count of a converged solve.
func (pm *PrometheusMetrics) RecordIterations(runID, stage string, iterations int) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.solverIterations.WithLabelValues(runID, stage).Observe(float64(iterations))
}

// IncrementScenarios counts one evaluated analysis scenario.
func (pm *PrometheusMetrics) IncrementScenarios(runID, kind string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.scenarios.WithLabelValues(runID, kind).Inc()
}

// IncrementConvergenceFailures counts one solve that failed to converge.
func (pm *PrometheusMetrics) IncrementConvergenceFailures(runID, stage string) {
	if pm == nil || !pm.enabled {
		return
	}
	pm.convergenceFailures.WithLabelValues(runID, stage).Inc()
}

// SolveStarted moves the inflight gauge up; SolveFinished moves it down.
func (pm *PrometheusMetrics) SolveStarted() {
	if pm == nil || !pm.enabled {
		return
	}
	pm.inflightSolves.Inc()
}

// SolveFinished moves the inflight gauge down.
func (pm *PrometheusMetrics) SolveFinished() {
	if pm == nil || !pm.enabled {
		return
	}
	pm.inflightSolves.Dec()
}
