// Package metrics holds the Prometheus instruments of the allocator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Allocation outcomes used as the "outcome" label
const (
	OutcomeOptimal    = "optimal"
	OutcomeData       = "data_validation"
	OutcomeConfig     = "configuration"
	OutcomeInfeasible = "infeasible"
	OutcomeUnbounded  = "unbounded"
	OutcomeSolver     = "solver_error"
	OutcomeCached     = "cached"
)

// Metrics holds all Prometheus metrics for the allocator.
// A nil *Metrics is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Metrics struct {
	SolveDuration    prometheus.Histogram
	AllocationsTotal *prometheus.CounterVec // labels: outcome
	PortfolioYTM     prometheus.Gauge
	ModelVariables   prometheus.Gauge
	ModelConstraints prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the metrics on a private registry
func New() *Metrics {
	m := &Metrics{
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bondalloc_solve_duration_seconds",
			Help:    "LP solve latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		AllocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bondalloc_allocations_total",
			Help: "Allocation runs by outcome",
		}, []string{"outcome"}),
		PortfolioYTM: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bondalloc_portfolio_ytm",
			Help: "Weighted yield to maturity of the last optimal allocation (fraction)",
		}),
		ModelVariables: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bondalloc_model_variables",
			Help: "Decision variables in the last built model",
		}),
		ModelConstraints: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bondalloc_model_constraints",
			Help: "Named constraints in the last built model",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.SolveDuration,
		m.AllocationsTotal,
		m.PortfolioYTM,
		m.ModelVariables,
		m.ModelConstraints,
	)

	return m
}

// ObserveSolve records one solver call
func (m *Metrics) ObserveSolve(d time.Duration) {
	if m == nil {
		return
	}
	m.SolveDuration.Observe(d.Seconds())
}

// ObserveModel records the size of a built model
func (m *Metrics) ObserveModel(variables, constraints int) {
	if m == nil {
		return
	}
	m.ModelVariables.Set(float64(variables))
	m.ModelConstraints.Set(float64(constraints))
}

// RecordOutcome counts one allocation run
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.AllocationsTotal.WithLabelValues(outcome).Inc()
}

// RecordYTM stores the objective value of an optimal allocation
func (m *Metrics) RecordYTM(ytm float64) {
	if m == nil {
		return
	}
	m.PortfolioYTM.Set(ytm)
}

// Registry exposes the underlying registry (tests, extra collectors)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
