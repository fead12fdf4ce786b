package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/solver"
	"github.com/wonny/bondalloc/pkg/logger"
	"github.com/wonny/bondalloc/pkg/metrics"
)

// Optimizer runs build → solve → extract once per call
// ⭐ SSOT: 배분 최적화 파이프라인은 여기서만
type Optimizer struct {
	builder    *Builder
	solver     solver.Solver
	metrics    *metrics.Metrics
	logger     *logger.Logger
	strategyID string
}

var _ contracts.AllocationOptimizer = (*Optimizer)(nil)

// NewOptimizer creates a new optimizer. m may be nil.
func NewOptimizer(builder *Builder, s solver.Solver, m *metrics.Metrics, log *logger.Logger) *Optimizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Optimizer{
		builder: builder,
		solver:  s,
		metrics: m,
		logger:  log,
	}
}

// WithStrategyID tags produced allocations with a strategy identifier
func (o *Optimizer) WithStrategyID(id string) *Optimizer {
	o.strategyID = id
	return o
}

// BuildModel formulates the problem without solving it
func (o *Optimizer) BuildModel(universe *contracts.Universe, mandate contracts.Mandate) (*Model, error) {
	return o.builder.Build(universe, mandate)
}

// Optimize implements contracts.AllocationOptimizer.
// Each call builds its own problem instance; nothing is shared between calls.
func (o *Optimizer) Optimize(ctx context.Context, universe *contracts.Universe, mandate contracts.Mandate) (*contracts.Allocation, error) {
	model, err := o.builder.Build(universe, mandate)
	if err != nil {
		return o.finish(nil, err)
	}
	return o.finish(o.solve(ctx, model))
}

// OptimizeModel solves a model returned by BuildModel.
// The model's problem is frozen by the solve and cannot be reused.
func (o *Optimizer) OptimizeModel(ctx context.Context, model *Model) (*contracts.Allocation, error) {
	return o.finish(o.solve(ctx, model))
}

func (o *Optimizer) finish(alloc *contracts.Allocation, err error) (*contracts.Allocation, error) {
	o.metrics.RecordOutcome(Outcome(err))
	if err != nil {
		o.logger.WithError(err).WithField("outcome", Outcome(err)).Warn("Allocation failed")
		return nil, err
	}

	o.metrics.RecordYTM(alloc.PortfolioYTM)
	o.logger.WithFields(map[string]interface{}{
		"benchmark":     alloc.Benchmark,
		"positions":     alloc.Count(),
		"portfolio_ytm": alloc.PortfolioYTM,
		"total_weight":  alloc.TotalWeight(),
	}).Info("Allocation optimized")

	return alloc, nil
}

func (o *Optimizer) solve(ctx context.Context, model *Model) (*contracts.Allocation, error) {
	o.metrics.ObserveModel(model.Problem.NumVariables(), model.Problem.NumConstraints())

	// 1. Solve (exactly once)
	start := time.Now()
	sol, err := o.solver.Solve(ctx, model.Problem)
	o.metrics.ObserveSolve(time.Since(start))
	if err != nil {
		return nil, &contracts.SolverError{Status: "error", Err: err}
	}

	o.logger.WithFields(map[string]interface{}{
		"status":    sol.Status.String(),
		"objective": sol.Objective,
		"elapsed":   time.Since(start).String(),
	}).Debug("Solve finished")

	// 2. Extract
	alloc, err := Extract(model, sol)
	if err != nil {
		return nil, err
	}
	alloc.StrategyID = o.strategyID

	return alloc, nil
}

// Outcome classifies an optimization error for metrics and logs
func Outcome(err error) string {
	var (
		dataErr       *contracts.DataValidationError
		configErr     *contracts.ConfigurationError
		infeasibleErr *contracts.InfeasibleModelError
		unboundedErr  *contracts.UnboundedModelError
	)

	switch {
	case err == nil:
		return metrics.OutcomeOptimal
	case errors.As(err, &dataErr):
		return metrics.OutcomeData
	case errors.As(err, &configErr):
		return metrics.OutcomeConfig
	case errors.As(err, &infeasibleErr):
		return metrics.OutcomeInfeasible
	case errors.As(err, &unboundedErr):
		return metrics.OutcomeUnbounded
	default:
		return metrics.OutcomeSolver
	}
}

// IsDeterministic reports whether retrying the same inputs would fail the same way
func IsDeterministic(err error) bool {
	switch Outcome(err) {
	case metrics.OutcomeData, metrics.OutcomeConfig, metrics.OutcomeInfeasible, metrics.OutcomeUnbounded:
		return true
	default:
		return false
	}
}

// Remediation returns the operator hint for a failed allocation
func Remediation(err error) string {
	switch Outcome(err) {
	case metrics.OutcomeData:
		return "fix the dataset: a record is missing, malformed or out of range"
	case metrics.OutcomeConfig:
		return "fix the strategy: the mandate cannot be built against this dataset"
	case metrics.OutcomeInfeasible:
		return "relax constraints: widen the bands or lower the fixed allocation"
	case metrics.OutcomeUnbounded:
		return "check variable bounds: weights must stay within [0, 1]"
	case metrics.OutcomeSolver:
		return "retry or raise SOLVER_TIMEOUT; inspect the solver status"
	default:
		return ""
	}
}
