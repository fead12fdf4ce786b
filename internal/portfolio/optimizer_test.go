package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/lpmodel"
	"github.com/wonny/bondalloc/internal/solver"
	"github.com/wonny/bondalloc/pkg/metrics"
)

const propTol = 1e-6

type countingSolver struct {
	inner solver.Solver
	calls int
}

func (c *countingSolver) Solve(ctx context.Context, p *lpmodel.Problem) (*solver.Solution, error) {
	c.calls++
	return c.inner.Solve(ctx, p)
}

type failingSolver struct{ err error }

func (f failingSolver) Solve(context.Context, *lpmodel.Problem) (*solver.Solution, error) {
	return nil, f.err
}

func newTestOptimizer(c Constraints, s solver.Solver, m *metrics.Metrics) *Optimizer {
	return NewOptimizer(NewBuilder(c, nil), s, m, nil)
}

func TestOptimizer_TwoInstrumentScenario(t *testing.T) {
	s := &countingSolver{inner: solver.NewSimplex(0, 5*time.Second)}
	opt := newTestOptimizer(DefaultConstraints(), s, nil).WithStrategyID("core_bond")

	alloc, err := opt.Optimize(context.Background(), mustUniverse(t, spab(), spaxx()), testMandate())
	require.NoError(t, err)

	assert.Equal(t, 1, s.calls, "solver is invoked exactly once")
	assert.Equal(t, "core_bond", alloc.StrategyID)

	cash, _ := alloc.GetPosition("SPAXX")
	assert.InDelta(t, 0.01, cash.Weight, propTol)
	bench, _ := alloc.GetPosition("SPAB")
	assert.InDelta(t, 0.99, bench.Weight, propTol)
	assert.InDelta(t, 0.0297, alloc.PortfolioYTM, propTol)
	assert.Equal(t, "2.97%", contracts.FormatPercent(alloc.PortfolioYTM))
}

func TestOptimizer_OptimizeModel(t *testing.T) {
	s := &countingSolver{inner: solver.NewSimplex(0, 5*time.Second)}
	opt := newTestOptimizer(DefaultConstraints(), s, nil)

	model, err := opt.BuildModel(mustUniverse(t, spab(), spaxx()), testMandate())
	require.NoError(t, err)
	assert.False(t, model.Problem.Frozen())

	alloc, err := opt.OptimizeModel(context.Background(), model)
	require.NoError(t, err)
	assert.Equal(t, 1, s.calls)
	assert.True(t, model.Problem.Frozen())

	bench, _ := alloc.GetPosition("SPAB")
	assert.InDelta(t, 0.99, bench.Weight, propTol)
}

// five-fund universe where the optimum is pushed against several bands
func richUniverse(t *testing.T) *contracts.Universe {
	t.Helper()

	return mustUniverse(t,
		spab(),
		spaxx(),
		etf("HYG", 8, 3.5, 0.07, 1, 75, 0, 0, 1),
		etf("GOVT", 1, 6, 0.025, 0, 23, 1, 0, 0),
		etf("MBB", 1.5, 5.5, 0.035, 0, 93, 0, 1, 0),
	)
}

func TestOptimizer_BandProperties(t *testing.T) {
	universe := richUniverse(t)
	mandate := testMandate()
	c := DefaultConstraints()

	alloc, err := newTestOptimizer(c, solver.NewSimplex(0, 5*time.Second), nil).
		Optimize(context.Background(), universe, mandate)
	require.NoError(t, err)

	bm, _ := universe.Lookup("SPAB")
	weights := map[string]float64{}
	for _, pos := range alloc.Positions {
		weights[pos.Ticker] = pos.Weight
		assert.GreaterOrEqual(t, pos.Weight, 0.0)
		assert.LessOrEqual(t, pos.Weight, 1.0)
	}

	sum := func(f func(contracts.Instrument) float64) float64 {
		var total float64
		for _, inst := range universe.Instruments() {
			total += f(inst) * weights[inst.Ticker]
		}
		return total
	}

	assert.InDelta(t, 1.0, sum(func(in contracts.Instrument) float64 { return in.WeightMultiplier }), propTol)
	assert.InDelta(t, mandate.FixedFraction(), weights["SPAXX"], propTol)

	credit := sum(func(in contracts.Instrument) float64 { return in.CreditNum })
	assert.GreaterOrEqual(t, credit, max(1, bm.CreditNum-2)-propTol)
	assert.LessOrEqual(t, credit, bm.CreditNum+2+propTol)

	duration := sum(func(in contracts.Instrument) float64 { return in.Duration })
	assert.GreaterOrEqual(t, duration, 0.8*bm.Duration-propTol)
	assert.LessOrEqual(t, duration, 1.2*bm.Duration+propTol)

	for _, sector := range contracts.DefaultSectors() {
		v := sum(func(in contracts.Instrument) float64 { return in.SectorExposure[sector] })
		assert.GreaterOrEqual(t, v, 0.75*bm.SectorExposure[sector]-propTol, sector)
		assert.LessOrEqual(t, v, 1.25*bm.SectorExposure[sector]+propTol, sector)
	}

	assert.LessOrEqual(t, sum(func(in contracts.Instrument) float64 { return in.NonBenchmark }), 0.10+propTol)

	// holding only the benchmark is feasible, so the optimum yields at least as much
	assert.GreaterOrEqual(t, alloc.PortfolioYTM, 0.0297-propTol)
	assert.InDelta(t, sum(func(in contracts.Instrument) float64 { return in.YTM }), alloc.PortfolioYTM, 1e-9)

	for _, e := range alloc.Exposures {
		assert.True(t, e.Within(propTol), "%s = %v outside [%v, %v]", e.Name, e.Value, e.Lower, e.Upper)
	}
}

func TestOptimizer_Infeasible(t *testing.T) {
	// a zero-width duration band cannot hold 4.95 against a benchmark of 5
	c := DefaultConstraints()
	c.DurationBandPct = 0
	m := metrics.New()

	alloc, err := newTestOptimizer(c, solver.NewSimplex(0, 5*time.Second), m).
		Optimize(context.Background(), mustUniverse(t, spab(), spaxx()), testMandate())

	assert.Nil(t, alloc)
	var target *contracts.InfeasibleModelError
	require.True(t, errors.As(err, &target), "got %T: %v", err, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllocationsTotal.WithLabelValues(metrics.OutcomeInfeasible)))
}

func TestOptimizer_FixedTickerIsBenchmark(t *testing.T) {
	mandate := contracts.Mandate{
		Benchmark:   "SPAB",
		FixedTicker: "SPAB",
		FixedAmount: 100000,
		TotalFunds:  100000,
	}
	opt := newTestOptimizer(DefaultConstraints(), solver.NewSimplex(0, 5*time.Second), nil)

	alloc, err := opt.Optimize(context.Background(), mustUniverse(t, spab()), mandate)
	require.NoError(t, err)
	require.Equal(t, 1, alloc.Count())
	assert.InDelta(t, 1.0, alloc.Positions[0].Weight, propTol)
	assert.Equal(t, int64(4000), alloc.Positions[0].Shares)

	// the fixed row then demands 1% while the weight row demands 100%
	mandate.FixedAmount = 1000
	alloc, err = opt.Optimize(context.Background(), mustUniverse(t, spab()), mandate)
	assert.Nil(t, alloc)
	var target *contracts.InfeasibleModelError
	require.True(t, errors.As(err, &target), "got %T: %v", err, err)
}

func TestOptimizer_MissingBenchmarkProducesNoWeights(t *testing.T) {
	s := &countingSolver{inner: solver.NewSimplex(0, 0)}
	mandate := testMandate()
	mandate.Benchmark = "AGG"

	alloc, err := newTestOptimizer(DefaultConstraints(), s, nil).
		Optimize(context.Background(), mustUniverse(t, spab(), spaxx()), mandate)

	assert.Nil(t, alloc)
	var target *contracts.ConfigurationError
	assert.True(t, errors.As(err, &target))
	assert.Zero(t, s.calls, "solver must not run on a failed build")
}

func TestOptimizer_SolverError(t *testing.T) {
	boom := errors.New("engine unavailable")

	_, err := newTestOptimizer(DefaultConstraints(), failingSolver{err: boom}, nil).
		Optimize(context.Background(), mustUniverse(t, spab(), spaxx()), testMandate())

	var target *contracts.SolverError
	require.True(t, errors.As(err, &target))
	assert.ErrorIs(t, err, boom)
}

func TestOptimizer_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	opt := newTestOptimizer(DefaultConstraints(), solver.NewSimplex(0, 0), m)

	_, err := opt.Optimize(context.Background(), mustUniverse(t, spab(), spaxx()), testMandate())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AllocationsTotal.WithLabelValues(metrics.OutcomeOptimal)))
	assert.InDelta(t, 0.0297, testutil.ToFloat64(m.PortfolioYTM), propTol)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelVariables))
	assert.Equal(t, 13.0, testutil.ToFloat64(m.ModelConstraints))
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err           error
		want          string
		deterministic bool
	}{
		{nil, metrics.OutcomeOptimal, false},
		{&contracts.DataValidationError{Field: "price"}, metrics.OutcomeData, true},
		{&contracts.ConfigurationError{Field: "benchmark"}, metrics.OutcomeConfig, true},
		{&contracts.InfeasibleModelError{}, metrics.OutcomeInfeasible, true},
		{&contracts.UnboundedModelError{}, metrics.OutcomeUnbounded, true},
		{&contracts.SolverError{Status: "timeout"}, metrics.OutcomeSolver, false},
		{errors.New("connection reset"), metrics.OutcomeSolver, false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
			assert.Equal(t, tt.deterministic, IsDeterministic(tt.err))
		})
	}
}

func TestRemediation(t *testing.T) {
	assert.Empty(t, Remediation(nil))
	assert.Contains(t, Remediation(&contracts.InfeasibleModelError{}), "relax constraints")
	assert.Contains(t, Remediation(&contracts.DataValidationError{}), "dataset")
	assert.Contains(t, Remediation(&contracts.ConfigurationError{}), "strategy")
	assert.NotEqual(t,
		Remediation(&contracts.DataValidationError{}),
		Remediation(&contracts.InfeasibleModelError{}))
}
