package portfolio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/solver"
)

func builtModel(t *testing.T) *Model {
	t.Helper()

	model, err := NewBuilder(DefaultConstraints(), nil).Build(mustUniverse(t, spab(), spaxx()), testMandate())
	require.NoError(t, err)
	return model
}

func TestExtract_Optimal(t *testing.T) {
	model := builtModel(t)

	alloc, err := Extract(model, &solver.Solution{
		Status: solver.StatusOptimal,
		Values: []float64{0.99, 0.01},
	})
	require.NoError(t, err)

	require.Equal(t, 2, alloc.Count())
	assert.Equal(t, "SPAB", alloc.Positions[0].Ticker)
	assert.Equal(t, "SPAXX", alloc.Positions[1].Ticker)

	spabPos, _ := alloc.GetPosition("SPAB")
	assert.Equal(t, int64(3960), spabPos.Shares) // 0.99 × 100000 / 25
	assert.InDelta(t, 99000, spabPos.MarketValue, 1e-9)
	assert.Equal(t, "99.00%", spabPos.WeightLabel())

	cash, _ := alloc.GetPosition("SPAXX")
	assert.Equal(t, int64(1000), cash.Shares)

	assert.InDelta(t, 0.0297, alloc.PortfolioYTM, 1e-12)
	assert.Equal(t, "SPAB", alloc.Benchmark)
	assert.False(t, alloc.CreatedAt.IsZero())

	require.Len(t, alloc.Exposures, 6)
	for _, e := range alloc.Exposures {
		assert.True(t, e.Within(FeasibilityTolerance), "%s = %v outside [%v, %v]", e.Name, e.Value, e.Lower, e.Upper)
	}
	dur, ok := alloc.GetExposure(BandDuration)
	require.True(t, ok)
	assert.InDelta(t, 4.95, dur.Value, 1e-12)
}

func TestExtract_ClampsWithinTolerance(t *testing.T) {
	mandate := testMandate()
	mandate.FixedAmount = 0

	model, err := NewBuilder(DefaultConstraints(), nil).Build(mustUniverse(t, spab(), spaxx()), mandate)
	require.NoError(t, err)

	alloc, err := Extract(model, &solver.Solution{
		Status: solver.StatusOptimal,
		Values: []float64{1 + 5e-10, -5e-10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, alloc.Positions[0].Weight)
	assert.Equal(t, 0.0, alloc.Positions[1].Weight)
}

func TestExtract_StatusMapping(t *testing.T) {
	tests := []struct {
		status solver.Status
		check  func(t *testing.T, err error)
	}{
		{solver.StatusInfeasible, func(t *testing.T, err error) {
			var target *contracts.InfeasibleModelError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, ProblemName, target.Problem)
		}},
		{solver.StatusUnbounded, func(t *testing.T, err error) {
			var target *contracts.UnboundedModelError
			assert.True(t, errors.As(err, &target))
		}},
		{solver.StatusTimeout, func(t *testing.T, err error) {
			var target *contracts.SolverError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, "timeout", target.Status)
			assert.Contains(t, err.Error(), "deadline")
		}},
		{solver.StatusFailed, func(t *testing.T, err error) {
			var target *contracts.SolverError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, "failed", target.Status)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			alloc, err := Extract(builtModel(t), &solver.Solution{
				Status: tt.status,
				Detail: "context deadline exceeded",
			})
			assert.Nil(t, alloc)
			tt.check(t, err)
		})
	}
}

func TestExtract_RejectsInfeasiblePoint(t *testing.T) {
	// claims optimality but breaks fixed_allocation
	_, err := Extract(builtModel(t), &solver.Solution{
		Status: solver.StatusOptimal,
		Values: []float64{0.9, 0.1},
	})

	var target *contracts.SolverError
	require.True(t, errors.As(err, &target))
	assert.Contains(t, err.Error(), RowFixedAllocation)
}

func TestExtract_WrongDimension(t *testing.T) {
	_, err := Extract(builtModel(t), &solver.Solution{
		Status: solver.StatusOptimal,
		Values: []float64{1},
	})

	var target *contracts.SolverError
	assert.True(t, errors.As(err, &target))
}

func TestShareCount(t *testing.T) {
	tests := []struct {
		name   string
		weight float64
		funds  float64
		price  float64
		want   int64
	}{
		{"exact", 0.25, 100000, 40, 625},
		{"half rounds away from zero", 0.025, 100, 1, 3},
		{"below half", 0.0249, 100, 1, 2},
		{"zero weight", 0, 100000, 25, 0},
		{"fractional price", 0.01, 103570.65, 1, 1036},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShareCount(tt.weight, tt.funds, tt.price)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShareCount_InvalidPrice(t *testing.T) {
	for _, price := range []float64{0, -1} {
		_, err := ShareCount(0.5, 1000, price)
		assert.Error(t, err, "price %v", price)
	}
}
