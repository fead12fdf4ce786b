package portfolio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/lpmodel"
	"github.com/wonny/bondalloc/internal/solver"
)

// FeasibilityTolerance is the slack allowed when re-checking a returned optimum
const FeasibilityTolerance = 1e-6

// Extract converts a solver solution into an allocation.
// Non-optimal statuses map onto the error taxonomy; no partial weights are returned.
func Extract(model *Model, sol *solver.Solution) (*contracts.Allocation, error) {
	if err := statusError(model.Problem.Name, sol); err != nil {
		return nil, err
	}

	p := model.Problem
	if len(sol.Values) != p.NumVariables() {
		return nil, &contracts.SolverError{
			Status: sol.Status.String(),
			Err:    fmt.Errorf("solution has %d values, model has %d variables", len(sol.Values), p.NumVariables()),
		}
	}
	if broken := p.Violations(sol.Values, FeasibilityTolerance); len(broken) > 0 {
		return nil, &contracts.SolverError{
			Status: sol.Status.String(),
			Err:    fmt.Errorf("optimal point violates %s", strings.Join(broken, ", ")),
		}
	}

	weights := clampToBounds(p.Variables(), sol.Values)

	alloc := &contracts.Allocation{
		Benchmark:  model.Mandate.Benchmark,
		TotalFunds: model.Mandate.TotalFunds,
		Positions:  make([]contracts.Position, 0, len(weights)),
		CreatedAt:  time.Now(),
	}

	// 티커 사전순 (Universe 정렬 순서)
	for i, inst := range model.Universe.Instruments() {
		shares, err := ShareCount(weights[i], model.Mandate.TotalFunds, inst.Price)
		if err != nil {
			return nil, &contracts.DataValidationError{Ticker: inst.Ticker, Field: "price", Message: err.Error()}
		}

		alloc.Positions = append(alloc.Positions, contracts.Position{
			Ticker:      inst.Ticker,
			Weight:      weights[i],
			Shares:      shares,
			Price:       inst.Price,
			MarketValue: decimal.NewFromInt(shares).Mul(decimal.NewFromFloat(inst.Price)).InexactFloat64(),
		})
		alloc.PortfolioYTM += inst.YTM * weights[i]
	}

	alloc.Exposures = realizedExposures(model, weights)

	return alloc, nil
}

func statusError(problem string, sol *solver.Solution) error {
	switch sol.Status {
	case solver.StatusOptimal:
		return nil
	case solver.StatusInfeasible:
		return &contracts.InfeasibleModelError{Problem: problem}
	case solver.StatusUnbounded:
		return &contracts.UnboundedModelError{Problem: problem}
	default:
		var cause error
		if sol.Detail != "" {
			cause = errors.New(sol.Detail)
		}
		return &contracts.SolverError{Status: sol.Status.String(), Err: cause}
	}
}

// clampToBounds pulls values that are within tolerance of a bound back onto it
func clampToBounds(vars []lpmodel.Variable, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range vars {
		out[i] = math.Min(math.Max(x[i], v.Lower), v.Upper)
	}
	return out
}

// ShareCount returns round(weight × funds / price), ties away from zero.
// A non-positive price is rejected before dividing.
func ShareCount(weight, funds, price float64) (int64, error) {
	if math.IsNaN(price) || price <= 0 {
		return 0, fmt.Errorf("price must be positive, got %v", price)
	}

	amount := decimal.NewFromFloat(weight).Mul(decimal.NewFromFloat(funds))
	return amount.Div(decimal.NewFromFloat(price)).Round(0).IntPart(), nil
}

// realizedExposures evaluates every band at the chosen weights
func realizedExposures(model *Model, w []float64) []contracts.Exposure {
	instruments := model.Universe.Instruments()

	sum := func(f func(contracts.Instrument) float64) float64 {
		var total float64
		for i, inst := range instruments {
			total += f(inst) * w[i]
		}
		return total
	}

	exposures := make([]contracts.Exposure, 0, len(model.Bands))
	for _, band := range model.Bands {
		var value float64
		switch band.Name {
		case BandCredit:
			value = sum(func(in contracts.Instrument) float64 { return in.CreditNum })
		case BandDuration:
			value = sum(func(in contracts.Instrument) float64 { return in.Duration })
		case BandNonBenchmark:
			value = sum(func(in contracts.Instrument) float64 { return in.NonBenchmark })
		default:
			sector := band.Name
			value = sum(func(in contracts.Instrument) float64 { return in.SectorExposure[sector] })
		}
		exposures = append(exposures, contracts.Exposure{
			Name:  band.Name,
			Value: value,
			Lower: band.Lower,
			Upper: band.Upper,
		})
	}
	return exposures
}
