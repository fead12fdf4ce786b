package portfolio

import (
	"fmt"
	"math"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/lpmodel"
	"github.com/wonny/bondalloc/pkg/logger"
)

// ProblemName is the name of the yield-maximizing allocation problem
const ProblemName = "optimize_ytm"

// Constraint row names
const (
	RowFixedAllocation = "fixed_allocation"
	RowWeight          = "weight"
	RowCreditMin       = "credit_num_min"
	RowCreditMax       = "credit_num_max"
	RowDurationMin     = "duration_min"
	RowDurationMax     = "duration_max"
	RowNonBenchmarkMax = "nb_max"
)

// Band names reported alongside realized exposures
const (
	BandCredit       = "credit_num"
	BandDuration     = "duration"
	BandNonBenchmark = "nb"
)

// VariableName returns the decision variable name for a ticker
func VariableName(ticker string) string {
	return "ETF_" + ticker
}

// Model is a built allocation problem together with the inputs it was derived from
type Model struct {
	Problem   *lpmodel.Problem
	Universe  *contracts.Universe
	Mandate   contracts.Mandate
	Benchmark contracts.Instrument
	Bands     []Band // credit, duration, sectors..., nb
}

// Band looks up a computed band by name
func (m *Model) Band(name string) (Band, bool) {
	for _, b := range m.Bands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// Builder turns a universe and a mandate into a linear program
// ⭐ SSOT: 모델 구성 (목적함수 + 제약조건) 로직은 여기서만
type Builder struct {
	constraints Constraints
	logger      *logger.Logger
}

// NewBuilder creates a new model builder
func NewBuilder(constraints Constraints, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		constraints: constraints,
		logger:      log,
	}
}

// Constraints returns the bands the builder applies
func (b *Builder) Constraints() Constraints {
	return b.constraints
}

// Build validates the inputs and formulates the problem.
// Every check runs before the first constraint is added, so a failed build
// never yields a partial model.
func (b *Builder) Build(universe *contracts.Universe, mandate contracts.Mandate) (*Model, error) {
	// 1. 설정 검증
	if err := b.constraints.Validate(); err != nil {
		return nil, err
	}
	if err := validateMandate(mandate); err != nil {
		return nil, err
	}

	// 2. 데이터 검증 (섹터 키 도메인)
	if err := universe.RequireSectors(b.constraints.Sectors); err != nil {
		return nil, err
	}

	// 3. 벤치마크 / 고정 종목 조회
	benchmark, ok := universe.Lookup(mandate.Benchmark)
	if !ok {
		return nil, &contracts.ConfigurationError{
			Field:   "benchmark",
			Message: fmt.Sprintf("ticker %q not found in dataset", mandate.Benchmark),
		}
	}
	fixedPos, ok := universe.Position(mandate.FixedTicker)
	if !ok {
		return nil, &contracts.ConfigurationError{
			Field:   "fixed_allocation",
			Message: fmt.Sprintf("ticker %q not found in dataset", mandate.FixedTicker),
		}
	}

	// 4. 모델 구성
	model := &Model{
		Problem:   lpmodel.NewProblem(ProblemName, lpmodel.Maximize),
		Universe:  universe,
		Mandate:   mandate,
		Benchmark: benchmark,
	}
	if err := b.formulate(model, fixedPos); err != nil {
		// names and dimensions are fixed above, so this is a programming error
		return nil, fmt.Errorf("formulate %s: %w", ProblemName, err)
	}

	b.logger.WithFields(map[string]interface{}{
		"benchmark":   mandate.Benchmark,
		"fixed":       mandate.FixedTicker,
		"variables":   model.Problem.NumVariables(),
		"constraints": model.Problem.NumConstraints(),
	}).Debug("Model built")

	return model, nil
}

func (b *Builder) formulate(m *Model, fixedPos int) error {
	p := m.Problem
	instruments := m.Universe.Instruments()

	for _, inst := range instruments {
		if _, err := p.AddVariable(VariableName(inst.Ticker), 0, 1); err != nil {
			return err
		}
	}

	// weighted sum helper: Σ f(i)·w[i]
	row := func(f func(contracts.Instrument) float64) lpmodel.Expr {
		e := p.NewExpr()
		for i, inst := range instruments {
			e[i] = f(inst)
		}
		return e
	}

	// Objective: maximize Σ ytm·w
	if err := p.SetObjective(row(func(in contracts.Instrument) float64 { return in.YTM })); err != nil {
		return err
	}

	// fixed_allocation: multiplier[fixed]·w[fixed] == amount / funds
	fixed := p.NewExpr()
	fixed[fixedPos] = instruments[fixedPos].WeightMultiplier
	if err := p.AddConstraint(RowFixedAllocation, fixed, lpmodel.Equal, m.Mandate.FixedFraction()); err != nil {
		return err
	}

	// weight: Σ multiplier·w == 1
	weight := row(func(in contracts.Instrument) float64 { return in.WeightMultiplier })
	if err := p.AddConstraint(RowWeight, weight, lpmodel.Equal, 1); err != nil {
		return err
	}

	bm := m.Benchmark
	c := b.constraints

	// credit: [max(floor, b − width), b + width]
	credit := Band{
		Name:  BandCredit,
		Lower: math.Max(c.CreditFloor, bm.CreditNum-c.CreditWidth),
		Upper: bm.CreditNum + c.CreditWidth,
	}
	if err := addBand(p, credit, RowCreditMin, RowCreditMax,
		row(func(in contracts.Instrument) float64 { return in.CreditNum })); err != nil {
		return err
	}

	// duration: (1 ± pct)·b
	duration := orderedBand(BandDuration,
		(1-c.DurationBandPct)*bm.Duration,
		(1+c.DurationBandPct)*bm.Duration)
	if err := addBand(p, duration, RowDurationMin, RowDurationMax,
		row(func(in contracts.Instrument) float64 { return in.Duration })); err != nil {
		return err
	}

	m.Bands = append(m.Bands, credit, duration)

	// sectors: (1 ± pct)·b[sector]
	for _, sector := range c.Sectors {
		band := orderedBand(sector,
			(1-c.SectorBandPct)*bm.SectorExposure[sector],
			(1+c.SectorBandPct)*bm.SectorExposure[sector])
		if err := addBand(p, band, sector+"_min", sector+"_max",
			row(func(in contracts.Instrument) float64 { return in.SectorExposure[sector] })); err != nil {
			return err
		}
		m.Bands = append(m.Bands, band)
	}

	// nb_max: Σ non_benchmark·w <= cap (absolute)
	nb := row(func(in contracts.Instrument) float64 { return in.NonBenchmark })
	if err := p.AddConstraint(RowNonBenchmarkMax, nb, lpmodel.LessEq, c.NonBenchmarkMax); err != nil {
		return err
	}
	m.Bands = append(m.Bands, Band{Name: BandNonBenchmark, Lower: 0, Upper: c.NonBenchmarkMax})

	return nil
}

func addBand(p *lpmodel.Problem, band Band, minName, maxName string, e lpmodel.Expr) error {
	if err := p.AddConstraint(minName, e, lpmodel.GreaterEq, band.Lower); err != nil {
		return err
	}
	return p.AddConstraint(maxName, e, lpmodel.LessEq, band.Upper)
}

func validateMandate(m contracts.Mandate) error {
	switch {
	case m.Benchmark == "":
		return &contracts.ConfigurationError{Field: "benchmark", Message: "ticker is required"}
	case m.FixedTicker == "":
		return &contracts.ConfigurationError{Field: "fixed_allocation", Message: "ticker is required"}
	case math.IsNaN(m.TotalFunds) || math.IsInf(m.TotalFunds, 0) || m.TotalFunds <= 0:
		return &contracts.ConfigurationError{Field: "funds.total", Message: "must be a positive amount"}
	case math.IsNaN(m.FixedAmount) || m.FixedAmount < 0:
		return &contracts.ConfigurationError{Field: "fixed_allocation.target_amount", Message: "must be >= 0"}
	case m.FixedAmount > m.TotalFunds:
		return &contracts.ConfigurationError{
			Field:   "fixed_allocation.target_amount",
			Message: fmt.Sprintf("%.2f exceeds total funds %.2f", m.FixedAmount, m.TotalFunds),
		}
	}
	return nil
}
