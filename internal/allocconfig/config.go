// Package allocconfig loads the strategy file that parameterizes an allocation:
// the benchmark, the pinned cash position, the funds and the band widths.
package allocconfig

import (
	"time"

	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/portfolio"
)

// Config는 채권 배분 전략의 전체 설정
type Config struct {
	Meta            Meta            `yaml:"meta" json:"meta"`
	Benchmark       Benchmark       `yaml:"benchmark" json:"benchmark"`
	FixedAllocation FixedAllocation `yaml:"fixed_allocation" json:"fixed_allocation"`
	Funds           Funds           `yaml:"funds" json:"funds"`
	Bands           Bands           `yaml:"bands" json:"bands"`
	Sectors         []string        `yaml:"sectors" json:"sectors"`
	Solver          Solver          `yaml:"solver" json:"solver"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Benchmark 기준 종목
type Benchmark struct {
	Ticker string `yaml:"ticker" json:"ticker"`
}

// FixedAllocation 비중 고정 종목 (현금성)
type FixedAllocation struct {
	Ticker       string  `yaml:"ticker" json:"ticker"`
	TargetAmount float64 `yaml:"target_amount" json:"target_amount"`
}

// Funds 투자 금액
type Funds struct {
	Total float64 `yaml:"total" json:"total"`
}

// Bands 벤치마크 대비 허용 범위
type Bands struct {
	CreditWidth     float64 `yaml:"credit_width" json:"credit_width"`           // ± notch
	CreditFloor     float64 `yaml:"credit_floor" json:"credit_floor"`           // 하한 clamp
	DurationPct     float64 `yaml:"duration_pct" json:"duration_pct"`           // ± 비율
	SectorPct       float64 `yaml:"sector_pct" json:"sector_pct"`               // ± 비율
	NonBenchmarkMax float64 `yaml:"non_benchmark_max" json:"non_benchmark_max"` // 절대 상한
}

// Solver 솔버 설정
type Solver struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`     // 0 = 환경변수 SOLVER_TIMEOUT 사용
	Tolerance float64       `yaml:"tolerance" json:"tolerance"` // 0 = 기본값
}

// Default returns the core bond strategy
// SSOT: config/strategy/core_bond.yaml
func Default() *Config {
	c := portfolio.DefaultConstraints()
	return &Config{
		Meta:            Meta{StrategyID: "core_bond", Version: "1"},
		Benchmark:       Benchmark{Ticker: "SPAB"},
		FixedAllocation: FixedAllocation{Ticker: "SPAXX", TargetAmount: 1073.22},
		Funds:           Funds{Total: 103570.65},
		Bands: Bands{
			CreditWidth:     c.CreditWidth,
			CreditFloor:     c.CreditFloor,
			DurationPct:     c.DurationBandPct,
			SectorPct:       c.SectorBandPct,
			NonBenchmarkMax: c.NonBenchmarkMax,
		},
		Sectors: c.Sectors,
		Solver:  Solver{Timeout: 30 * time.Second},
	}
}

// Mandate converts the per-run inputs
func (c *Config) Mandate() contracts.Mandate {
	return contracts.Mandate{
		Benchmark:   c.Benchmark.Ticker,
		FixedTicker: c.FixedAllocation.Ticker,
		FixedAmount: c.FixedAllocation.TargetAmount,
		TotalFunds:  c.Funds.Total,
	}
}

// Constraints converts the band section
func (c *Config) Constraints() portfolio.Constraints {
	return portfolio.Constraints{
		CreditWidth:     c.Bands.CreditWidth,
		CreditFloor:     c.Bands.CreditFloor,
		DurationBandPct: c.Bands.DurationPct,
		SectorBandPct:   c.Bands.SectorPct,
		NonBenchmarkMax: c.Bands.NonBenchmarkMax,
		Sectors:         append([]string(nil), c.Sectors...),
	}
}

// Overrides are command-line or request level replacements; nil/empty means keep
type Overrides struct {
	Benchmark   string
	FixedTicker string
	FixedAmount *float64
	TotalFunds  *float64
}

// WithOverrides returns a copy with the overrides applied
func (c *Config) WithOverrides(o Overrides) *Config {
	out := *c
	out.Sectors = append([]string(nil), c.Sectors...)

	if o.Benchmark != "" {
		out.Benchmark.Ticker = o.Benchmark
	}
	if o.FixedTicker != "" {
		out.FixedAllocation.Ticker = o.FixedTicker
	}
	if o.FixedAmount != nil {
		out.FixedAllocation.TargetAmount = *o.FixedAmount
	}
	if o.TotalFunds != nil {
		out.Funds.Total = *o.TotalFunds
	}
	return &out
}
