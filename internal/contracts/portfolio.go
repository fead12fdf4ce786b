package contracts

import (
	"fmt"
	"time"
)

// Mandate carries the per-run inputs of an allocation
type Mandate struct {
	Benchmark   string  `json:"benchmark"`    // 벤치마크 티커 (e.g. SPAB)
	FixedTicker string  `json:"fixed_ticker"` // 고정 비중 종목 (현금성, e.g. SPAXX)
	FixedAmount float64 `json:"fixed_amount"` // 고정 종목 목표 금액
	TotalFunds  float64 `json:"total_funds"`  // 총 투자 가능 금액
}

// FixedFraction returns the pinned weight of the fixed-allocation instrument
func (m Mandate) FixedFraction() float64 {
	return m.FixedAmount / m.TotalFunds
}

// Allocation is the result of one optimization run
// ⭐ 계약: Optimizer는 비중/주식수/포트폴리오 YTM만 산출, 출력 포맷은 호출자 책임
type Allocation struct {
	StrategyID   string     `json:"strategy_id,omitempty"`
	Benchmark    string     `json:"benchmark"`
	TotalFunds   float64    `json:"total_funds"`
	PortfolioYTM float64    `json:"portfolio_ytm"` // 목적함수 값 (소수)
	Positions    []Position `json:"positions"`     // 티커 사전순
	Exposures    []Exposure `json:"exposures"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Position is the resolved weight and share count of one instrument
type Position struct {
	Ticker      string  `json:"ticker"`
	Weight      float64 `json:"weight"` // 0.0 ~ 1.0
	Shares      int64   `json:"shares"`
	Price       float64 `json:"price"`
	MarketValue float64 `json:"market_value"` // shares * price
}

// WeightLabel formats the weight with two decimal percent precision
func (p Position) WeightLabel() string {
	return FormatPercent(p.Weight)
}

// Exposure is a realized weighted aggregate with the band it was held to
type Exposure struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Within reports whether the exposure lies inside its band within tol
func (e Exposure) Within(tol float64) bool {
	return e.Value >= e.Lower-tol && e.Value <= e.Upper+tol
}

// TotalWeight returns the sum of all position weights
func (a *Allocation) TotalWeight() float64 {
	total := 0.0
	for _, pos := range a.Positions {
		total += pos.Weight
	}
	return total
}

// Count returns the number of positions
func (a *Allocation) Count() int {
	return len(a.Positions)
}

// GetPosition finds a position by ticker
func (a *Allocation) GetPosition(ticker string) (*Position, bool) {
	for i := range a.Positions {
		if a.Positions[i].Ticker == ticker {
			return &a.Positions[i], true
		}
	}
	return nil, false
}

// GetExposure finds a realized exposure by name
func (a *Allocation) GetExposure(name string) (*Exposure, bool) {
	for i := range a.Exposures {
		if a.Exposures[i].Name == name {
			return &a.Exposures[i], true
		}
	}
	return nil, false
}

// FormatPercent renders a fraction as a percentage with two decimals (0.0297 → "2.97%")
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
