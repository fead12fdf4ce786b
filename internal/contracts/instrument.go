package contracts

import (
	"fmt"
	"math"
)

// Sector names of the default exposure set
const (
	SectorGovt = "govt"
	SectorMBS  = "mbs"
	SectorCorp = "corp"
)

// DefaultSectors returns the closed sector set used when none is configured
func DefaultSectors() []string {
	return []string{SectorGovt, SectorMBS, SectorCorp}
}

// DefaultWeightMultiplier is applied when the source does not provide one
const DefaultWeightMultiplier = 1.0

// Instrument is one candidate holding (ETF or fund) of the allocation
// ⭐ SSOT: Dataset → Model Builder 종목 레코드
type Instrument struct {
	Ticker           string             `json:"ticker"`
	WeightMultiplier float64            `json:"weight_multiplier"`
	CreditNum        float64            `json:"credit_num"`    // 신용등급 점수 (> 0)
	Duration         float64            `json:"duration"`      // 듀레이션 (>= 0)
	YTM              float64            `json:"ytm"`           // 만기수익률 (소수)
	NonBenchmark     float64            `json:"non_benchmark"` // 비벤치마크 비중 플래그
	SectorExposure   map[string]float64 `json:"sector_exposure"`
	Price            float64            `json:"price"`
}

// Exposure returns the exposure to sector and whether the key is present
func (i Instrument) Exposure(sector string) (float64, bool) {
	v, ok := i.SectorExposure[sector]
	return v, ok
}

// Validate checks the per-record field rules of the input schema
func (i Instrument) Validate() error {
	if i.Ticker == "" {
		return &DataValidationError{Field: "ticker", Message: "must not be empty"}
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"weight_multiplier", i.WeightMultiplier},
		{"credit_num", i.CreditNum},
		{"duration", i.Duration},
		{"ytm", i.YTM},
		{"non_benchmark", i.NonBenchmark},
		{"price", i.Price},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &DataValidationError{Ticker: i.Ticker, Field: f.name, Message: "must be a finite number"}
		}
	}
	for sector, v := range i.SectorExposure {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &DataValidationError{Ticker: i.Ticker, Field: sector, Message: "must be a finite number"}
		}
	}

	if i.WeightMultiplier <= 0 {
		return &DataValidationError{Ticker: i.Ticker, Field: "weight_multiplier", Message: "must be > 0"}
	}
	if i.CreditNum <= 0 {
		return &DataValidationError{Ticker: i.Ticker, Field: "credit_num", Message: "must be > 0"}
	}
	if i.Duration < 0 {
		return &DataValidationError{Ticker: i.Ticker, Field: "duration", Message: "must be >= 0"}
	}
	if i.NonBenchmark < 0 {
		return &DataValidationError{Ticker: i.Ticker, Field: "non_benchmark", Message: "must be >= 0"}
	}
	if i.Price <= 0 {
		return &DataValidationError{Ticker: i.Ticker, Field: "price", Message: fmt.Sprintf("must be > 0, got %g", i.Price)}
	}

	return nil
}
