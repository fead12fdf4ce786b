package portfolio

import (
	"math"
	"slices"

	"github.com/wonny/bondalloc/internal/contracts"
)

// Constraints defines the benchmark-relative bands of the allocation model
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	CreditWidth     float64  // 벤치마크 신용등급 ± 폭 (notch)
	CreditFloor     float64  // 신용등급 하한 (가장 우량 = 1)
	DurationBandPct float64  // 듀레이션 ± 비율 (0.0 ~ 1.0)
	SectorBandPct   float64  // 섹터 노출 ± 비율 (0.0 ~ 1.0)
	NonBenchmarkMax float64  // 비벤치마크 노출 상한 (0.0 ~ 1.0)
	Sectors         []string // 섹터 키 (모든 종목에 존재해야 함)
}

// DefaultConstraints returns default constraint configuration
// SSOT: config/strategy/core_bond.yaml bands
func DefaultConstraints() Constraints {
	return Constraints{
		CreditWidth:     2,    // ±2 notch
		CreditFloor:     1,    // AAA
		DurationBandPct: 0.20, // ±20%
		SectorBandPct:   0.25, // ±25%
		NonBenchmarkMax: 0.10, // 최대 10%
		Sectors:         contracts.DefaultSectors(),
	}
}

// Validate checks that every band parameter is usable
func (c Constraints) Validate() error {
	checks := []struct {
		field string
		value float64
		ok    bool
		msg   string
	}{
		{"bands.credit_width", c.CreditWidth, c.CreditWidth >= 0, "must be >= 0"},
		{"bands.credit_floor", c.CreditFloor, c.CreditFloor >= 0, "must be >= 0"},
		{"bands.duration_pct", c.DurationBandPct, c.DurationBandPct >= 0, "must be >= 0"},
		{"bands.sector_pct", c.SectorBandPct, c.SectorBandPct >= 0, "must be >= 0"},
		{"bands.non_benchmark_max", c.NonBenchmarkMax, c.NonBenchmarkMax >= 0, "must be >= 0"},
	}
	for _, chk := range checks {
		if math.IsNaN(chk.value) || math.IsInf(chk.value, 0) {
			return &contracts.ConfigurationError{Field: chk.field, Message: "must be finite"}
		}
		if !chk.ok {
			return &contracts.ConfigurationError{Field: chk.field, Message: chk.msg}
		}
	}

	if len(c.Sectors) == 0 {
		return &contracts.ConfigurationError{Field: "sectors", Message: "at least one sector is required"}
	}
	for i, s := range c.Sectors {
		if s == "" {
			return &contracts.ConfigurationError{Field: "sectors", Message: "empty sector name"}
		}
		if slices.Contains(c.Sectors[:i], s) {
			return &contracts.ConfigurationError{Field: "sectors", Message: "duplicate sector " + s}
		}
		// sector rows share the namespace of the other bands
		if slices.Contains(reservedBandNames, s) {
			return &contracts.ConfigurationError{Field: "sectors", Message: "reserved name " + s}
		}
	}
	return nil
}

var reservedBandNames = []string{BandCredit, BandDuration, BandNonBenchmark, RowFixedAllocation, RowWeight}

// Band is the computed [Lower, Upper] interval of one benchmark-relative constraint
type Band struct {
	Name  string  `json:"name"` // credit_num, duration, <sector>, nb
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// orderedBand keeps lower <= upper when the benchmark value is negative
func orderedBand(name string, a, b float64) Band {
	return Band{Name: name, Lower: math.Min(a, b), Upper: math.Max(a, b)}
}
