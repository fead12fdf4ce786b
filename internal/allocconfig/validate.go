package allocconfig

import (
	"math"

	"github.com/wonny/bondalloc/internal/contracts"
)

// Validate checks all required constraints.
// Failures are *contracts.ConfigurationError naming the YAML field.
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return &contracts.ConfigurationError{Field: "meta.strategy_id", Message: "required"}
	}

	// === Mandate ===
	if cfg.Benchmark.Ticker == "" {
		return &contracts.ConfigurationError{Field: "benchmark.ticker", Message: "required"}
	}
	if cfg.FixedAllocation.Ticker == "" {
		return &contracts.ConfigurationError{Field: "fixed_allocation.ticker", Message: "required"}
	}
	if !finite(cfg.Funds.Total) || cfg.Funds.Total <= 0 {
		return &contracts.ConfigurationError{Field: "funds.total", Message: "must be > 0"}
	}
	amount := cfg.FixedAllocation.TargetAmount
	if !finite(amount) || amount < 0 || amount > cfg.Funds.Total {
		return &contracts.ConfigurationError{Field: "fixed_allocation.target_amount", Message: "must be in [0, funds.total]"}
	}

	// === Bands / Sectors ===
	if err := cfg.Constraints().Validate(); err != nil {
		return err
	}

	// === Solver ===
	if cfg.Solver.Timeout < 0 {
		return &contracts.ConfigurationError{Field: "solver.timeout", Message: "must be >= 0"}
	}
	if !finite(cfg.Solver.Tolerance) || cfg.Solver.Tolerance < 0 || cfg.Solver.Tolerance > 1e-3 {
		return &contracts.ConfigurationError{Field: "solver.tolerance", Message: "must be in [0, 1e-3]"}
	}

	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
