package contracts

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestAllocation_TotalWeight(t *testing.T) {
	alloc := &Allocation{
		Positions: []Position{
			{Ticker: "AGG", Weight: 0.30},
			{Ticker: "SPAB", Weight: 0.60},
			{Ticker: "SPAXX", Weight: 0.10},
		},
	}

	if total := alloc.TotalWeight(); math.Abs(total-1.0) > 1e-12 {
		t.Errorf("TotalWeight() = %v, want 1.0", total)
	}
	if count := alloc.Count(); count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestAllocation_GetPosition(t *testing.T) {
	alloc := &Allocation{
		Positions: []Position{
			{Ticker: "SPAB", Weight: 0.99, Shares: 3960},
			{Ticker: "SPAXX", Weight: 0.01, Shares: 1000},
		},
	}

	pos, exists := alloc.GetPosition("SPAB")
	if !exists {
		t.Fatal("Expected to find position for SPAB")
	}
	if pos.Shares != 3960 {
		t.Errorf("Got shares %d, want 3960", pos.Shares)
	}

	_, exists = alloc.GetPosition("BND")
	if exists {
		t.Error("Expected not to find position for BND")
	}
}

func TestExposure_Within(t *testing.T) {
	e := Exposure{Name: "duration", Value: 6.0000001, Lower: 4, Upper: 6}
	if !e.Within(1e-6) {
		t.Error("Expected exposure within tolerance")
	}
	if e.Within(0) {
		t.Error("Expected exposure outside band without tolerance")
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.0297, "2.97%"},
		{0.01, "1.00%"},
		{0.99, "99.00%"},
		{0, "0.00%"},
	}

	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}

	pos := Position{Ticker: "SPAB", Weight: 0.25}
	if pos.WeightLabel() != "25.00%" {
		t.Errorf("WeightLabel() = %s, want 25.00%%", pos.WeightLabel())
	}
}

func TestMandate_FixedFraction(t *testing.T) {
	m := Mandate{FixedAmount: 1000, TotalFunds: 100000}
	if got := m.FixedFraction(); got != 0.01 {
		t.Errorf("FixedFraction() = %v, want 0.01", got)
	}
}

func TestAllocation_JSON(t *testing.T) {
	original := &Allocation{
		Benchmark:    "SPAB",
		TotalFunds:   100000,
		PortfolioYTM: 0.0297,
		Positions:    []Position{{Ticker: "SPAB", Weight: 0.99, Shares: 3960, Price: 25}},
		CreatedAt:    time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	for _, key := range []string{"benchmark", "total_funds", "portfolio_ytm", "positions", "created_at"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("Expected JSON key %q", key)
		}
	}
}
