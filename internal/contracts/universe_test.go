package contracts

import (
	"errors"
	"math"
	"testing"
)

func bond(ticker string, credit, duration, ytm, price float64) Instrument {
	return Instrument{
		Ticker:           ticker,
		WeightMultiplier: 1,
		CreditNum:        credit,
		Duration:         duration,
		YTM:              ytm,
		SectorExposure:   map[string]float64{SectorGovt: 0.5, SectorMBS: 0.3, SectorCorp: 0.2},
		Price:            price,
	}
}

func TestNewUniverse_SortsAndIndexes(t *testing.T) {
	u, err := NewUniverse([]Instrument{
		bond("SPAXX", 1, 0, 0, 1),
		bond("AGG", 4, 6, 0.04, 100),
		bond("SPAB", 4, 5, 0.03, 25),
	})
	if err != nil {
		t.Fatalf("NewUniverse() error = %v", err)
	}

	want := []string{"AGG", "SPAB", "SPAXX"}
	got := u.Tickers()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tickers() = %v, want %v", got, want)
		}
	}

	inst, ok := u.Lookup("SPAB")
	if !ok || inst.Price != 25 {
		t.Errorf("Lookup(SPAB) = %+v, %v", inst, ok)
	}
	if pos, _ := u.Position("SPAXX"); pos != 2 {
		t.Errorf("Position(SPAXX) = %d, want 2", pos)
	}
	if _, ok := u.Lookup("BND"); ok {
		t.Error("Expected BND to be absent")
	}
	if u.Count() != 3 {
		t.Errorf("Count() = %d, want 3", u.Count())
	}
}

func TestNewUniverse_CopiesInput(t *testing.T) {
	input := []Instrument{bond("SPAB", 4, 5, 0.03, 25)}
	u, err := NewUniverse(input)
	if err != nil {
		t.Fatalf("NewUniverse() error = %v", err)
	}

	input[0].SectorExposure[SectorGovt] = 0.9
	inst, _ := u.Lookup("SPAB")
	if inst.SectorExposure[SectorGovt] != 0.5 {
		t.Errorf("Universe was mutated through input map: govt=%v", inst.SectorExposure[SectorGovt])
	}
}

func TestNewUniverse_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Instrument)
		field  string
	}{
		{"empty ticker", func(i *Instrument) { i.Ticker = "" }, "ticker"},
		{"zero price", func(i *Instrument) { i.Price = 0 }, "price"},
		{"negative price", func(i *Instrument) { i.Price = -1 }, "price"},
		{"zero credit", func(i *Instrument) { i.CreditNum = 0 }, "credit_num"},
		{"negative duration", func(i *Instrument) { i.Duration = -0.5 }, "duration"},
		{"negative non benchmark", func(i *Instrument) { i.NonBenchmark = -1 }, "non_benchmark"},
		{"nan ytm", func(i *Instrument) { i.YTM = math.NaN() }, "ytm"},
		{"zero multiplier", func(i *Instrument) { i.WeightMultiplier = 0 }, "weight_multiplier"},
		{"inf exposure", func(i *Instrument) { i.SectorExposure[SectorCorp] = math.Inf(1) }, SectorCorp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := bond("SPAB", 4, 5, 0.03, 25)
			tt.mutate(&inst)

			_, err := NewUniverse([]Instrument{inst})
			var dve *DataValidationError
			if !errors.As(err, &dve) {
				t.Fatalf("Expected DataValidationError, got %v", err)
			}
			if dve.Field != tt.field {
				t.Errorf("Field = %s, want %s", dve.Field, tt.field)
			}
		})
	}
}

func TestNewUniverse_DuplicateTicker(t *testing.T) {
	_, err := NewUniverse([]Instrument{
		bond("SPAB", 4, 5, 0.03, 25),
		bond("SPAB", 3, 5, 0.03, 25),
	})

	var dve *DataValidationError
	if !errors.As(err, &dve) {
		t.Fatalf("Expected DataValidationError, got %v", err)
	}
	if dve.Ticker != "SPAB" {
		t.Errorf("Ticker = %s, want SPAB", dve.Ticker)
	}
}

func TestNewUniverse_Empty(t *testing.T) {
	_, err := NewUniverse(nil)
	var dve *DataValidationError
	if !errors.As(err, &dve) {
		t.Fatalf("Expected DataValidationError, got %v", err)
	}
}

func TestUniverse_RequireSectors(t *testing.T) {
	cash := bond("SPAXX", 1, 0, 0, 1)
	cash.SectorExposure = map[string]float64{SectorGovt: 0, SectorMBS: 0}

	u, err := NewUniverse([]Instrument{bond("SPAB", 4, 5, 0.03, 25), cash})
	if err != nil {
		t.Fatalf("NewUniverse() error = %v", err)
	}

	if err := u.RequireSectors([]string{SectorGovt, SectorMBS}); err != nil {
		t.Errorf("RequireSectors(govt, mbs) error = %v", err)
	}

	err = u.RequireSectors(DefaultSectors())
	var dve *DataValidationError
	if !errors.As(err, &dve) {
		t.Fatalf("Expected DataValidationError, got %v", err)
	}
	if dve.Ticker != "SPAXX" || dve.Field != SectorCorp {
		t.Errorf("Got %s.%s, want SPAXX.corp", dve.Ticker, dve.Field)
	}
}

func TestUniverse_Fingerprint(t *testing.T) {
	a, _ := NewUniverse([]Instrument{bond("SPAB", 4, 5, 0.03, 25), bond("AGG", 4, 6, 0.04, 100)})
	b, _ := NewUniverse([]Instrument{bond("AGG", 4, 6, 0.04, 100), bond("SPAB", 4, 5, 0.03, 25)})
	c, _ := NewUniverse([]Instrument{bond("AGG", 4, 6, 0.05, 100), bond("SPAB", 4, 5, 0.03, 25)})

	ha, err := a.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	hb, _ := b.Fingerprint()
	hc, _ := c.Fingerprint()

	if len(ha) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(ha))
	}
	if ha != hb {
		t.Error("input order changed the fingerprint")
	}
	if ha == hc {
		t.Error("different data produced the same fingerprint")
	}
}

func TestErrors_Messages(t *testing.T) {
	cause := errors.New("lp: singular")
	se := &SolverError{Status: "failed", Err: cause}
	if !errors.Is(se, cause) {
		t.Error("SolverError should unwrap its cause")
	}

	ce := &ConfigurationError{Field: "benchmark", Message: `ticker "SPAB" not in dataset`}
	if ce.Error() != `configuration: benchmark: ticker "SPAB" not in dataset` {
		t.Errorf("unexpected message: %s", ce.Error())
	}

	dve := &DataValidationError{Ticker: "SPAB", Field: "price", Message: "must be > 0"}
	if dve.Error() != "data validation: SPAB.price: must be > 0" {
		t.Errorf("unexpected message: %s", dve.Error())
	}
}
