package contracts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// Universe is the validated, ticker-indexed instrument set handed to the model builder
// ⭐ SSOT: Dataset → Model Builder 투자 가능 종목 전달
type Universe struct {
	instruments []Instrument   // 티커 사전순 정렬
	index       map[string]int // ticker → position
}

// NewUniverse validates and indexes instruments.
// Records are copied, so later changes to the input do not leak into the universe.
func NewUniverse(instruments []Instrument) (*Universe, error) {
	if len(instruments) == 0 {
		return nil, &DataValidationError{Field: "dataset", Message: "no instruments"}
	}

	sorted := make([]Instrument, 0, len(instruments))
	for _, inst := range instruments {
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		inst.SectorExposure = maps.Clone(inst.SectorExposure)
		sorted = append(sorted, inst)
	}

	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Ticker < sorted[b].Ticker
	})

	index := make(map[string]int, len(sorted))
	for pos, inst := range sorted {
		if _, dup := index[inst.Ticker]; dup {
			return nil, &DataValidationError{
				Ticker:  inst.Ticker,
				Field:   "ticker",
				Message: "duplicate ticker, lookup would be ambiguous",
			}
		}
		index[inst.Ticker] = pos
	}

	return &Universe{instruments: sorted, index: index}, nil
}

// RequireSectors checks that every instrument carries an exposure for every sector,
// i.e. all per-field maps share one key domain
func (u *Universe) RequireSectors(sectors []string) error {
	for _, inst := range u.instruments {
		for _, sector := range sectors {
			if _, ok := inst.SectorExposure[sector]; !ok {
				return &DataValidationError{Ticker: inst.Ticker, Field: sector, Message: "missing sector exposure"}
			}
		}
	}
	return nil
}

// Lookup returns the instrument for ticker
func (u *Universe) Lookup(ticker string) (Instrument, bool) {
	pos, ok := u.index[ticker]
	if !ok {
		return Instrument{}, false
	}
	return u.instruments[pos], true
}

// Position returns the index of ticker in ticker order
func (u *Universe) Position(ticker string) (int, bool) {
	pos, ok := u.index[ticker]
	return pos, ok
}

// Instruments returns the instruments in ticker order
func (u *Universe) Instruments() []Instrument {
	out := make([]Instrument, len(u.instruments))
	copy(out, u.instruments)
	return out
}

// At returns the instrument at position i
func (u *Universe) At(i int) Instrument {
	return u.instruments[i]
}

// Tickers returns all tickers in order
func (u *Universe) Tickers() []string {
	tickers := make([]string, len(u.instruments))
	for i, inst := range u.instruments {
		tickers[i] = inst.Ticker
	}
	return tickers
}

// Count returns the number of instruments
func (u *Universe) Count() int {
	return len(u.instruments)
}

// Fingerprint returns a SHA256 of the canonical JSON encoding.
// json.Marshal sorts map keys, so equal datasets hash equally.
func (u *Universe) Fingerprint() (string, error) {
	data, err := json.Marshal(u.instruments)
	if err != nil {
		return "", fmt.Errorf("marshal universe: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
