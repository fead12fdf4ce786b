// Package dataset loads instrument records from a CSV file or from Postgres.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wonny/bondalloc/internal/contracts"
)

// Column names of the instrument file
const (
	ColTicker           = "ticker"
	ColWeightMultiplier = "weight_multiplier"
	ColCreditNum        = "credit_num"
	ColDuration         = "duration"
	ColYTM              = "ytm"
	ColNonBenchmark     = "non_benchmark"
	ColPrice            = "price"
)

// CSVSource reads instruments from a header-driven CSV file.
// Unknown columns are ignored; weight_multiplier is optional and defaults to 1.
type CSVSource struct {
	Path    string
	Sectors []string
}

var _ contracts.InstrumentSource = (*CSVSource)(nil)

// NewCSVSource creates a CSV source for the given sector columns
func NewCSVSource(path string, sectors []string) *CSVSource {
	if len(sectors) == 0 {
		sectors = contracts.DefaultSectors()
	}
	return &CSVSource{Path: path, Sectors: sectors}
}

// Load implements contracts.InstrumentSource
func (s *CSVSource) Load(ctx context.Context) ([]contracts.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", s.Path, err)
	}
	defer f.Close()

	return ParseCSV(f, s.Sectors)
}

// ParseCSV decodes instrument rows. Every failure names the ticker and field involved.
func ParseCSV(r io.Reader, sectors []string) ([]contracts.Instrument, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &contracts.DataValidationError{Field: "header", Message: "empty dataset"}
	}
	if err != nil {
		return nil, &contracts.DataValidationError{Field: "header", Message: err.Error()}
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}

	required := append([]string{ColTicker, ColCreditNum, ColDuration, ColYTM, ColNonBenchmark, ColPrice}, sectors...)
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, &contracts.DataValidationError{Field: name, Message: "missing column"}
		}
	}

	var instruments []contracts.Instrument
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &contracts.DataValidationError{Field: fmt.Sprintf("line %d", line), Message: err.Error()}
		}

		inst, err := parseRecord(record, cols, sectors)
		if err != nil {
			return nil, err
		}
		instruments = append(instruments, inst)
	}

	if len(instruments) == 0 {
		return nil, &contracts.DataValidationError{Field: "dataset", Message: "no instrument rows"}
	}
	return instruments, nil
}

func parseRecord(record []string, cols map[string]int, sectors []string) (contracts.Instrument, error) {
	ticker := strings.TrimSpace(record[cols[ColTicker]])
	if ticker == "" {
		return contracts.Instrument{}, &contracts.DataValidationError{Field: ColTicker, Message: "empty value"}
	}

	number := func(col string) (float64, error) {
		raw := strings.TrimSpace(record[cols[col]])
		if raw == "" {
			return 0, &contracts.DataValidationError{Ticker: ticker, Field: col, Message: "empty value"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, &contracts.DataValidationError{Ticker: ticker, Field: col, Message: fmt.Sprintf("not a number: %q", raw)}
		}
		return v, nil
	}

	inst := contracts.Instrument{
		Ticker:           ticker,
		WeightMultiplier: contracts.DefaultWeightMultiplier,
		SectorExposure:   make(map[string]float64, len(sectors)),
	}

	targets := []struct {
		col string
		dst *float64
	}{
		{ColCreditNum, &inst.CreditNum},
		{ColDuration, &inst.Duration},
		{ColYTM, &inst.YTM},
		{ColNonBenchmark, &inst.NonBenchmark},
		{ColPrice, &inst.Price},
	}
	for _, t := range targets {
		v, err := number(t.col)
		if err != nil {
			return contracts.Instrument{}, err
		}
		*t.dst = v
	}

	for _, sector := range sectors {
		v, err := number(sector)
		if err != nil {
			return contracts.Instrument{}, err
		}
		inst.SectorExposure[sector] = v
	}

	// optional column, blank or zero falls back to the default
	if idx, ok := cols[ColWeightMultiplier]; ok && strings.TrimSpace(record[idx]) != "" {
		v, err := number(ColWeightMultiplier)
		if err != nil {
			return contracts.Instrument{}, err
		}
		if v != 0 {
			inst.WeightMultiplier = v
		}
	}

	return inst, nil
}

// Head returns at most n instruments for previews
func Head(instruments []contracts.Instrument, n int) []contracts.Instrument {
	if n < 0 || n > len(instruments) {
		n = len(instruments)
	}
	return instruments[:n]
}
