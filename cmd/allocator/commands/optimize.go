package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/bondalloc/internal/allocconfig"
	"github.com/wonny/bondalloc/internal/brain"
	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/dataset"
	"github.com/wonny/bondalloc/internal/portfolio"
)

const previewRows = 5

type optimizeFlags struct {
	benchmark   string
	fixedTicker string
	fixedAmount float64
	totalFunds  float64
	showModel   bool
	jsonOutput  bool
	save        bool
	importData  bool
	useCache    bool
}

func newOptimizeCmd(global *globalFlags) *cobra.Command {
	flags := &optimizeFlags{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "배분 최적화 실행",
		Long: `데이터셋과 전략 파일로 LP 모델을 구성하고 한 번 풀어
종목별 비중, 포트폴리오 YTM, 매수 주식 수를 출력합니다.

Flags:
  --benchmark      벤치마크 티커 (전략 파일 값 대체)
  --fixed-ticker   고정 비중 종목
  --fixed-amount   고정 종목 목표 금액
  --funds          총 투자 금액
  --show-model     LP 모델 출력
  --json           JSON 출력
  --save           실행 결과 DB 저장
  --import         CSV 데이터셋을 DB에 적재

Example:
  go run ./cmd/allocator optimize
  go run ./cmd/allocator optimize --data data/portfolio.csv --funds 50000 --show-model
  go run ./cmd/allocator optimize --json --save`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, global, flags)
		},
	}

	// Flags
	cmd.Flags().StringVar(&flags.benchmark, "benchmark", "", "benchmark ticker")
	cmd.Flags().StringVar(&flags.fixedTicker, "fixed-ticker", "", "fixed-allocation ticker")
	cmd.Flags().Float64Var(&flags.fixedAmount, "fixed-amount", 0, "fixed-allocation target amount")
	cmd.Flags().Float64Var(&flags.totalFunds, "funds", 0, "total investable funds")
	cmd.Flags().BoolVar(&flags.showModel, "show-model", false, "print the LP model before solving")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "print the allocation as JSON")
	cmd.Flags().BoolVar(&flags.save, "save", false, "persist the run (requires DATABASE_URL)")
	cmd.Flags().BoolVar(&flags.importData, "import", false, "upsert the CSV dataset into Postgres first")
	cmd.Flags().BoolVar(&flags.useCache, "cache", false, "reuse a cached result for identical inputs (REDIS_ENABLED)")

	return cmd
}

// overrides collects only the flags the user actually set
func (f *optimizeFlags) overrides(cmd *cobra.Command) allocconfig.Overrides {
	o := allocconfig.Overrides{
		Benchmark:   f.benchmark,
		FixedTicker: f.fixedTicker,
	}
	if cmd.Flags().Changed("fixed-amount") {
		o.FixedAmount = &f.fixedAmount
	}
	if cmd.Flags().Changed("funds") {
		o.TotalFunds = &f.totalFunds
	}
	return o
}

func runOptimize(cmd *cobra.Command, global *globalFlags, flags *optimizeFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, global, appOptions{
		requireDB: flags.save || flags.importData,
		cache:     flags.useCache,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	// 0. CSV → DB 적재
	if flags.importData {
		if err := importDataset(cmd, a); err != nil {
			return err
		}
	}

	runConfig := brain.RunConfig{
		Strategy:  a.strategy,
		Overrides: flags.overrides(cmd),
		Save:      flags.save,
		UseCache:  flags.useCache,
	}

	// 1. 모델 구성 (미리보기)
	prepared, err := a.orchestrator.Prepare(ctx, runConfig)
	if err != nil {
		return err
	}
	if !flags.jsonOutput {
		printRunHeader(out, prepared, a.sourceLabel)
		printPreview(out, prepared.Universe, prepared.Strategy.Sectors)
		if flags.showModel {
			fmt.Fprintln(out)
			fmt.Fprint(out, prepared.Model.Problem.String())
		}
	}

	// 2. 최적화
	result, err := a.orchestrator.Run(ctx, runConfig)
	if err != nil {
		return err
	}

	if flags.jsonOutput {
		return printJSON(out, result)
	}
	printAllocation(out, result)
	return nil
}

func importDataset(cmd *cobra.Command, a *app) error {
	if a.csvSource == nil {
		return fmt.Errorf("--import needs a CSV dataset (--data or DATASET_SOURCE=csv)")
	}
	instruments, err := a.csvSource.Load(cmd.Context())
	if err != nil {
		return err
	}
	// 적재 전 검증 (중복/범위)
	if _, err := contracts.NewUniverse(instruments); err != nil {
		return err
	}
	n, err := a.instruments.Upsert(cmd.Context(), instruments)
	if err != nil {
		return err
	}
	PrintSuccess(cmd.ErrOrStderr(), fmt.Sprintf("Imported %d instruments from %s", n, a.csvSource.Path))
	return nil
}

func printRunHeader(w io.Writer, p *brain.Prepared, source string) {
	s := p.Strategy
	PrintHeader(w, "Bond Allocation: "+s.Meta.StrategyID)
	PrintKeyValue(w, "Benchmark", s.Benchmark.Ticker, 10)
	PrintKeyValue(w, "Fixed", fmt.Sprintf("%s = %.2f", s.FixedAllocation.Ticker, s.FixedAllocation.TargetAmount), 10)
	PrintKeyValue(w, "Funds", fmt.Sprintf("%.2f", s.Funds.Total), 10)
	PrintKeyValue(w, "Dataset", fmt.Sprintf("%s (%d instruments)", source, p.Universe.Count()), 10)
	PrintKeyValue(w, "Config", short(p.ConfigHash), 10)
	PrintSeparator(w)
}

// printPreview shows the first rows of the sorted dataset
func printPreview(w io.Writer, u *contracts.Universe, sectors []string) {
	columns := []string{"ticker", "mult", "credit", "duration", "ytm", "nb"}
	columns = append(columns, sectors...)
	columns = append(columns, "price")

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = max(len(c), 8)
	}

	fmt.Fprintln(w)
	PrintTableHeader(w, columns, widths)
	for _, inst := range dataset.Head(u.Instruments(), previewRows) {
		row := []string{
			inst.Ticker,
			num(inst.WeightMultiplier),
			num(inst.CreditNum),
			num(inst.Duration),
			num(inst.YTM),
			num(inst.NonBenchmark),
		}
		for _, s := range sectors {
			row = append(row, num(inst.SectorExposure[s]))
		}
		row = append(row, num(inst.Price))
		PrintTableRow(w, row, widths)
	}
	if u.Count() > previewRows {
		fmt.Fprintf(w, "... %d more\n", u.Count()-previewRows)
	}
}

// printAllocation prints weights, YTM and shares in the classic report layout
func printAllocation(w io.Writer, result *brain.RunResult) {
	alloc := result.Allocation

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Optimal weights (solution):")
	for _, pos := range alloc.Positions {
		fmt.Fprintf(w, "%s = %s\n", portfolio.VariableName(pos.Ticker), pos.WeightLabel())
	}

	fmt.Fprintf(w, "\nOptimal YTM: %s\n", contracts.FormatPercent(alloc.PortfolioYTM))

	fmt.Fprintln(w, "\nOptimal shares:")
	for _, pos := range alloc.Positions {
		fmt.Fprintf(w, "%s = %d\n", pos.Ticker, pos.Shares)
	}

	fmt.Fprintln(w)
	widths := []int{12, 10, 10, 10, 6}
	PrintTableHeader(w, []string{"band", "value", "lower", "upper", "ok"}, widths)
	for _, e := range alloc.Exposures {
		ok := "✓"
		if !e.Within(portfolio.FeasibilityTolerance) {
			ok = "✗"
		}
		PrintTableRow(w, []string{e.Name, num(e.Value), num(e.Lower), num(e.Upper), ok}, widths)
	}

	fmt.Fprintln(w)
	switch {
	case result.RunID > 0:
		PrintSuccess(w, fmt.Sprintf("Saved as run #%d (%s)", result.RunID, result.Duration))
	case result.Cached:
		PrintInfo(w, "Served from cache")
	default:
		PrintSuccess(w, fmt.Sprintf("Solved in %s", result.Duration))
	}
}

// jsonReport is the --json output
type jsonReport struct {
	RunID        int64                 `json:"run_id,omitempty"`
	Cached       bool                  `json:"cached"`
	ConfigHash   string                `json:"config_hash"`
	DatasetHash  string                `json:"dataset_hash"`
	PortfolioYTM string                `json:"portfolio_ytm_pct"`
	Allocation   *contracts.Allocation `json:"allocation"`
}

func printJSON(w io.Writer, result *brain.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		RunID:        result.RunID,
		Cached:       result.Cached,
		ConfigHash:   result.ConfigHash,
		DatasetHash:  result.DatasetHash,
		PortfolioYTM: contracts.FormatPercent(result.Allocation.PortfolioYTM),
		Allocation:   result.Allocation,
	})
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
