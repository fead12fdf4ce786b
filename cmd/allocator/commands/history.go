package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/bondalloc/internal/contracts"
)

func newHistoryCmd(global *globalFlags) *cobra.Command {
	var (
		limit int
		runID int64
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "저장된 배분 실행 이력 조회",
		Long: `DB에 저장된 최근 배분 실행을 조회합니다 (DATABASE_URL 필요).

Example:
  go run ./cmd/allocator history
  go run ./cmd/allocator history --limit 5
  go run ./cmd/allocator history --id 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx, global, appOptions{requireDB: true})
			if err != nil {
				return err
			}
			defer a.Close()

			// 단일 실행 상세
			if runID > 0 {
				alloc, err := a.runs.GetAllocation(ctx, runID)
				if err != nil {
					return err
				}
				PrintHeader(out, fmt.Sprintf("Run #%d: %s", runID, alloc.StrategyID))
				PrintKeyValue(out, "Benchmark", alloc.Benchmark, 10)
				PrintKeyValue(out, "YTM", contracts.FormatPercent(alloc.PortfolioYTM), 10)
				PrintKeyValue(out, "Created", alloc.CreatedAt.Format("2006-01-02 15:04:05"), 10)
				fmt.Fprintln(out)

				widths := []int{8, 8, 8, 10, 12}
				PrintTableHeader(out, []string{"ticker", "weight", "shares", "price", "value"}, widths)
				for _, p := range alloc.Positions {
					PrintTableRow(out, []string{
						p.Ticker, p.WeightLabel(), fmt.Sprintf("%d", p.Shares),
						fmt.Sprintf("%.2f", p.Price), fmt.Sprintf("%.2f", p.MarketValue),
					}, widths)
				}
				return nil
			}

			runs, err := a.runs.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				PrintInfo(out, "No allocation runs stored")
				return nil
			}

			widths := []int{6, 12, 9, 12, 8, 5, 19}
			PrintTableHeader(out, []string{"id", "strategy", "bench", "funds", "ytm", "pos", "created"}, widths)
			for _, r := range runs {
				PrintTableRow(out, []string{
					fmt.Sprintf("%d", r.ID),
					r.StrategyID,
					r.Benchmark,
					fmt.Sprintf("%.2f", r.TotalFunds),
					contracts.FormatPercent(r.PortfolioYTM),
					fmt.Sprintf("%d", r.Positions),
					r.CreatedAt.Format("2006-01-02 15:04:05"),
				}, widths)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs")
	cmd.Flags().Int64Var(&runID, "id", 0, "show one run with its positions")

	return cmd
}
