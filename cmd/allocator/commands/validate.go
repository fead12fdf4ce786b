package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/bondalloc/internal/brain"
)

func newValidateCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "데이터셋/전략 검증 (최적화 없이)",
		Long: `데이터셋을 읽어 검증하고 전략 파일을 적용해 모델까지 구성합니다.
솔버는 호출하지 않습니다.

Example:
  go run ./cmd/allocator validate
  go run ./cmd/allocator validate --data data/portfolio.csv --strategy config/strategy/core_bond.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			a, err := newApp(ctx, global, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			prepared, err := a.orchestrator.Prepare(ctx, brain.RunConfig{Strategy: a.strategy})
			if err != nil {
				return err
			}

			problem := prepared.Model.Problem
			PrintHeader(out, "Validation")
			PrintSuccess(out, fmt.Sprintf("Dataset  : %d instruments from %s (%s)",
				prepared.Universe.Count(), a.sourceLabel, short(prepared.DatasetHash)))
			PrintSuccess(out, fmt.Sprintf("Strategy : %s v%s (%s)",
				prepared.Strategy.Meta.StrategyID, prepared.Strategy.Meta.Version, short(prepared.ConfigHash)))
			PrintSuccess(out, fmt.Sprintf("Model    : %s, %d variables, %d constraints",
				problem.Name, problem.NumVariables(), problem.NumConstraints()))

			fmt.Fprintln(out)
			widths := []int{12, 10, 10}
			PrintTableHeader(out, []string{"band", "lower", "upper"}, widths)
			for _, b := range prepared.Model.Bands {
				PrintTableRow(out, []string{b.Name, num(b.Lower), num(b.Upper)}, widths)
			}
			return nil
		},
	}
}
