// Package commands implements the allocator CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	strategyPath string // 빈 값 = STRATEGY_PATH
	dataPath     string // 빈 값 = DATASET_SOURCE / DATASET_PATH
	verbose      bool
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "allocator",
		Short: "채권 ETF 배분 최적화 (YTM 최대화, 벤치마크 대비 밴드 제약)",
		Long: `Bond Allocator CLI

벤치마크 대비 신용등급/듀레이션/섹터/비벤치마크 밴드 안에서
가중 만기수익률(YTM)을 최대화하는 선형계획 배분기.

Usage:
  go run ./cmd/allocator [command]

Examples:
  go run ./cmd/allocator optimize
  go run ./cmd/allocator optimize --data data/portfolio.csv --show-model
  go run ./cmd/allocator validate
  go run ./cmd/allocator serve
  go run ./cmd/allocator history`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flags.strategyPath, "strategy", "", "strategy YAML (default is STRATEGY_PATH)")
	rootCmd.PersistentFlags().StringVar(&flags.dataPath, "data", "", "instrument CSV (overrides DATASET_SOURCE)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newOptimizeCmd(flags),
		newValidateCmd(flags),
		newServeCmd(flags),
		newHistoryCmd(flags),
	)

	return rootCmd
}

// Execute runs the CLI and prints the remediation line on failure.
// This is called by main.main().
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		PrintFailure(os.Stderr, err)
	}
	return err
}
