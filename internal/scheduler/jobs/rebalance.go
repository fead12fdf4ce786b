package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/bondalloc/internal/brain"
	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/portfolio"
	"github.com/wonny/bondalloc/internal/scheduler"
	"github.com/wonny/bondalloc/pkg/logger"
)

// Runner executes one allocation run (*brain.Orchestrator)
type Runner interface {
	Run(ctx context.Context, cfg brain.RunConfig) (*brain.RunResult, error)
}

// RebalanceJob re-solves the allocation on a schedule
type RebalanceJob struct {
	runner   Runner
	config   brain.RunConfig
	schedule string
	logger   *logger.Logger
}

// NewRebalanceJob creates a new rebalance job
func NewRebalanceJob(runner Runner, cfg brain.RunConfig, schedule string, log *logger.Logger) *RebalanceJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RebalanceJob{
		runner:   runner,
		config:   cfg,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance"
}

// Schedule returns the cron schedule (REBALANCE_SCHEDULE)
func (j *RebalanceJob) Schedule() string {
	return j.schedule
}

// Run executes one allocation.
// Data, configuration and infeasibility errors fail the same way on every
// attempt, so they are marked permanent.
func (j *RebalanceJob) Run(ctx context.Context) error {
	j.logger.Debug("Starting scheduled rebalance")

	result, err := j.runner.Run(ctx, j.config)
	if err != nil {
		if portfolio.IsDeterministic(err) {
			return scheduler.Permanent(fmt.Errorf("rebalance: %w", err))
		}
		return fmt.Errorf("rebalance: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":        result.RunID,
		"cached":        result.Cached,
		"portfolio_ytm": contracts.FormatPercent(result.Allocation.PortfolioYTM),
	}).Info("Rebalance completed")

	return nil
}
