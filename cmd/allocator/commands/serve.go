package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/bondalloc/internal/api"
	"github.com/wonny/bondalloc/internal/api/handlers"
	"github.com/wonny/bondalloc/internal/brain"
	"github.com/wonny/bondalloc/internal/scheduler"
	"github.com/wonny/bondalloc/internal/scheduler/jobs"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "API 서버 시작 (+ 리밸런스 스케줄러)",
		Long: `REST API 서버를 시작합니다. SCHEDULER_ENABLED=true이면
REBALANCE_SCHEDULE에 따라 주기적으로 배분을 다시 계산합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics
  POST /api/allocations         - 배분 실행 (JSON overrides 선택)
  GET  /api/allocations/latest  - 최근 저장된 배분

Example:
  go run ./cmd/allocator serve
  go run ./cmd/allocator serve --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, port)
		},
	}

	// Flags
	cmd.Flags().StringVar(&port, "port", "", "API 서버 포트 (default is PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, global *globalFlags, port string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, global, appOptions{cache: true, metrics: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if port != "" {
		a.cfg.Port = port
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port":     a.cfg.Port,
		"env":      a.cfg.Env,
		"strategy": a.strategy.Meta.StrategyID,
		"dataset":  a.sourceLabel,
		"persist":  a.orchestrator.CanPersist(),
	}).Info("Initializing API server")

	// 1. Router
	router := api.NewRouter(api.RouterConfig{
		Allocations: handlers.NewAllocationHandler(a.orchestrator, a.strategy, log),
		Metrics:     a.metrics,
		RateLimit:   a.cfg.API.RateLimit,
		RateBurst:   a.cfg.API.RateBurst,
		Logger:      log,
	})
	server := api.New(a.cfg, log, router)

	// 2. Scheduler (optional)
	var sched *scheduler.Scheduler
	if a.cfg.Scheduler.Enabled {
		sched = scheduler.New(log)
		job := jobs.NewRebalanceJob(a.orchestrator, brain.RunConfig{
			Strategy: a.strategy,
			Save:     a.orchestrator.CanPersist(),
		}, a.cfg.Scheduler.RebalanceSchedule, log)
		if err := sched.AddJob(job); err != nil {
			return err
		}
		sched.Start()
	}

	// 3. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case serveErr = <-errCh:
	}

	if sched != nil {
		sched.Stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return serveErr
}
