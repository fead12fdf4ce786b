package commands

import (
	"context"
	"fmt"

	"github.com/wonny/bondalloc/internal/allocconfig"
	"github.com/wonny/bondalloc/internal/brain"
	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/dataset"
	"github.com/wonny/bondalloc/internal/portfolio"
	"github.com/wonny/bondalloc/pkg/config"
	"github.com/wonny/bondalloc/pkg/database"
	"github.com/wonny/bondalloc/pkg/logger"
	"github.com/wonny/bondalloc/pkg/metrics"
	"github.com/wonny/bondalloc/pkg/redis"
)

// appOptions selects the optional infrastructure a command needs
type appOptions struct {
	requireDB bool // --save, --import, history
	cache     bool // Redis 결과 캐시
	metrics   bool
}

// app holds the wired dependencies of one command invocation
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *allocconfig.Config

	db          *database.DB // nil = DB 미사용
	redis       *redis.Client
	metrics     *metrics.Metrics
	source      contracts.InstrumentSource
	sourceLabel string
	csvSource   *dataset.CSVSource // --import 원본
	instruments *dataset.Repository
	runs        *portfolio.Repository

	orchestrator *brain.Orchestrator
}

// newApp loads configuration and wires the allocation pipeline
func newApp(ctx context.Context, flags *globalFlags, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	a := &app{cfg: cfg, log: logger.New(cfg)}

	// 3. Strategy
	strategyPath := flags.strategyPath
	if strategyPath == "" {
		strategyPath = cfg.Allocator.StrategyPath
	}
	strategy, _, err := allocconfig.Load(strategyPath)
	if err != nil {
		return nil, err
	}
	a.strategy = strategy

	// 4. Database (optional unless required)
	usePostgres := flags.dataPath == "" && cfg.Allocator.DatasetSource == config.DatasetPostgres
	if opts.requireDB || usePostgres || cfg.HasDatabase() {
		if err := a.connectDB(ctx, opts.requireDB || usePostgres); err != nil {
			a.Close()
			return nil, err
		}
	}

	// 5. Dataset source
	switch {
	case flags.dataPath != "":
		a.csvSource = dataset.NewCSVSource(flags.dataPath, strategy.Sectors)
		a.source, a.sourceLabel = a.csvSource, flags.dataPath
	case usePostgres:
		a.source, a.sourceLabel = a.instruments, "postgres:allocation.instruments"
	default:
		a.csvSource = dataset.NewCSVSource(cfg.Allocator.DatasetPath, strategy.Sectors)
		a.source, a.sourceLabel = a.csvSource, cfg.Allocator.DatasetPath
	}

	// 6. Cache / metrics
	if opts.cache && cfg.Redis.Enabled {
		client, err := redis.New(ctx, cfg)
		if err != nil {
			// 캐시는 선택 사항
			a.log.WithError(err).Warn("Redis unavailable, running without cache")
		} else {
			a.redis = client
		}
	}
	if opts.metrics && cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 7. Orchestrator
	orchOpts := []brain.Option{
		brain.WithSolverTimeout(cfg.Allocator.SolverTimeout),
		brain.WithMetrics(a.metrics),
	}
	if a.runs != nil {
		orchOpts = append(orchOpts, brain.WithStore(a.runs))
	}
	if a.redis.Enabled() {
		orchOpts = append(orchOpts, brain.WithCache(redis.NewCache(a.redis, "bondalloc"), cfg.Redis.CacheTTL))
	}
	a.orchestrator = brain.NewOrchestrator(a.source, a.log, orchOpts...)

	return a, nil
}

// connectDB opens the pool and applies the schema.
// When the database is optional a failure only disables persistence.
func (a *app) connectDB(ctx context.Context, required bool) error {
	db, err := database.New(ctx, a.cfg)
	if err == nil {
		err = db.EnsureSchema(ctx)
		if err != nil {
			db.Close()
		}
	}
	if err != nil {
		if required {
			return fmt.Errorf("connect to database: %w", err)
		}
		a.log.WithError(err).Warn("Database unavailable, persistence disabled")
		return nil
	}

	a.log.Info("Connected to database")
	a.db = db
	a.instruments = dataset.NewRepository(db.Pool)
	a.runs = portfolio.NewRepository(db.Pool)
	return nil
}

// Close releases the connections
func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
