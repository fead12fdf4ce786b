// Package brain coordinates one allocation run end to end:
// dataset load, universe indexing, cache lookup, optimization and persistence.
package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/bondalloc/internal/allocconfig"
	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/portfolio"
	"github.com/wonny/bondalloc/internal/solver"
	"github.com/wonny/bondalloc/pkg/logger"
	"github.com/wonny/bondalloc/pkg/metrics"
	"github.com/wonny/bondalloc/pkg/redis"
)

// Stage names reported in RunResult.CompletedStages
const (
	StageDataset  = "S1:Dataset"
	StageOptimize = "S2:Optimize"
	StagePersist  = "S3:Persist"
)

// ResultCache memoizes allocations by input fingerprint (*redis.Cache)
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Orchestrator coordinates the allocation pipeline
// ⭐ SSOT: 배분 실행 조율은 여기서만 (CLI / API / 스케줄러 공용)
type Orchestrator struct {
	source contracts.InstrumentSource
	store  contracts.AllocationStore // nil = 저장 불가
	cache  ResultCache               // nil = 캐시 미사용

	cacheTTL      time.Duration
	solverTimeout time.Duration // 전략 파일에 timeout이 없을 때 사용

	metrics *metrics.Metrics
	logger  *logger.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithStore enables persistence of runs
func WithStore(store contracts.AllocationStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithCache enables result memoization
func WithCache(cache ResultCache, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = cache
		o.cacheTTL = ttl
	}
}

// WithMetrics records solve metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSolverTimeout sets the fallback solve deadline
func WithSolverTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.solverTimeout = d }
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(source contracts.InstrumentSource, log *logger.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	o := &Orchestrator{
		source: source,
		logger: log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CanPersist reports whether runs can be saved
func (o *Orchestrator) CanPersist() bool {
	return o.store != nil
}

// RunConfig holds configuration for a pipeline run
type RunConfig struct {
	Strategy  *allocconfig.Config
	Overrides allocconfig.Overrides
	Save      bool // 실행 결과 저장
	UseCache  bool // 동일 입력이면 캐시된 결과 사용
}

// Prepared is a validated dataset and a built (unsolved) model
type Prepared struct {
	Strategy    *allocconfig.Config // overrides 적용 후
	ConfigHash  string
	DatasetHash string
	Universe    *contracts.Universe
	Model       *portfolio.Model
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	*Prepared
	RunID           int64 // 0 = 저장 안 됨
	Allocation      *contracts.Allocation
	Cached          bool
	CompletedStages []string
	Duration        time.Duration
}

// Optimizer builds the optimizer a strategy describes
func (o *Orchestrator) Optimizer(strategy *allocconfig.Config) *portfolio.Optimizer {
	timeout := strategy.Solver.Timeout
	if timeout == 0 {
		timeout = o.solverTimeout
	}

	builder := portfolio.NewBuilder(strategy.Constraints(), o.logger)
	simplex := solver.NewSimplex(strategy.Solver.Tolerance, timeout)
	return portfolio.NewOptimizer(builder, simplex, o.metrics, o.logger).
		WithStrategyID(strategy.Meta.StrategyID)
}

// Prepare loads and validates the dataset and builds the model without solving.
// Used by `validate` and `optimize --show-model`.
func (o *Orchestrator) Prepare(ctx context.Context, cfg RunConfig) (*Prepared, error) {
	if cfg.Strategy == nil {
		return nil, &contracts.ConfigurationError{Field: "strategy", Message: "required"}
	}

	strategy := cfg.Strategy.WithOverrides(cfg.Overrides)
	if err := allocconfig.Validate(strategy); err != nil {
		return nil, err
	}
	configHash, err := allocconfig.Hash(strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}

	instruments, err := o.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	universe, err := contracts.NewUniverse(instruments)
	if err != nil {
		return nil, err
	}
	datasetHash, err := universe.Fingerprint()
	if err != nil {
		return nil, err
	}

	model, err := o.Optimizer(strategy).BuildModel(universe, strategy.Mandate())
	if err != nil {
		return nil, err
	}

	return &Prepared{
		Strategy:    strategy,
		ConfigHash:  configHash,
		DatasetHash: datasetHash,
		Universe:    universe,
		Model:       model,
	}, nil
}

// Run executes the complete pipeline
// S1 (dataset + model) → S2 (cache | solve) → S3 (persist)
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	startTime := time.Now()

	// S1: Dataset
	prepared, err := o.Prepare(ctx, cfg)
	if err != nil {
		if outcome := portfolio.Outcome(err); outcome != metrics.OutcomeSolver {
			o.metrics.RecordOutcome(outcome)
		}
		return nil, fmt.Errorf("%s failed: %w", StageDataset, err)
	}
	result := &RunResult{
		Prepared:        prepared,
		CompletedStages: []string{StageDataset},
	}

	log := o.logger.WithFields(map[string]interface{}{
		"strategy":     prepared.Strategy.Meta.StrategyID,
		"config_hash":  short(prepared.ConfigHash),
		"dataset_hash": short(prepared.DatasetHash),
		"instruments":  prepared.Universe.Count(),
	})
	log.Info("Starting allocation run")

	// S2: Optimize
	key := redis.AllocationKey(prepared.ConfigHash, prepared.DatasetHash)
	if cfg.UseCache {
		result.Allocation, result.Cached = o.lookup(ctx, key)
	}
	if result.Cached {
		o.metrics.RecordOutcome(metrics.OutcomeCached)
		log.Info("Allocation served from cache")
	} else {
		alloc, err := o.Optimizer(prepared.Strategy).OptimizeModel(ctx, prepared.Model)
		if err != nil {
			return result, fmt.Errorf("%s failed: %w", StageOptimize, err)
		}
		result.Allocation = alloc
		o.remember(ctx, key, alloc)
	}
	result.CompletedStages = append(result.CompletedStages, StageOptimize)

	// S3: Persist (optional)
	if cfg.Save {
		if o.store == nil {
			return result, fmt.Errorf("%s failed: no database configured", StagePersist)
		}
		runID, err := o.store.SaveAllocation(ctx, result.Allocation, prepared.ConfigHash, prepared.DatasetHash)
		if err != nil {
			return result, fmt.Errorf("%s failed: %w", StagePersist, err)
		}
		result.RunID = runID
		result.CompletedStages = append(result.CompletedStages, StagePersist)
	}

	result.Duration = time.Since(startTime)
	log.WithFields(map[string]interface{}{
		"run_id":        result.RunID,
		"cached":        result.Cached,
		"portfolio_ytm": result.Allocation.PortfolioYTM,
		"duration":      result.Duration.String(),
	}).Info("Allocation run completed")

	return result, nil
}

// Latest returns the most recently persisted allocation
func (o *Orchestrator) Latest(ctx context.Context) (*contracts.Allocation, error) {
	if o.store == nil {
		return nil, fmt.Errorf("no database configured")
	}
	return o.store.GetLatestAllocation(ctx)
}

// lookup never fails the run; a broken cache only costs a solve
func (o *Orchestrator) lookup(ctx context.Context, key string) (*contracts.Allocation, bool) {
	if o.cache == nil {
		return nil, false
	}
	var alloc contracts.Allocation
	found, err := o.cache.Get(ctx, key, &alloc)
	if err != nil {
		o.logger.WithError(err).Warn("Cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}
	return &alloc, true
}

func (o *Orchestrator) remember(ctx context.Context, key string, alloc *contracts.Allocation) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, key, alloc, o.cacheTTL); err != nil {
		// Log but don't fail
		o.logger.WithError(err).Warn("Cache store failed")
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
