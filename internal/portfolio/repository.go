package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/bondalloc/internal/contracts"
)

// ErrNoRuns is returned when no allocation run has been persisted yet
var ErrNoRuns = errors.New("no allocation runs stored")

// Repository handles allocation run persistence
// ⭐ SSOT: 배분 결과 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

var _ contracts.AllocationStore = (*Repository)(nil)

// NewRepository creates a new allocation repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RunSummary is one row of the run history
type RunSummary struct {
	ID           int64     `json:"id"`
	StrategyID   string    `json:"strategy_id"`
	Benchmark    string    `json:"benchmark"`
	TotalFunds   float64   `json:"total_funds"`
	PortfolioYTM float64   `json:"portfolio_ytm"`
	Positions    int       `json:"positions"`
	ConfigHash   string    `json:"config_hash"`
	DatasetHash  string    `json:"dataset_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// SaveAllocation stores a run and its positions in one transaction and returns the run id
func (r *Repository) SaveAllocation(ctx context.Context, alloc *contracts.Allocation, configHash, datasetHash string) (int64, error) {
	exposures, err := json.Marshal(alloc.Exposures)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal exposures: %w", err)
	}

	// Begin transaction
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO allocation.runs (
			strategy_id, benchmark, total_funds, portfolio_ytm, exposures,
			config_hash, dataset_hash, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		alloc.StrategyID, alloc.Benchmark, alloc.TotalFunds, alloc.PortfolioYTM, exposures,
		configHash, datasetHash, alloc.CreatedAt,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, pos := range alloc.Positions {
		batch.Queue(`
			INSERT INTO allocation.positions (run_id, ticker, weight, shares, price, market_value)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, runID, pos.Ticker, pos.Weight, pos.Shares, pos.Price, pos.MarketValue)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to insert positions: %w", err)
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// GetLatestAllocation returns the most recent run with its positions
func (r *Repository) GetLatestAllocation(ctx context.Context) (*contracts.Allocation, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		"SELECT id FROM allocation.runs ORDER BY created_at DESC, id DESC LIMIT 1",
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	return r.GetAllocation(ctx, id)
}

// GetAllocation loads one run by id
func (r *Repository) GetAllocation(ctx context.Context, id int64) (*contracts.Allocation, error) {
	alloc := &contracts.Allocation{}
	var exposures []byte

	err := r.pool.QueryRow(ctx, `
		SELECT strategy_id, benchmark, total_funds, portfolio_ytm, exposures, created_at
		FROM allocation.runs
		WHERE id = $1
	`, id).Scan(&alloc.StrategyID, &alloc.Benchmark, &alloc.TotalFunds, &alloc.PortfolioYTM, &exposures, &alloc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrNoRuns)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %w", id, err)
	}

	if err := json.Unmarshal(exposures, &alloc.Exposures); err != nil {
		return nil, fmt.Errorf("failed to decode exposures of run %d: %w", id, err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ticker, weight, shares, price, market_value
		FROM allocation.positions
		WHERE run_id = $1
		ORDER BY ticker
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos contracts.Position
		if err := rows.Scan(&pos.Ticker, &pos.Weight, &pos.Shares, &pos.Price, &pos.MarketValue); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		alloc.Positions = append(alloc.Positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return alloc, nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.strategy_id, r.benchmark, r.total_funds, r.portfolio_ytm,
		       COUNT(p.ticker), r.config_hash, r.dataset_hash, r.created_at
		FROM allocation.runs r
		LEFT JOIN allocation.positions p ON p.run_id = r.id
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.ID, &s.StrategyID, &s.Benchmark, &s.TotalFunds, &s.PortfolioYTM,
			&s.Positions, &s.ConfigHash, &s.DatasetHash, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}
