package dataset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/bondalloc/internal/contracts"
)

// Repository stores the instrument dataset in allocation.instruments
// ⭐ SSOT: 종목 데이터셋 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

var _ contracts.InstrumentSource = (*Repository)(nil)

// NewRepository creates a new dataset repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load implements contracts.InstrumentSource
func (r *Repository) Load(ctx context.Context) ([]contracts.Instrument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ticker, weight_multiplier, credit_num, duration, ytm,
		       non_benchmark, sector_exposure, price
		FROM allocation.instruments
		ORDER BY ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	instruments := make([]contracts.Instrument, 0)
	for rows.Next() {
		var (
			inst    contracts.Instrument
			sectors []byte
		)
		if err := rows.Scan(
			&inst.Ticker, &inst.WeightMultiplier, &inst.CreditNum, &inst.Duration, &inst.YTM,
			&inst.NonBenchmark, &sectors, &inst.Price,
		); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}

		if err := json.Unmarshal(sectors, &inst.SectorExposure); err != nil {
			return nil, &contracts.DataValidationError{Ticker: inst.Ticker, Field: "sector_exposure", Message: err.Error()}
		}
		if inst.WeightMultiplier == 0 {
			inst.WeightMultiplier = contracts.DefaultWeightMultiplier
		}
		instruments = append(instruments, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return instruments, nil
}

// Upsert writes instruments, replacing rows with the same ticker
func (r *Repository) Upsert(ctx context.Context, instruments []contracts.Instrument) (int, error) {
	batch := &pgx.Batch{}
	for _, inst := range instruments {
		sectors, err := json.Marshal(inst.SectorExposure)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal sectors of %s: %w", inst.Ticker, err)
		}

		batch.Queue(`
			INSERT INTO allocation.instruments (
				ticker, weight_multiplier, credit_num, duration, ytm,
				non_benchmark, sector_exposure, price, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
			ON CONFLICT (ticker) DO UPDATE SET
				weight_multiplier = EXCLUDED.weight_multiplier,
				credit_num = EXCLUDED.credit_num,
				duration = EXCLUDED.duration,
				ytm = EXCLUDED.ytm,
				non_benchmark = EXCLUDED.non_benchmark,
				sector_exposure = EXCLUDED.sector_exposure,
				price = EXCLUDED.price,
				updated_at = NOW()
		`, inst.Ticker, inst.WeightMultiplier, inst.CreditNum, inst.Duration, inst.YTM,
			inst.NonBenchmark, sectors, inst.Price)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to upsert instruments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(instruments), nil
}
