package contracts

import "context"

// InstrumentSource supplies the raw instrument records (CSV file, database table)
// ⭐ SSOT: 데이터셋 어댑터 인터페이스
type InstrumentSource interface {
	Load(ctx context.Context) ([]Instrument, error)
}

// AllocationOptimizer turns a universe and mandate into an allocation
// ⭐ SSOT: 모델 구성 → 솔버 → 결과 추출 인터페이스
type AllocationOptimizer interface {
	Optimize(ctx context.Context, universe *Universe, mandate Mandate) (*Allocation, error)
}

// AllocationStore persists allocation runs
type AllocationStore interface {
	SaveAllocation(ctx context.Context, alloc *Allocation, configHash, datasetHash string) (int64, error)
	GetLatestAllocation(ctx context.Context) (*Allocation, error)
}
