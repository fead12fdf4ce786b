package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/bondalloc/internal/allocconfig"
	"github.com/wonny/bondalloc/internal/brain"
	"github.com/wonny/bondalloc/internal/contracts"
	"github.com/wonny/bondalloc/internal/portfolio"
	"github.com/wonny/bondalloc/pkg/logger"
)

// Runner executes allocation runs (*brain.Orchestrator)
type Runner interface {
	Run(ctx context.Context, cfg brain.RunConfig) (*brain.RunResult, error)
	Latest(ctx context.Context) (*contracts.Allocation, error)
	CanPersist() bool
}

// AllocationHandler handles allocation API endpoints
// ⭐ SSOT: 배분 API 핸들러는 이 구조체에서만
type AllocationHandler struct {
	runner   Runner
	strategy *allocconfig.Config
	logger   *logger.Logger
}

// NewAllocationHandler creates a new allocation handler
func NewAllocationHandler(runner Runner, strategy *allocconfig.Config, log *logger.Logger) *AllocationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AllocationHandler{
		runner:   runner,
		strategy: strategy,
		logger:   log,
	}
}

// AllocateRequest carries optional per-request mandate overrides
type AllocateRequest struct {
	Benchmark   string   `json:"benchmark,omitempty"`
	FixedTicker string   `json:"fixed_ticker,omitempty"`
	FixedAmount *float64 `json:"fixed_amount,omitempty"`
	TotalFunds  *float64 `json:"total_funds,omitempty"`
	Save        bool     `json:"save,omitempty"`
	NoCache     bool     `json:"no_cache,omitempty"`
}

// AllocateResponse represents one allocation run
type AllocateResponse struct {
	RunID        int64                 `json:"run_id,omitempty"`
	Cached       bool                  `json:"cached"`
	ConfigHash   string                `json:"config_hash"`
	DatasetHash  string                `json:"dataset_hash"`
	PortfolioYTM string                `json:"portfolio_ytm_pct"` // "2.97%"
	Allocation   *contracts.Allocation `json:"allocation"`
}

// Allocate runs one allocation
// POST /api/allocations
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse request (empty body = strategy defaults)
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Save && !h.runner.CanPersist() {
		respondError(w, http.StatusServiceUnavailable, "Persistence requires DATABASE_URL")
		return
	}

	result, err := h.runner.Run(ctx, brain.RunConfig{
		Strategy: h.strategy,
		Overrides: allocconfig.Overrides{
			Benchmark:   req.Benchmark,
			FixedTicker: req.FixedTicker,
			FixedAmount: req.FixedAmount,
			TotalFunds:  req.TotalFunds,
		},
		Save:     req.Save,
		UseCache: !req.NoCache,
	})
	if err != nil {
		h.logger.WithError(err).WithField("kind", portfolio.Outcome(err)).Warn("Allocation request failed")
		respondAllocationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AllocateResponse{
		RunID:        result.RunID,
		Cached:       result.Cached,
		ConfigHash:   result.ConfigHash,
		DatasetHash:  result.DatasetHash,
		PortfolioYTM: contracts.FormatPercent(result.Allocation.PortfolioYTM),
		Allocation:   result.Allocation,
	})
}

// GetLatest returns the most recently persisted allocation
// GET /api/allocations/latest
func (h *AllocationHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	if !h.runner.CanPersist() {
		respondError(w, http.StatusServiceUnavailable, "Run history requires DATABASE_URL")
		return
	}

	alloc, err := h.runner.Latest(r.Context())
	if errors.Is(err, portfolio.ErrNoRuns) {
		respondError(w, http.StatusNotFound, "No allocation runs stored")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest allocation")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest allocation")
		return
	}

	respondJSON(w, http.StatusOK, alloc)
}
