package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/bondalloc/internal/api/handlers"
	"github.com/wonny/bondalloc/pkg/logger"
	"github.com/wonny/bondalloc/pkg/metrics"
)

// RouterConfig collects the router dependencies
type RouterConfig struct {
	Allocations *handlers.AllocationHandler
	Metrics     *metrics.Metrics // nil = /metrics 비활성
	RateLimit   float64          // 초당 요청 수
	RateBurst   int
	Logger      *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Prometheus
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	}

	// API
	api := r.PathPrefix("/api").Subrouter()

	// Allocation endpoints
	api.HandleFunc("/allocations/latest", cfg.Allocations.GetLatest).Methods("GET")

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	api.Handle("/allocations", rateLimitMiddleware(limiter)(http.HandlerFunc(cfg.Allocations.Allocate))).Methods("POST")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "bondalloc-api",
	})
}
