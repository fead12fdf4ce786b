package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/bondalloc/internal/portfolio"
	"github.com/wonny/bondalloc/pkg/metrics"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error       string `json:"error"`
	Kind        string `json:"kind,omitempty"`        // data_validation, configuration, infeasible, ...
	Remediation string `json:"remediation,omitempty"` // 운영자 조치 안내
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondAllocationError maps the error taxonomy onto status codes.
// Callers tell data faults from infeasible mandates by status and kind.
func respondAllocationError(w http.ResponseWriter, err error) {
	kind := portfolio.Outcome(err)
	respondJSON(w, StatusFor(err), ErrorResponse{
		Error:       err.Error(),
		Kind:        kind,
		Remediation: portfolio.Remediation(err),
	})
}

// StatusFor returns the HTTP status of an allocation error
func StatusFor(err error) int {
	switch portfolio.Outcome(err) {
	case metrics.OutcomeData:
		return http.StatusUnprocessableEntity
	case metrics.OutcomeConfig:
		return http.StatusBadRequest
	case metrics.OutcomeInfeasible:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
