package contracts

import "fmt"

// DataValidationError reports a malformed, missing or out-of-range input field.
// Remediation: fix the dataset.
type DataValidationError struct {
	Ticker  string
	Field   string
	Message string
}

func (e *DataValidationError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("data validation: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("data validation: %s.%s: %s", e.Ticker, e.Field, e.Message)
}

// ConfigurationError reports a mandate or strategy setting that cannot be
// satisfied by construction, e.g. a benchmark ticker absent from the dataset.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
}

// InfeasibleModelError means no weight vector satisfies every constraint.
// Remediation: relax the bands, the data is fine.
type InfeasibleModelError struct {
	Problem string
}

func (e *InfeasibleModelError) Error() string {
	return fmt.Sprintf("model %q is infeasible: no weighting satisfies all constraints", e.Problem)
}

// UnboundedModelError should be unreachable with [0,1] weights but is detected anyway.
type UnboundedModelError struct {
	Problem string
}

func (e *UnboundedModelError) Error() string {
	return fmt.Sprintf("model %q is unbounded", e.Problem)
}

// SolverError covers every other non-optimal solver outcome, timeouts included.
type SolverError struct {
	Status string
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("solver failed (status=%s)", e.Status)
	}
	return fmt.Sprintf("solver failed (status=%s): %v", e.Status, e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}
