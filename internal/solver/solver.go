// Package solver runs a linear program built with lpmodel through an LP engine.
//
// Any engine that reports a status, the variable values and the objective value
// can stand behind the Solver interface. Simplex is the default engine, backed by
// gonum's optimize/convex/lp.
package solver

import (
	"context"

	"github.com/wonny/bondalloc/internal/lpmodel"
)

// Status is the terminal state of one solve
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimeout
	StatusCanceled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// Solution is what the engine returned. Values and Objective are only
// meaningful when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Values    []float64 // one per problem variable, in variable order
	Objective float64   // objective value in the problem's own direction
	Detail    string    // raw engine message for non-optimal outcomes
}

// Solver solves a problem once. Implementations freeze the problem before solving.
// ⭐ SSOT: 솔버 경계 (상태/변수값/목적함수값)
type Solver interface {
	Solve(ctx context.Context, p *lpmodel.Problem) (*Solution, error)
}
