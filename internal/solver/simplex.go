package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/wonny/bondalloc/internal/lpmodel"
)

// DefaultTolerance is the simplex numerical tolerance
const DefaultTolerance = 1e-10

// rankTolerance is the size below which a reduced equality row counts as zero
const rankTolerance = 1e-9

// Simplex solves problems with gonum's simplex method.
// A zero Timeout means the solve is only bounded by the caller's context.
type Simplex struct {
	Tolerance float64
	Timeout   time.Duration
}

// NewSimplex creates a simplex solver
func NewSimplex(tolerance float64, timeout time.Duration) *Simplex {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Simplex{Tolerance: tolerance, Timeout: timeout}
}

type simplexResult struct {
	x   []float64
	err error
}

// Solve freezes p and runs it through the simplex engine.
// Non-optimal outcomes are reported through Solution.Status; the returned error
// is reserved for problems that cannot be handed to the engine at all.
func (s *Simplex) Solve(ctx context.Context, p *lpmodel.Problem) (*Solution, error) {
	p.Freeze()

	if p.NumVariables() == 0 {
		return nil, fmt.Errorf("solve %s: problem has no variables", p.Name)
	}

	form := newGeneralForm(p)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return interrupted(err), nil
	}

	// The engine itself is not cancellable; on timeout the goroutine finishes in
	// the background and its result is dropped.
	done := make(chan simplexResult, 1)
	go func() {
		x, err := form.solve(s.Tolerance)
		done <- simplexResult{x: x, err: err}
	}()

	select {
	case <-ctx.Done():
		return interrupted(ctx.Err()), nil
	case res := <-done:
		return s.toSolution(p, res), nil
	}
}

func (s *Simplex) toSolution(p *lpmodel.Problem, res simplexResult) *Solution {
	switch {
	case res.err == nil:
		return &Solution{
			Status:    StatusOptimal,
			Values:    res.x,
			Objective: p.ObjectiveValue(res.x),
		}
	case errors.Is(res.err, lp.ErrInfeasible):
		return &Solution{Status: StatusInfeasible, Detail: res.err.Error()}
	case errors.Is(res.err, lp.ErrUnbounded):
		return &Solution{Status: StatusUnbounded, Detail: res.err.Error()}
	default:
		return &Solution{Status: StatusFailed, Detail: res.err.Error()}
	}
}

func interrupted(err error) *Solution {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Solution{Status: StatusTimeout, Detail: err.Error()}
	}
	return &Solution{Status: StatusCanceled, Detail: err.Error()}
}

// generalForm is
//
//	minimize  cᵀx
//	s.t.      G·x <= h
//	          A·x  = b
//
// with variable bounds folded into G as x <= upper and -x <= -lower.
type generalForm struct {
	n       int
	c       []float64
	g       [][]float64
	h       []float64
	a       [][]float64
	b       []float64
	eqNames []string
}

func newGeneralForm(p *lpmodel.Problem) *generalForm {
	n := p.NumVariables()
	f := &generalForm{n: n}

	f.c = p.Objective()
	if p.Direction == lpmodel.Maximize {
		for i := range f.c {
			f.c[i] = -f.c[i]
		}
	}

	for _, con := range p.Constraints() {
		switch con.Sense {
		case lpmodel.LessEq:
			f.addIneq(con.Expr, con.RHS)
		case lpmodel.GreaterEq:
			f.addIneq(negate(con.Expr), -con.RHS)
		case lpmodel.Equal:
			f.a = append(f.a, con.Expr)
			f.b = append(f.b, con.RHS)
			f.eqNames = append(f.eqNames, con.Name)
		}
	}

	for i, v := range p.Variables() {
		upper := make([]float64, n)
		upper[i] = 1
		f.addIneq(upper, v.Upper)

		lower := make([]float64, n)
		lower[i] = -1
		f.addIneq(lower, -v.Lower)
	}

	return f
}

func (f *generalForm) addIneq(row []float64, rhs float64) {
	f.g = append(f.g, row)
	f.h = append(f.h, rhs)
}

// solve converts to standard form (x = x⁺ − x⁻, slack per inequality) and runs lp.Simplex
func (f *generalForm) solve(tol float64) (x []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex panic: %v", r)
		}
	}()

	// lp.Simplex rejects a rank-deficient A as singular
	eqRows, eqRHS, err := independentRows(f.a, f.b, f.eqNames)
	if err != nil {
		return nil, err
	}

	// untyped nil interfaces when a block is empty; Convert rejects typed nils
	var g, a mat.Matrix
	if len(f.g) > 0 {
		g = denseFromRows(f.g, f.n)
	}
	if len(eqRows) > 0 {
		a = denseFromRows(eqRows, f.n)
	}

	cNew, aNew, bNew := lp.Convert(f.c, g, f.h, a, eqRHS)

	_, xt, err := lp.Simplex(cNew, aNew, bNew, tol, nil)
	if err != nil {
		return nil, err
	}

	x = make([]float64, f.n)
	for i := range x {
		x[i] = xt[i] - xt[f.n+i]
	}
	return x, nil
}

// independentRows keeps the equality rows that are not linear combinations of
// earlier ones. A dependent row with a matching right-hand side is dropped;
// one that contradicts the earlier rows makes the problem infeasible.
func independentRows(rows [][]float64, rhs []float64, names []string) ([][]float64, []float64, error) {
	type pivotRow struct {
		row []float64
		rhs float64
		col int
	}

	var (
		basis    []pivotRow // 가우스 소거된 행 (pivot 열 기준)
		keptRows [][]float64
		keptRHS  []float64
	)
	for i, row := range rows {
		r := append([]float64(nil), row...)
		b := rhs[i]

		scale := 1.0
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}

		for _, p := range basis {
			if r[p.col] == 0 {
				continue
			}
			factor := r[p.col] / p.row[p.col]
			for j := range r {
				r[j] -= factor * p.row[j]
			}
			b -= factor * p.rhs
		}

		col, peak := -1, 0.0
		for j, v := range r {
			if math.Abs(v) > peak {
				col, peak = j, math.Abs(v)
			}
		}
		if peak <= rankTolerance*scale {
			if math.Abs(b) > rankTolerance*math.Max(scale, math.Abs(rhs[i])) {
				return nil, nil, fmt.Errorf("equality %q contradicts earlier equalities: %w", names[i], lp.ErrInfeasible)
			}
			continue
		}

		basis = append(basis, pivotRow{row: r, rhs: b, col: col})
		keptRows = append(keptRows, row)
		keptRHS = append(keptRHS, rhs[i])
	}
	return keptRows, keptRHS, nil
}

func denseFromRows(rows [][]float64, n int) *mat.Dense {
	data := make([]float64, 0, len(rows)*n)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(len(rows), n, data)
}

func negate(e lpmodel.Expr) []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = -v
	}
	return out
}
