// Package lpmodel holds the solver-independent representation of a linear program:
// continuous bounded variables, one linear objective and a set of named linear
// (in)equality constraints.
//
// A Problem is built once, then frozen by the solver when the solve begins.
// It is not safe for concurrent use; build one instance per scenario.
package lpmodel

import (
	"fmt"
	"math"
)

// Direction is the optimization direction of the objective
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

func (d Direction) String() string {
	if d == Minimize {
		return "minimize"
	}
	return "maximize"
}

// Sense is the relation of a constraint row to its right-hand side
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Variable is a continuous decision variable with a closed domain
type Variable struct {
	Name  string
	Lower float64
	Upper float64
}

// Expr is a dense coefficient vector over the problem variables
type Expr []float64

// Eval returns the expression value at x
func (e Expr) Eval(x []float64) float64 {
	var sum float64
	for i, c := range e {
		sum += c * x[i]
	}
	return sum
}

// Constraint is one named linear row
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// Satisfied reports whether x meets the row within tol
func (c Constraint) Satisfied(x []float64, tol float64) bool {
	lhs := c.Expr.Eval(x)
	switch c.Sense {
	case LessEq:
		return lhs <= c.RHS+tol
	case GreaterEq:
		return lhs >= c.RHS-tol
	default:
		return math.Abs(lhs-c.RHS) <= tol
	}
}

// Problem is a linear program over bounded continuous variables
type Problem struct {
	Name      string
	Direction Direction

	variables   []Variable
	objective   Expr
	constraints []Constraint

	varIndex  map[string]int
	consIndex map[string]int
	frozen    bool
}

// NewProblem creates an empty problem
func NewProblem(name string, direction Direction) *Problem {
	return &Problem{
		Name:      name,
		Direction: direction,
		varIndex:  make(map[string]int),
		consIndex: make(map[string]int),
	}
}

// AddVariable appends a variable and returns its index.
// Variables must be added before the objective and constraints.
func (p *Problem) AddVariable(name string, lower, upper float64) (int, error) {
	if p.frozen {
		return 0, ErrFrozen
	}
	if _, dup := p.varIndex[name]; dup {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}
	if math.IsNaN(lower) || math.IsNaN(upper) || math.IsInf(lower, 0) || math.IsInf(upper, 0) || lower > upper {
		return 0, fmt.Errorf("%w: %s [%g, %g]", ErrBounds, name, lower, upper)
	}
	if len(p.objective) > 0 || len(p.constraints) > 0 {
		return 0, fmt.Errorf("%w: variable %s added after rows", ErrDimension, name)
	}

	p.variables = append(p.variables, Variable{Name: name, Lower: lower, Upper: upper})
	p.varIndex[name] = len(p.variables) - 1
	return len(p.variables) - 1, nil
}

// NewExpr returns a zero expression sized to the current variables
func (p *Problem) NewExpr() Expr {
	return make(Expr, len(p.variables))
}

// SetObjective sets the objective coefficients
func (p *Problem) SetObjective(e Expr) error {
	if p.frozen {
		return ErrFrozen
	}
	if len(e) != len(p.variables) {
		return fmt.Errorf("%w: objective has %d terms, want %d", ErrDimension, len(e), len(p.variables))
	}
	p.objective = append(Expr(nil), e...)
	return nil
}

// AddConstraint appends a named row. Names are unique within the problem.
func (p *Problem) AddConstraint(name string, e Expr, sense Sense, rhs float64) error {
	if p.frozen {
		return ErrFrozen
	}
	if _, dup := p.consIndex[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateConstraint, name)
	}
	if len(e) != len(p.variables) {
		return fmt.Errorf("%w: %s has %d terms, want %d", ErrDimension, name, len(e), len(p.variables))
	}

	p.constraints = append(p.constraints, Constraint{
		Name:  name,
		Expr:  append(Expr(nil), e...),
		Sense: sense,
		RHS:   rhs,
	})
	p.consIndex[name] = len(p.constraints) - 1
	return nil
}

// Freeze makes the problem immutable. Idempotent.
func (p *Problem) Freeze() {
	p.frozen = true
}

// Frozen reports whether the problem can still change
func (p *Problem) Frozen() bool {
	return p.frozen
}

// Variables returns a copy of the variables
func (p *Problem) Variables() []Variable {
	return append([]Variable(nil), p.variables...)
}

// Objective returns a copy of the objective coefficients
func (p *Problem) Objective() Expr {
	if p.objective == nil {
		return p.NewExpr()
	}
	return append(Expr(nil), p.objective...)
}

// Constraints returns the rows in insertion order
func (p *Problem) Constraints() []Constraint {
	return append([]Constraint(nil), p.constraints...)
}

// Constraint looks up a row by name
func (p *Problem) Constraint(name string) (Constraint, bool) {
	idx, ok := p.consIndex[name]
	if !ok {
		return Constraint{}, false
	}
	return p.constraints[idx], true
}

// VariableIndex looks up a variable by name
func (p *Problem) VariableIndex(name string) (int, bool) {
	idx, ok := p.varIndex[name]
	return idx, ok
}

// NumVariables returns the number of variables
func (p *Problem) NumVariables() int {
	return len(p.variables)
}

// NumConstraints returns the number of rows
func (p *Problem) NumConstraints() int {
	return len(p.constraints)
}

// ObjectiveValue evaluates the objective at x
func (p *Problem) ObjectiveValue(x []float64) float64 {
	return p.Objective().Eval(x)
}

// Violations lists the names of the bounds and rows that x breaks by more than tol
func (p *Problem) Violations(x []float64, tol float64) []string {
	if len(x) != len(p.variables) {
		return []string{fmt.Sprintf("dimension: got %d values, want %d", len(x), len(p.variables))}
	}

	var broken []string
	for i, v := range p.variables {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			broken = append(broken, v.Name+"_bounds")
		}
	}
	for _, c := range p.constraints {
		if !c.Satisfied(x, tol) {
			broken = append(broken, c.Name)
		}
	}
	return broken
}
