package lpmodel

import "errors"

var (
	// ErrFrozen is returned when a problem is mutated after the solve began.
	ErrFrozen = errors.New("lpmodel: problem is frozen")

	// ErrDuplicateConstraint is returned when a constraint name is reused.
	ErrDuplicateConstraint = errors.New("lpmodel: duplicate constraint name")

	// ErrDuplicateVariable is returned when a variable name is reused.
	ErrDuplicateVariable = errors.New("lpmodel: duplicate variable name")

	// ErrDimension is returned when an expression does not match the variable count.
	ErrDimension = errors.New("lpmodel: expression length does not match variables")

	// ErrBounds is returned for a variable with lower > upper or a non-finite bound.
	ErrBounds = errors.New("lpmodel: invalid variable bounds")
)
