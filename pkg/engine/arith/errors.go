package arith

import (
	"errors"
	"fmt"
)

// ErrEvaluation is the root of every evaluation failure.
var ErrEvaluation = errors.New("invalid mathematical expression")

var (
	ErrEmptyExpression     = fmt.Errorf("%w: empty expression", ErrEvaluation)
	ErrMalformedExpression = fmt.Errorf("%w: malformed expression", ErrEvaluation)
	ErrDivisionByZero      = fmt.Errorf("%w: division by zero", ErrEvaluation)
	ErrNonFinite           = fmt.Errorf("%w: result is not a finite number", ErrEvaluation)
)
