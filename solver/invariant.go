package solver

import "fmt"

// InvariantError reports a violated internal invariant: a malformed input
// clause, a type-mismatched variable, an out-of-range ordinal. It is a
// programmer error, distinct from the Unknown result.
type InvariantError struct {
	msg string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "solver invariant violated: " + e.msg
}

// Invariant panics with an InvariantError unless cond holds. Check recovers
// the panic and surfaces it to the caller as a fatal error.
func Invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(&InvariantError{msg: fmt.Sprintf(format, args...)})
	}
}
