// Package order provides variable-order heuristics for the solver.
package order

import (
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/solver"
)

// FirstUnassigned picks the first unassigned variable by type and ordinal:
// Boolean variables first, then rational variables.
type FirstUnassigned struct{}

// NewFirstUnassigned returns the first-unassigned order.
func NewFirstUnassigned() *FirstUnassigned {
	return &FirstUnassigned{}
}

// Pick implements the VarOrder interface.
func (o *FirstUnassigned) Pick(db *solver.Database, trail *solver.Trail) (lit.Var, bool) {
	boolModel := trail.BoolModel()
	for i := 0; i < boolModel.NumVars(); i++ {
		if !boolModel.IsDefined(i) {
			return lit.NewVar(i, lit.Boolean), true
		}
	}
	ratModel := trail.RatModel()
	for i := 0; i < ratModel.NumVars(); i++ {
		if !ratModel.IsDefined(i) {
			return lit.NewVar(i, lit.Rational), true
		}
	}
	return lit.Var{}, false
}

// IsBefore implements the VarOrder interface.
func (o *FirstUnassigned) IsBefore(a, b lit.Var) bool {
	if a.Type() != b.Type() {
		return a.Type() < b.Type()
	}
	return a.Ord() < b.Ord()
}
