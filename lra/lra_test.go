package lra

import (
	"math/big"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/solver"
)

// test helpers shared by the lra tests

func rat(num, den int64) *big.Rat {
	return big.NewRat(num, den)
}

func rats(values ...int64) []*big.Rat {
	out := make([]*big.Rat, len(values))
	for i, v := range values {
		out[i] = big.NewRat(v, 1)
	}
	return out
}

func setup(numRat int) (*solver.Database, *solver.Trail, *Theory) {
	cfg := config.New()
	db := solver.NewDatabase()
	trail := solver.NewTrail(nil)
	trail.Resize(lit.Rational, numRat)
	theory := New(cfg)
	theory.OnVariableResize(lit.Rational, numRat)
	return db, trail, theory
}

// propagateAtom pushes the constraint's atom with the given truth value at
// the current decision level, without a reason.
func propagateAtom(trail *solver.Trail, cons Constraint, value bool) {
	ord := cons.Lit().Ord()
	trail.BoolModel().SetValue(ord, value != cons.Lit().Sign())
	trail.Propagate(lit.NewVar(ord, lit.Boolean), nil, trail.DecisionLevel())
}

// decideAtom decides the constraint's atom true at a new decision level.
func decideAtom(trail *solver.Trail, cons Constraint) {
	ord := cons.Lit().Ord()
	trail.BoolModel().SetValue(ord, !cons.Lit().Sign())
	trail.Decide(lit.NewVar(ord, lit.Boolean))
}
