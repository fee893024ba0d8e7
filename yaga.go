// Package yaga is an MCSat-style SMT solver for quantifier-free linear
// real arithmetic. The facade ties the solver core, the Boolean and LRA
// theories and the term table together.
package yaga

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/lra"
	"github.com/stepanhen/yaga/order"
	"github.com/stepanhen/yaga/restart"
	"github.com/stepanhen/yaga/solver"
	"github.com/stepanhen/yaga/terms"
	"github.com/stepanhen/yaga/tribool"
)

// Yaga is a ready-to-use solver instance with both theories registered.
type Yaga struct {
	cfg   *config.Config
	smt   *solver.Solver
	bools *solver.BoolTheory
	arith *lra.Theory
	tm    *terms.Manager

	// internalization state
	atoms   map[terms.Term]lit.Lit
	reals   map[terms.Term]int
	trueLit lit.Lit

	// set when the empty clause is asserted
	inconsistent bool
}

// New returns a solver with the Boolean and LRA theories, the
// first-unassigned variable order and a Luby restart policy.
func New(cfg *config.Config) *Yaga {
	s := solver.New(cfg)
	bools := solver.NewBoolTheory(cfg)
	arith := lra.New(cfg)
	s.AddTheory(bools)
	s.AddTheory(arith)
	s.SetVariableOrder(order.NewFirstUnassigned())
	s.SetRestartPolicy(restart.NewLuby(cfg))

	return &Yaga{
		cfg:     cfg,
		smt:     s,
		bools:   bools,
		arith:   arith,
		tm:      terms.NewManager(),
		atoms:   map[terms.Term]lit.Lit{},
		reals:   map[terms.Term]int{},
		trueLit: lit.Undef,
	}
}

// Solver returns the underlying solver, for installing a different
// variable order or restart policy.
func (y *Yaga) Solver() *solver.Solver {
	return y.smt
}

// Terms returns the term table.
func (y *Yaga) Terms() *terms.Manager {
	return y.tm
}

// MakeVar creates a fresh variable of the given type.
func (y *Yaga) MakeVar(typ lit.Type) lit.Var {
	ord := y.smt.Trail().NumVars(typ)
	y.smt.Trail().Resize(typ, ord+1)
	return lit.NewVar(ord, typ)
}

// AssertClause adds an input clause. Duplicate literals collapse and
// tautologies are dropped. Asserting the empty clause marks the instance
// inconsistent.
func (y *Yaga) AssertClause(lits ...lit.Lit) error {
	numVars := y.smt.Trail().NumVars(lit.Boolean)
	seen := map[lit.Lit]bool{}
	kept := make([]lit.Lit, 0, len(lits))
	for _, l := range lits {
		if l == lit.Undef || l.Ord() >= numVars {
			return errors.Errorf("literal %v is out of range", l)
		}
		if seen[l] {
			continue
		}
		if seen[l.Not()] {
			return nil // tautology
		}
		seen[l] = true
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		y.inconsistent = true
		return nil
	}
	y.smt.DB().AssertClause(kept...)
	return nil
}

// Constrain interns a linear constraint over rational variables and
// returns its handle. The atom's literal can be asserted through
// AssertClause.
func (y *Yaga) Constrain(vars []lit.Var, coef []*big.Rat, pred lra.Pred, rhs *big.Rat) (lra.Constraint, error) {
	ords := make([]int, len(vars))
	for i, v := range vars {
		if v.Type() != lit.Rational {
			return lra.Constraint{}, errors.Errorf("variable %v is not rational", v)
		}
		if v.Ord() >= y.smt.Trail().NumVars(lit.Rational) {
			return lra.Constraint{}, errors.Errorf("variable %v is out of range", v)
		}
		ords[i] = v.Ord()
	}
	return y.arith.NewConstraint(y.smt.Trail(), ords, coef, pred, rhs), nil
}

// Check decides satisfiability of everything asserted so far.
func (y *Yaga) Check(ctx context.Context) (solver.Result, error) {
	if y.inconsistent {
		return solver.Unsat, nil
	}
	return y.smt.Check(ctx)
}

// CheckWithModel is Check with assumed variable values; on Unsat it also
// returns an explanation in terms of the assumed variables.
func (y *Yaga) CheckWithModel(ctx context.Context, assumed map[lit.Var]solver.Value) (solver.Result, []*solver.Clause, error) {
	if y.inconsistent {
		return solver.Unsat, nil, nil
	}
	return y.smt.CheckWithModel(ctx, assumed)
}

// BoolValue returns the model value of a Boolean variable after a Sat
// result.
func (y *Yaga) BoolValue(v lit.Var) tribool.Tribool {
	model := y.smt.Trail().BoolModel()
	if v.Type() != lit.Boolean || !model.IsDefined(v.Ord()) {
		return tribool.Undef
	}
	return tribool.NewFromBool(model.Value(v.Ord()))
}

// RatValue returns the model value of a rational variable after a Sat
// result, or nil.
func (y *Yaga) RatValue(v lit.Var) *big.Rat {
	model := y.smt.Trail().RatModel()
	if v.Type() != lit.Rational || !model.IsDefined(v.Ord()) {
		return nil
	}
	return model.Value(v.Ord())
}
