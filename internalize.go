package yaga

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/lra"
	"github.com/stepanhen/yaga/terms"
)

// AssertFormula internalizes a Boolean term and asserts it. Composite
// formulas receive fresh definition variables with their defining clauses;
// arithmetic atoms become interned linear constraints.
func (y *Yaga) AssertFormula(t terms.Term) error {
	l, err := y.litFor(t)
	if err != nil {
		return err
	}
	return y.AssertClause(l)
}

// litFor returns the literal of a Boolean term, creating definition
// variables and constraint atoms on demand.
func (y *Yaga) litFor(t terms.Term) (lit.Lit, error) {
	if !t.Positive() {
		l, err := y.litFor(t.Not())
		return l.Not(), err
	}
	if l, ok := y.atoms[t]; ok {
		return l, nil
	}

	var l lit.Lit
	switch y.tm.Kind(t) {
	case terms.KindConstant:
		l = y.constantTrue()

	case terms.KindUninterpreted:
		if y.tm.TypeOf(t) != terms.Bool {
			return lit.Undef, errors.Errorf("term %s is not Boolean", y.tm.Name(t))
		}
		v := y.MakeVar(lit.Boolean)
		l = lit.New(v.Ord(), false)

	case terms.KindOr:
		args := y.tm.Args(t)
		argLits := make([]lit.Lit, len(args))
		for i, a := range args {
			argLit, err := y.litFor(a)
			if err != nil {
				return lit.Undef, err
			}
			argLits[i] = argLit
		}
		v := y.MakeVar(lit.Boolean)
		l = lit.New(v.Ord(), false)

		// definition clauses: l -> (a0 | a1 | ...) and ai -> l
		long := append([]lit.Lit{l.Not()}, argLits...)
		if err := y.AssertClause(long...); err != nil {
			return lit.Undef, err
		}
		for _, argLit := range argLits {
			if err := y.AssertClause(l, argLit.Not()); err != nil {
				return lit.Undef, err
			}
		}

	case terms.KindGeqZero:
		// p >= 0 is the negation of p < 0
		cons, err := y.atomConstraint(y.tm.Args(t)[0], y.tm.Zero(), lra.LT)
		if err != nil {
			return lit.Undef, err
		}
		l = cons.Lit().Not()

	case terms.KindEqZero:
		cons, err := y.atomConstraint(y.tm.Args(t)[0], y.tm.Zero(), lra.EQ)
		if err != nil {
			return lit.Undef, err
		}
		l = cons.Lit()

	case terms.KindBinEq:
		args := y.tm.Args(t)
		cons, err := y.atomConstraint(args[0], args[1], lra.EQ)
		if err != nil {
			return lit.Undef, err
		}
		l = cons.Lit()

	default:
		return lit.Undef, errors.Errorf("term %s is not a formula", y.tm.Name(t))
	}

	y.atoms[t] = l
	return l, nil
}

// constantTrue lazily allocates a variable asserted true, the literal of
// the constant true term.
func (y *Yaga) constantTrue() lit.Lit {
	if y.trueLit == lit.Undef {
		v := y.MakeVar(lit.Boolean)
		y.trueLit = lit.New(v.Ord(), false)
		y.smt.DB().AssertClause(y.trueLit)
	}
	return y.trueLit
}

// atomConstraint interns the constraint poly(a) - poly(b) pred 0.
func (y *Yaga) atomConstraint(a, b terms.Term, pred lra.Pred) (lra.Constraint, error) {
	coefs := map[int]*big.Rat{}
	constant := new(big.Rat)
	if err := y.addPoly(coefs, constant, a, big.NewRat(1, 1)); err != nil {
		return lra.Constraint{}, err
	}
	if err := y.addPoly(coefs, constant, b, big.NewRat(-1, 1)); err != nil {
		return lra.Constraint{}, err
	}

	vars := make([]int, 0, len(coefs))
	coefList := make([]*big.Rat, 0, len(coefs))
	for v, c := range coefs {
		vars = append(vars, v)
		coefList = append(coefList, c)
	}
	// sum(coef*var) + constant pred 0
	rhs := new(big.Rat).Neg(constant)
	return y.arith.NewConstraint(y.smt.Trail(), vars, coefList, pred, rhs), nil
}

// addPoly accumulates scale * t into the coefficient map and the constant.
func (y *Yaga) addPoly(coefs map[int]*big.Rat, constant *big.Rat, t terms.Term, scale *big.Rat) error {
	if !t.Positive() {
		return errors.Errorf("term %s is not arithmetic", y.tm.Name(t))
	}
	switch y.tm.Kind(t) {
	case terms.KindRational:
		constant.Add(constant, new(big.Rat).Mul(scale, y.tm.RatValue(t)))

	case terms.KindUninterpreted:
		if y.tm.TypeOf(t) != terms.Real {
			return errors.Errorf("term %s is not arithmetic", y.tm.Name(t))
		}
		ord := y.realVarOf(t)
		addCoef(coefs, ord, scale)

	case terms.KindProduct:
		v := y.tm.Args(t)[0]
		if y.tm.Kind(v) != terms.KindUninterpreted || y.tm.TypeOf(v) != terms.Real {
			return errors.Errorf("product of a non-variable term %s", y.tm.Name(v))
		}
		addCoef(coefs, y.realVarOf(v), new(big.Rat).Mul(scale, y.tm.RatValue(t)))

	case terms.KindPoly:
		for _, arg := range y.tm.Args(t) {
			if err := y.addPoly(coefs, constant, arg, scale); err != nil {
				return err
			}
		}

	default:
		return errors.Errorf("term %s is not arithmetic", y.tm.Name(t))
	}
	return nil
}

func addCoef(coefs map[int]*big.Rat, ord int, value *big.Rat) {
	if prev, ok := coefs[ord]; ok {
		prev.Add(prev, value)
		return
	}
	coefs[ord] = new(big.Rat).Set(value)
}

// realVarOf returns the solver variable of an uninterpreted rational term.
func (y *Yaga) realVarOf(t terms.Term) int {
	if ord, ok := y.reals[t]; ok {
		return ord
	}
	v := y.MakeVar(lit.Rational)
	y.reals[t] = v.Ord()
	return v.Ord()
}

// RealVar returns the solver variable bound to an uninterpreted rational
// term.
func (y *Yaga) RealVar(t terms.Term) lit.Var {
	return lit.NewVar(y.realVarOf(t), lit.Rational)
}

// AtomLit returns the literal of an internalized Boolean term, or Undef.
func (y *Yaga) AtomLit(t terms.Term) lit.Lit {
	if !t.Positive() {
		l := y.AtomLit(t.Not())
		if l == lit.Undef {
			return lit.Undef
		}
		return l.Not()
	}
	if l, ok := y.atoms[t]; ok {
		return l
	}
	return lit.Undef
}
