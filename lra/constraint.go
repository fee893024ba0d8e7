// Package lra implements the linear real arithmetic theory: interned
// linear constraints, per-variable bound sets with Fourier-Motzkin
// deduction, and watched-variable constraint propagation.
package lra

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/solver"
)

// Pred is the predicate of a canonical linear constraint. Negating the
// constraint's literal flips the semantics: ~(p <= b) is p > b, ~(p < b) is
// p >= b and ~(p = b) is p != b.
type Pred int

const (
	// LE is the predicate p <= b.
	LE Pred = iota
	// LT is the predicate p < b.
	LT
	// EQ is the predicate p = b.
	EQ
)

// String implements the Stringer interface.
func (p Pred) String() string {
	switch p {
	case LT:
		return "<"
	case EQ:
		return "="
	}
	return "<="
}

// constraintData is the shared storage of a constraint and its negation.
// The variables are kept in watched order: positions 0 and 1 are the
// watched rational variables.
type constraintData struct {
	vars []int
	coef []*big.Rat
	rhs  *big.Rat
	pred Pred
}

// Constraint is a linear constraint over rational variables, owned by a
// repository. It is a small value: a Boolean literal plus shared storage.
// The zero value is the empty constraint.
type Constraint struct {
	l    lit.Lit
	data *constraintData
}

// Empty returns true for the zero constraint.
func (c Constraint) Empty() bool {
	return c.data == nil
}

// Lit returns the Boolean literal of the constraint's atom.
func (c Constraint) Lit() lit.Lit {
	return c.l
}

// Neg returns the negation of the constraint. Both share storage.
func (c Constraint) Neg() Constraint {
	return Constraint{l: c.l.Not(), data: c.data}
}

// Size returns the number of variables.
func (c Constraint) Size() int {
	return len(c.data.vars)
}

// Vars returns the variable ordinals in watched order. The slice is shared;
// watch maintenance permutes it in place.
func (c Constraint) Vars() []int {
	return c.data.vars
}

// Coef returns the coefficients, parallel to Vars.
func (c Constraint) Coef() []*big.Rat {
	return c.data.coef
}

// RHS returns the right-hand side constant.
func (c Constraint) RHS() *big.Rat {
	return c.data.rhs
}

// Pred returns the predicate of the canonical (non-negated) constraint.
func (c Constraint) Pred() Pred {
	return c.data.pred
}

// IsStrict returns true if the constraint, with its literal's sign folded
// in, is a strict inequality: p < b or its mirror p > b.
func (c Constraint) IsStrict() bool {
	return (c.data.pred == LT) != c.l.Sign()
}

// ImpliesEquality returns true if the constraint asserts p = b.
func (c Constraint) ImpliesEquality() bool {
	return c.data.pred == EQ && !c.l.Sign()
}

// ImpliesInequality returns true if the constraint asserts p != b.
func (c Constraint) ImpliesInequality() bool {
	return c.data.pred == EQ && c.l.Sign()
}

// ImpliesLowerBound returns true if the constraint implies a lower bound
// for its first variable.
func (c Constraint) ImpliesLowerBound() bool {
	if c.data.pred == EQ {
		return false
	}
	neg := c.coefSign(0) < 0
	return neg != c.l.Sign()
}

// ImpliesUpperBound returns true if the constraint implies an upper bound
// for its first variable.
func (c Constraint) ImpliesUpperBound() bool {
	if c.data.pred == EQ {
		return false
	}
	return !c.ImpliesLowerBound()
}

func (c Constraint) coefSign(i int) int {
	return c.data.coef[i].Sign()
}

// ImpliedValue returns rhs minus the value of every variable at positions
// >= 1. For a unit constraint, dividing by the first coefficient yields the
// bound on the first variable.
func (c Constraint) ImpliedValue(model *solver.Model[*big.Rat]) *big.Rat {
	value := new(big.Rat).Set(c.data.rhs)
	term := new(big.Rat)
	for i := 1; i < len(c.data.vars); i++ {
		term.Mul(c.data.coef[i], model.Value(c.data.vars[i]))
		value.Sub(value, term)
	}
	return value
}

// EvalRaw evaluates the canonical constraint, ignoring the literal's sign.
// All variables must be assigned.
func (c Constraint) EvalRaw(model *solver.Model[*big.Rat]) bool {
	sum := new(big.Rat)
	term := new(big.Rat)
	for i, v := range c.data.vars {
		term.Mul(c.data.coef[i], model.Value(v))
		sum.Add(sum, term)
	}
	cmp := sum.Cmp(c.data.rhs)
	switch c.data.pred {
	case LT:
		return cmp < 0
	case EQ:
		return cmp == 0
	}
	return cmp <= 0
}

// Eval evaluates the constraint with its literal's sign folded in.
func (c Constraint) Eval(model *solver.Model[*big.Rat]) bool {
	return c.EvalRaw(model) != c.l.Sign()
}

// String implements the Stringer interface.
func (c Constraint) String() string {
	if c.Empty() {
		return "<empty>"
	}
	var b strings.Builder
	if c.l.Sign() {
		b.WriteString("not(")
	}
	for i, v := range c.data.vars {
		if i > 0 {
			b.WriteString(" + ")
		}
		fmt.Fprintf(&b, "%s*r%d", c.data.coef[i].RatString(), v)
	}
	if len(c.data.vars) == 0 {
		b.WriteString("0")
	}
	fmt.Fprintf(&b, " %s %s", c.data.pred, c.data.rhs.RatString())
	if c.l.Sign() {
		b.WriteString(")")
	}
	return b.String()
}
