package lra

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/solver"
)

// Repo interns canonical linear constraints. Two syntactically different
// formulations of the same constraint resolve to the same atom: the
// polynomial is sorted by variable ordinal and scaled so the leading
// coefficient is one; a negative leading coefficient flips the inequality
// into the negation of its mirror.
type Repo struct {
	index map[string]Constraint
}

// NewRepo returns an empty repository.
func NewRepo() *Repo {
	return &Repo{index: map[string]Constraint{}}
}

// Make interns the constraint sum(coef[i]*vars[i]) pred rhs. A new atom
// allocates the next Boolean variable through the trail, which broadcasts
// the resize to all listeners. The returned flag is true when the canonical
// constraint was not seen before.
func (r *Repo) Make(trail *solver.Trail, vars []int, coef []*big.Rat, pred Pred, rhs *big.Rat) (Constraint, bool) {
	solver.Invariant(len(vars) == len(coef), "constraint has %d variables and %d coefficients", len(vars), len(coef))

	// combine duplicate variables and drop zero coefficients
	sum := map[int]*big.Rat{}
	for i, v := range vars {
		if prev, ok := sum[v]; ok {
			prev.Add(prev, coef[i])
		} else {
			sum[v] = new(big.Rat).Set(coef[i])
		}
	}
	ordered := make([]int, 0, len(sum))
	for v, c := range sum {
		if c.Sign() != 0 {
			ordered = append(ordered, v)
		}
	}
	sort.Ints(ordered)

	canonVars := make([]int, len(ordered))
	canonCoef := make([]*big.Rat, len(ordered))
	canonRHS := new(big.Rat).Set(rhs)
	for i, v := range ordered {
		canonVars[i] = v
		canonCoef[i] = sum[v]
	}

	// scale so the leading coefficient is +1; a negative leading
	// coefficient turns p <= b into not(-p < -b) and p < b into
	// not(-p <= -b)
	neg := false
	if len(canonCoef) > 0 {
		lead := new(big.Rat).Set(canonCoef[0])
		if lead.Sign() < 0 && pred != EQ {
			// equality is invariant under scaling by a negative
			neg = true
			if pred == LE {
				pred = LT
			} else {
				pred = LE
			}
		}
		for _, c := range canonCoef {
			c.Quo(c, lead)
		}
		canonRHS.Quo(canonRHS, lead)
	}

	key := canonKey(canonVars, canonCoef, pred, canonRHS)
	if c, ok := r.index[key]; ok {
		if neg {
			return c.Neg(), false
		}
		return c, false
	}

	ord := trail.NumVars(lit.Boolean)
	trail.Resize(lit.Boolean, ord+1)
	c := Constraint{
		l: lit.New(ord, false),
		data: &constraintData{
			vars: canonVars,
			coef: canonCoef,
			rhs:  canonRHS,
			pred: pred,
		},
	}
	r.index[key] = c
	if neg {
		return c.Neg(), true
	}
	return c, true
}

func canonKey(vars []int, coef []*big.Rat, pred Pred, rhs *big.Rat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s", pred, rhs.RatString())
	for i, v := range vars {
		fmt.Fprintf(&b, "|%d:%s", v, coef[i].RatString())
	}
	return b.String()
}
