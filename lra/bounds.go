package lra

import (
	"math/big"

	"github.com/stepanhen/yaga/solver"
	"github.com/stepanhen/yaga/tribool"
)

// Bound is one bound record: a value for a variable together with the unit
// constraint that implies it and the chain of bounds eliminated by
// Fourier-Motzkin to derive it. The chain is empty for bounds implied
// directly by a unit constraint.
type Bound struct {
	ord    int
	value  *big.Rat
	reason Constraint
	strict bool
	deps   []*Bound
}

// Ord returns the ordinal of the bounded variable.
func (b *Bound) Ord() int {
	return b.ord
}

// Value returns the bound value.
func (b *Bound) Value() *big.Rat {
	return b.value
}

// Reason returns the constraint that implies the bound.
func (b *Bound) Reason() Constraint {
	return b.reason
}

// IsStrict returns true if the bound excludes its value.
func (b *Bound) IsStrict() bool {
	return b.strict
}

// Deps returns the derivation chain: the bounds used to eliminate the
// remaining unassigned variables of the reason.
func (b *Bound) Deps() []*Bound {
	return b.deps
}

// mentions returns true if the bound's derivation involves the variable,
// through its reason or any bound in the chain. Such a bound cannot be used
// to eliminate another variable of a constraint on ord: replaying the chain
// would change the coefficient of ord itself.
func (b *Bound) mentions(ord int) bool {
	for _, v := range b.reason.Vars() {
		if v == ord {
			return true
		}
	}
	for _, dep := range b.deps {
		if dep.mentions(ord) {
			return true
		}
	}
	return false
}

// isCurrent returns true while the bound's reason is on the trail and its
// whole derivation chain is still current.
func (b *Bound) isCurrent(models solver.Models) bool {
	if solver.Eval(models.Bool(), b.reason.Lit()) != tribool.True {
		return false
	}
	for _, dep := range b.deps {
		if !dep.isCurrent(models) {
			return false
		}
	}
	return true
}

// VarBounds holds the bound records of one rational variable. Records form
// stacks; a record whose reason has been backtracked is skipped but
// retained, so it is reused if the same constraint returns to the trail.
type VarBounds struct {
	lower []*Bound
	upper []*Bound
	diseq []*Bound
}

// LowerBound returns the tightest current lower bound, or nil.
func (vb *VarBounds) LowerBound(models solver.Models) *Bound {
	return topCurrent(vb.lower, models)
}

// UpperBound returns the tightest current upper bound, or nil.
func (vb *VarBounds) UpperBound(models solver.Models) *Bound {
	return topCurrent(vb.upper, models)
}

// Disequality returns a current disequality record with the given value,
// or nil.
func (vb *VarBounds) Disequality(models solver.Models, value *big.Rat) *Bound {
	for i := len(vb.diseq) - 1; i >= 0; i-- {
		b := vb.diseq[i]
		if b.value.Cmp(value) == 0 && b.isCurrent(models) {
			return b
		}
	}
	return nil
}

// IsAllowed returns true if the value is inside the current bound interval
// and distinct from every current disequality.
func (vb *VarBounds) IsAllowed(models solver.Models, value *big.Rat) bool {
	if lb := vb.LowerBound(models); lb != nil {
		cmp := value.Cmp(lb.value)
		if cmp < 0 || (cmp == 0 && lb.strict) {
			return false
		}
	}
	if ub := vb.UpperBound(models); ub != nil {
		cmp := value.Cmp(ub.value)
		if cmp > 0 || (cmp == 0 && ub.strict) {
			return false
		}
	}
	return vb.Disequality(models, value) == nil
}

// addLower records a new lower bound if it is tighter than the current one.
func (vb *VarBounds) addLower(models solver.Models, b *Bound) bool {
	if cur := vb.LowerBound(models); cur != nil {
		cmp := b.value.Cmp(cur.value)
		if cmp < 0 || (cmp == 0 && (cur.strict || !b.strict)) {
			return false
		}
	}
	vb.lower = append(vb.lower, b)
	return true
}

// addUpper records a new upper bound if it is tighter than the current one.
func (vb *VarBounds) addUpper(models solver.Models, b *Bound) bool {
	if cur := vb.UpperBound(models); cur != nil {
		cmp := b.value.Cmp(cur.value)
		if cmp > 0 || (cmp == 0 && (cur.strict || !b.strict)) {
			return false
		}
	}
	vb.upper = append(vb.upper, b)
	return true
}

// addDisequality records a new disequality unless an equal one is current.
func (vb *VarBounds) addDisequality(models solver.Models, b *Bound) bool {
	if vb.Disequality(models, b.value) != nil {
		return false
	}
	vb.diseq = append(vb.diseq, b)
	return true
}

func topCurrent(stack []*Bound, models solver.Models) *Bound {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].isCurrent(models) {
			return stack[i]
		}
	}
	return nil
}

// Bounds holds the bound sets of all rational variables and tracks which
// variables received a new record since the last drain.
type Bounds struct {
	vars      []*VarBounds
	changed   []int
	inChanged map[int]bool
}

// NewBounds returns an empty bound collection.
func NewBounds() *Bounds {
	return &Bounds{inChanged: map[int]bool{}}
}

// Resize makes room for n rational variables.
func (b *Bounds) Resize(n int) {
	for len(b.vars) < n {
		b.vars = append(b.vars, &VarBounds{})
	}
}

// At returns the bound set of the variable with the given ordinal.
func (b *Bounds) At(ord int) *VarBounds {
	return b.vars[ord]
}

// Changed drains and returns the ordinals of variables whose bound set
// received a new record since the last call.
func (b *Bounds) Changed() []int {
	changed := b.changed
	b.changed = nil
	clear(b.inChanged)
	return changed
}

func (b *Bounds) markChanged(ord int) {
	if !b.inChanged[ord] {
		b.inChanged[ord] = true
		b.changed = append(b.changed, ord)
	}
}

// Update records the bound implied by a unit constraint for its first
// variable. The constraint's atom must be assigned; the bound direction
// follows the atom's value in the Boolean model.
func (b *Bounds) Update(models solver.Models, cons Constraint) {
	solver.Invariant(!cons.Empty(), "bound update with an empty constraint")
	solver.Invariant(!models.Rat().IsDefined(cons.Vars()[0]), "bound update for an assigned variable")

	value := cons.ImpliedValue(models.Rat())
	value.Quo(value, cons.Coef()[0])

	// the constraint that holds in the current model
	actual := cons
	if solver.Eval(models.Bool(), cons.Lit()) != tribool.True {
		actual = cons.Neg()
	}

	ord := cons.Vars()[0]
	vb := b.vars[ord]
	switch {
	case actual.ImpliesEquality():
		added := vb.addLower(models, &Bound{ord: ord, value: value, reason: actual})
		if vb.addUpper(models, &Bound{ord: ord, value: value, reason: actual}) {
			added = true
		}
		if added {
			b.markChanged(ord)
		}
	case actual.ImpliesInequality():
		if vb.addDisequality(models, &Bound{ord: ord, value: value, reason: actual}) {
			b.markChanged(ord)
		}
	case actual.ImpliesLowerBound():
		if vb.addLower(models, &Bound{ord: ord, value: value, reason: actual, strict: actual.IsStrict()}) {
			b.markChanged(ord)
		}
	default:
		if vb.addUpper(models, &Bound{ord: ord, value: value, reason: actual, strict: actual.IsStrict()}) {
			b.markChanged(ord)
		}
	}
}

// Deduce tries to derive a bound on the first variable of the constraint
// by eliminating every other unassigned variable with one of its current
// bounds. The constraint must be oriented: its literal true in the Boolean
// model. Equalities and disequalities are not combined.
func (b *Bounds) Deduce(models solver.Models, cons Constraint) {
	if cons.Empty() || cons.Pred() == EQ || models.Rat().IsDefined(cons.Vars()[0]) {
		return
	}

	form := leForm(cons)
	strict := form.strict
	var deps []*Bound

	// rhs minus assigned terms minus bound terms
	total := new(big.Rat).Set(form.rhs)
	term := new(big.Rat)
	for i := 1; i < len(form.vars); i++ {
		v := form.vars[i]
		c := form.coef[i]
		if models.Rat().IsDefined(v) {
			term.Mul(c, models.Rat().Value(v))
			total.Sub(total, term)
			continue
		}
		var dep *Bound
		if c.Sign() > 0 {
			dep = b.vars[v].LowerBound(models)
		} else {
			dep = b.vars[v].UpperBound(models)
		}
		if dep == nil || dep.mentions(form.vars[0]) {
			return
		}
		term.Mul(c, dep.value)
		total.Sub(total, term)
		strict = strict || dep.strict
		deps = append(deps, dep)
	}

	lead := form.coef[0]
	value := new(big.Rat).Quo(total, lead)

	ord := form.vars[0]
	bound := &Bound{ord: ord, value: value, reason: cons, strict: strict, deps: deps}
	if lead.Sign() > 0 {
		if b.vars[ord].addUpper(models, bound) {
			b.markChanged(ord)
		}
	} else {
		if b.vars[ord].addLower(models, bound) {
			b.markChanged(ord)
		}
	}
}

// IsImplied returns true if the current bounds entail the constraint.
func (b *Bounds) IsImplied(models solver.Models, cons Constraint) bool {
	if cons.Empty() || cons.Pred() == EQ {
		return false
	}
	form := leForm(cons)

	// maximum of the polynomial under the current bounds
	max := new(big.Rat)
	term := new(big.Rat)
	for i, v := range form.vars {
		c := form.coef[i]
		if models.Rat().IsDefined(v) {
			term.Mul(c, models.Rat().Value(v))
			max.Add(max, term)
			continue
		}
		var bound *Bound
		if c.Sign() > 0 {
			bound = b.vars[v].UpperBound(models)
		} else {
			bound = b.vars[v].LowerBound(models)
		}
		if bound == nil {
			return false
		}
		term.Mul(c, bound.value)
		max.Add(max, term)
	}
	cmp := max.Cmp(form.rhs)
	return cmp < 0 || (cmp == 0 && !form.strict)
}

// leq is an inequality sum(coef[i]*vars[i]) <= rhs, strict when strict is
// set. It is the working form of Fourier-Motzkin combination.
type leq struct {
	vars   []int
	coef   []*big.Rat
	rhs    *big.Rat
	strict bool
}

// leForm folds the literal's sign into the constraint, yielding its <= form.
// The constraint must not be an equality.
func leForm(cons Constraint) leq {
	form := leq{
		vars:   cons.Vars(),
		coef:   make([]*big.Rat, cons.Size()),
		rhs:    new(big.Rat).Set(cons.RHS()),
		strict: cons.IsStrict(),
	}
	if !cons.Lit().Sign() {
		for i, c := range cons.Coef() {
			form.coef[i] = new(big.Rat).Set(c)
		}
		return form
	}
	// not(p <= b) is -p < -b; not(p < b) is -p <= -b
	for i, c := range cons.Coef() {
		form.coef[i] = new(big.Rat).Neg(c)
	}
	form.rhs.Neg(form.rhs)
	return form
}
