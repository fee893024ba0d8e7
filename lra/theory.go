package lra

import (
	"math/big"
	"sort"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/solver"
	"github.com/stepanhen/yaga/tribool"
)

// watchedConstraint is a constraint seen from one of its two watched
// rational variables. index is a rotating cursor into the replacement
// candidates [2, size).
type watchedConstraint struct {
	cons  Constraint
	index int
}

func newWatchedConstraint(cons Constraint) watchedConstraint {
	index := 2
	if cons.Size() < 2 {
		index = cons.Size() - 1
	}
	return watchedConstraint{cons: cons, index: index}
}

// Theory is the linear real arithmetic theory plugin. It owns the
// constraint repository and the variable bounds, watches two rational
// variables per constraint, and generates bound and disequality conflicts
// by Fourier-Motzkin elimination.
type Theory struct {
	solver.BaseListener
	solver.Cursor

	cfg    *config.Config
	repo   *Repo
	bounds *Bounds

	// watch lists indexed by rational variable ordinal
	watched [][]watchedConstraint
	// constraint of a Boolean variable, empty when the variable is not an
	// arithmetic atom
	constraints []Constraint
	// all constraints mentioning a rational variable
	occur [][]Constraint
	// cached decision values
	cached *solver.Model[*big.Rat]

	// rational variables assigned or re-bounded in the current pass
	toCheck []int
	// rational variables assigned in the current pass
	fresh []int
}

// New returns an LRA theory with the given configuration.
func New(cfg *config.Config) *Theory {
	return &Theory{
		cfg:    cfg,
		repo:   NewRepo(),
		bounds: NewBounds(),
		cached: solver.NewModel[*big.Rat](),
	}
}

// Bounds returns the variable bounds, for inspection in tests and value
// selection.
func (t *Theory) Bounds() *Bounds {
	return t.bounds
}

// NewConstraint interns the linear constraint sum(coef[i]*vars[i]) pred rhs
// and registers its watches. The rational variables must already exist on
// the trail.
func (t *Theory) NewConstraint(trail *solver.Trail, vars []int, coef []*big.Rat, pred Pred, rhs *big.Rat) Constraint {
	cons, isNew := t.repo.Make(trail, vars, coef, pred, rhs)
	if !isNew {
		return cons
	}

	canonical := cons
	if canonical.Lit().Sign() {
		canonical = canonical.Neg()
	}
	t.resize(trail)
	t.constraints[canonical.Lit().Ord()] = canonical
	for _, v := range canonical.Vars() {
		t.occur[v] = append(t.occur[v], canonical)
	}
	t.watch(canonical, trail)
	return cons
}

// FindBounds returns the current lower and upper bound records of a
// rational variable.
func (t *Theory) FindBounds(models solver.Models, ord int) (*Bound, *Bound) {
	vb := t.bounds.At(ord)
	return vb.LowerBound(models), vb.UpperBound(models)
}

// OnVariableResize allocates per-variable structures.
func (t *Theory) OnVariableResize(typ lit.Type, numVars int) {
	if typ == lit.Rational {
		t.bounds.Resize(numVars)
		t.cached.Resize(numVars)
		for len(t.watched) < numVars {
			t.watched = append(t.watched, nil)
		}
		for len(t.occur) < numVars {
			t.occur = append(t.occur, nil)
		}
	} else {
		for len(t.constraints) < numVars {
			t.constraints = append(t.constraints, Constraint{})
		}
	}
}

// OnBeforeBacktrack rewinds the processed-trail cursor.
func (t *Theory) OnBeforeBacktrack(db *solver.Database, trail *solver.Trail, level int) {
	t.Rewind(trail, level)
}

// OnInit resets the processed-trail cursor.
func (t *Theory) OnInit(db *solver.Database, trail *solver.Trail) {
	t.Reset()
}

// OnRestart resets the processed-trail cursor.
func (t *Theory) OnRestart(db *solver.Database, trail *solver.Trail) {
	t.Reset()
}

// Propagate processes new trail assignments: it maintains watched
// variables, records bounds of unit constraints, semantically propagates
// fully assigned atoms, optionally deduces and propagates bounds, and
// finally checks the affected variables for bound and disequality
// conflicts.
func (t *Theory) Propagate(db *solver.Database, trail *solver.Trail) []*solver.Clause {
	models := trail.Models()

	for {
		oldSize := trail.Size()
		t.fresh = t.fresh[:0]

		for {
			a, ok := t.Peek(trail)
			if !ok {
				break
			}
			if a.Var.Type() == lit.Boolean {
				if cons := t.constraints[a.Var.Ord()]; !cons.Empty() {
					if t.isFullyAssigned(models, cons) {
						solver.Invariant(cons.EvalRaw(models.Rat()) == models.Bool().Value(cons.Lit().Ord()),
							"constraint %v disagrees with its atom", cons)
					} else if t.isUnit(models, cons) {
						t.bounds.Update(models, cons)
						t.toCheck = append(t.toCheck, cons.Vars()[0])
					}
				}
			} else {
				t.replaceWatches(trail, models, a.Var.Ord())
				t.fresh = append(t.fresh, a.Var.Ord())
			}
			t.Advance()
		}

		t.propagateEqualities(trail, models)
		if t.cfg.PropBounds {
			t.propagateBounds(models)
		}
		if t.cfg.PropUnassigned {
			t.propagateUnassigned(trail, models)
		}
		conflicts := t.finish(trail, models)
		if len(conflicts) > 0 {
			return conflicts
		}
		// implied equalities and semantically propagated atoms grow the
		// trail; keep going until the pass settles
		if trail.Size() == oldSize {
			return nil
		}
	}
}

// Decide picks a value for a rational variable: the cached value if the
// bounds allow it, otherwise the integer of smallest absolute value within
// the bounds, otherwise a value found by bisecting towards the upper bound.
func (t *Theory) Decide(db *solver.Database, trail *solver.Trail, v lit.Var) {
	if v.Type() != lit.Rational {
		return
	}
	models := trail.Models()
	vb := t.bounds.At(v.Ord())

	value := new(big.Rat)
	if t.cached.IsDefined(v.Ord()) {
		value.Set(t.cached.Value(v.Ord()))
	}
	if !vb.IsAllowed(models, value) {
		if intValue := findInteger(models, vb); intValue != nil {
			value = intValue
		} else {
			lb := vb.LowerBound(models)
			ub := vb.UpperBound(models)
			solver.Invariant(lb != nil && ub != nil, "no value is allowed for an unbounded variable")

			// bisect from the midpoint of the bounds towards the upper bound
			half := big.NewRat(1, 2)
			value.Add(lb.Value(), ub.Value())
			value.Mul(value, half)
			upper := new(big.Rat).Mul(ub.Value(), half)
			for !vb.IsAllowed(models, value) {
				value.Mul(value, half)
				value.Add(value, upper)
			}
		}
	}

	t.cached.SetValue(v.Ord(), new(big.Rat).Set(value))
	models.Rat().SetValue(v.Ord(), value)
	trail.Decide(v)
}

// DecideToValue decides a rational variable to an assumed value.
func (t *Theory) DecideToValue(trail *solver.Trail, v lit.Var, value solver.Value) {
	rv, ok := value.(solver.RatValue)
	if v.Type() != lit.Rational || !ok {
		return
	}
	t.cached.SetValue(v.Ord(), new(big.Rat).Set(rv.Rat))
	trail.RatModel().SetValue(v.Ord(), new(big.Rat).Set(rv.Rat))
	trail.Decide(v)
}

// resize grows per-variable structures to the trail sizes. Registration
// must work even on trails without a dispatcher.
func (t *Theory) resize(trail *solver.Trail) {
	t.OnVariableResize(lit.Boolean, trail.NumVars(lit.Boolean))
	t.OnVariableResize(lit.Rational, trail.NumVars(lit.Rational))
}

// watch moves up to two unassigned variables to the watched positions and
// installs the watches. Assigned variables that end up watched are the
// most recently assigned ones, so backtracking unassigns watched positions
// before any other position.
func (t *Theory) watch(cons Constraint, trail *solver.Trail) {
	if cons.Size() == 0 {
		return
	}
	model := trail.RatModel()
	vars := cons.Vars()
	coef := cons.Coef()
	swap := func(i, j int) {
		vars[i], vars[j] = vars[j], vars[i]
		coef[i], coef[j] = coef[j], coef[i]
	}

	out := 0
	outEnd := 2
	if cons.Size() == 1 {
		outEnd = 1
	}
	for i := 0; i < len(vars) && out < outEnd; i++ {
		if !model.IsDefined(vars[i]) {
			swap(i, out)
			out++
		}
	}
	// fill the remaining watched positions with the latest-assigned
	// variables, latest last
	for ; out < outEnd && out < cons.Size(); out++ {
		best := out
		for i := out + 1; i < len(vars); i++ {
			if t.assignLevel(trail, vars[i]) > t.assignLevel(trail, vars[best]) {
				best = i
			}
		}
		swap(out, best)
	}
	if outEnd == 2 && cons.Size() > 1 &&
		model.IsDefined(vars[0]) && t.assignLevel(trail, vars[0]) > t.assignLevel(trail, vars[1]) {
		swap(0, 1)
	}

	t.watched[vars[0]] = append(t.watched[vars[0]], newWatchedConstraint(cons))
	if cons.Size() > 1 {
		t.watched[vars[1]] = append(t.watched[vars[1]], newWatchedConstraint(cons))
	}
}

func (t *Theory) assignLevel(trail *solver.Trail, ord int) int {
	level, ok := trail.LevelOf(lit.NewVar(ord, lit.Rational))
	if !ok {
		return -1
	}
	return level
}

// isUnit returns true if exactly the first watched variable is unassigned.
// Watch maintenance keeps the unassigned variable at position 0.
func (t *Theory) isUnit(models solver.Models, cons Constraint) bool {
	if cons.Size() == 0 || models.Rat().IsDefined(cons.Vars()[0]) {
		return false
	}
	return cons.Size() == 1 || models.Rat().IsDefined(cons.Vars()[1])
}

func (t *Theory) isFullyAssigned(models solver.Models, cons Constraint) bool {
	return cons.Size() == 0 || models.Rat().IsDefined(cons.Vars()[0])
}

// replaceWatches processes the watch list of a freshly assigned rational
// variable.
func (t *Theory) replaceWatches(trail *solver.Trail, models solver.Models, ord int) {
	watchlist := t.watched[ord]
	for i := 0; i < len(watchlist); {
		w := &watchlist[i]
		cons := w.cons

		if t.replaceWatch(models.Rat(), w, ord) {
			watchlist[i] = watchlist[len(watchlist)-1]
			watchlist = watchlist[:len(watchlist)-1]
			t.watched[ord] = watchlist
			continue
		}

		// cons is unit or fully assigned
		if models.Bool().IsDefined(cons.Lit().Ord()) {
			if t.isFullyAssigned(models, cons) {
				solver.Invariant(cons.EvalRaw(models.Rat()) == models.Bool().Value(cons.Lit().Ord()),
					"constraint %v disagrees with its atom", cons)
			} else {
				t.bounds.Update(models, cons)
				t.toCheck = append(t.toCheck, cons.Vars()[0])
			}
		} else {
			if t.isFullyAssigned(models, cons) {
				t.semanticPropagate(trail, models, cons)
			}
		}
		i++
	}
}

// replaceWatch tries to find another unassigned variable to watch instead
// of the freshly assigned one. The assigned variable moves to position 1;
// an unassigned variable stays at position 0.
func (t *Theory) replaceWatch(model *solver.Model[*big.Rat], w *watchedConstraint, ord int) bool {
	cons := w.cons
	if cons.Size() <= 1 {
		return false
	}

	vars := cons.Vars()
	coef := cons.Coef()

	// both watched variables assigned means fully assigned
	if model.IsDefined(vars[0]) && model.IsDefined(vars[1]) {
		return false
	}

	// move the assigned variable to position 1
	if vars[1] != ord {
		vars[0], vars[1] = vars[1], vars[0]
		coef[0], coef[1] = coef[1], coef[0]
	}

	if cons.Size() > 2 {
		end := w.index
		for {
			if !model.IsDefined(vars[w.index]) {
				vars[1], vars[w.index] = vars[w.index], vars[1]
				coef[1], coef[w.index] = coef[w.index], coef[1]
				t.watched[vars[1]] = append(t.watched[vars[1]], *w)
				break
			}
			w.index++
			if w.index >= cons.Size() {
				w.index = 2
			}
			if w.index == end {
				break
			}
		}
	}
	return vars[1] != ord
}

// semanticPropagate pushes the atom of a fully assigned constraint to the
// trail at the maximal decision level of the constraint's variables, with
// the truth value the rational model implies.
func (t *Theory) semanticPropagate(trail *solver.Trail, models solver.Models, cons Constraint) {
	level := 0
	for _, v := range cons.Vars() {
		varLevel, ok := trail.LevelOf(lit.NewVar(v, lit.Rational))
		solver.Invariant(ok, "semantic propagation of %v with unassigned r%d", cons, v)
		if varLevel > level {
			level = varLevel
		}
	}

	atom := cons.Lit().Var()
	models.Bool().SetValue(atom.Ord(), cons.EvalRaw(models.Rat()))
	trail.Propagate(atom, nil, level)
}

// propagateEqualities assigns every unassigned variable whose lower and
// upper bound coincide without strictness or a matching disequality.
func (t *Theory) propagateEqualities(trail *solver.Trail, models solver.Models) {
	for _, ord := range t.toCheck {
		if models.Rat().IsDefined(ord) {
			continue
		}
		vb := t.bounds.At(ord)
		lb := vb.LowerBound(models)
		ub := vb.UpperBound(models)
		if lb == nil || ub == nil || lb.IsStrict() || ub.IsStrict() {
			continue
		}
		if lb.Value().Cmp(ub.Value()) != 0 || vb.Disequality(models, lb.Value()) != nil {
			continue
		}
		models.Rat().SetValue(ord, new(big.Rat).Set(lb.Value()))
		trail.Propagate(lit.NewVar(ord, lit.Rational), nil, trail.DecisionLevel())
	}
}

// propagateBounds deduces new bounds from the constraints of every
// re-bounded or freshly assigned variable, to a fixpoint.
func (t *Theory) propagateBounds(models solver.Models) {
	deduceAll := func(ord int) {
		for _, cons := range t.occur[ord] {
			switch solver.Eval(models.Bool(), cons.Lit()) {
			case tribool.True:
				t.bounds.Deduce(models, cons)
			case tribool.False:
				t.bounds.Deduce(models, cons.Neg())
			}
		}
	}

	for _, ord := range t.fresh {
		deduceAll(ord)
	}
	for {
		changed := t.bounds.Changed()
		if len(changed) == 0 {
			return
		}
		for _, ord := range changed {
			t.toCheck = append(t.toCheck, ord)
			deduceAll(ord)
		}
	}
}

// propagateUnassigned semantically propagates unassigned atoms entailed by
// the current bounds.
func (t *Theory) propagateUnassigned(trail *solver.Trail, models solver.Models) {
	if trail.DecisionLevel() == 0 {
		return
	}
	for _, ord := range t.fresh {
		for _, cons := range t.occur[ord] {
			if models.Bool().IsDefined(cons.Lit().Ord()) {
				continue
			}
			for _, c := range []Constraint{cons, cons.Neg()} {
				if t.bounds.IsImplied(models, c) {
					atom := c.Lit().Var()
					models.Bool().SetValue(atom.Ord(), !c.Lit().Sign())
					trail.Propagate(atom, nil, trail.DecisionLevel())
					break
				}
			}
		}
	}
}

// finish checks every variable whose bounds changed for conflicts and
// propagates implied equalities.
func (t *Theory) finish(trail *solver.Trail, models solver.Models) []*solver.Clause {
	t.toCheck = append(t.toCheck, t.bounds.Changed()...)

	checked := map[int]bool{}
	var conflicts []*solver.Clause
	for _, ord := range t.toCheck {
		if checked[ord] {
			continue
		}
		checked[ord] = true
		if conflict := t.checkBounds(trail, models, ord); conflict != nil {
			conflicts = append(conflicts, conflict)
			if !t.cfg.ReturnAllConflicts {
				break
			}
		}
	}
	t.toCheck = t.toCheck[:0]
	return conflicts
}

// checkBounds detects bound and disequality conflicts on one variable and
// propagates the implied equality when the bounds pin the variable to a
// single admissible value.
func (t *Theory) checkBounds(trail *solver.Trail, models solver.Models, ord int) *solver.Clause {
	vb := t.bounds.At(ord)
	lb := vb.LowerBound(models)
	ub := vb.UpperBound(models)
	if lb == nil || ub == nil {
		return nil
	}

	cmp := lb.Value().Cmp(ub.Value())
	if cmp > 0 || (cmp == 0 && (lb.IsStrict() || ub.IsStrict())) {
		return t.boundConflict(trail, models, lb, ub)
	}
	if cmp != 0 {
		return nil
	}
	if diseq := vb.Disequality(models, lb.Value()); diseq != nil {
		return t.disequalityConflict(trail, models, lb, ub, diseq)
	}

	// the bounds pin the variable: propagate the implied equality
	if !models.Rat().IsDefined(ord) {
		models.Rat().SetValue(ord, new(big.Rat).Set(lb.Value()))
		trail.Propagate(lit.NewVar(ord, lit.Rational), nil, trail.DecisionLevel())
	}
	return nil
}

// boundConflict eliminates the shared variable of an inconsistent pair of
// bounds by Fourier-Motzkin combination. The combined constraint is
// semantically propagated so the conflict clause is false in the Boolean
// model as well.
func (t *Theory) boundConflict(trail *solver.Trail, models solver.Models, lb, ub *Bound) *solver.Clause {
	var premises []lit.Lit
	lower := t.expand(lb, false, &premises)
	upper := t.expand(ub, true, &premises)

	combined := t.combine(trail, models, lower, upper, lb.Ord(), lower.strict || upper.strict)

	lits := make([]lit.Lit, 0, len(premises)+1)
	for _, p := range premises {
		lits = appendUnique(lits, p.Not())
	}
	if !combined.Empty() {
		lits = appendUnique(lits, combined.Lit())
	}
	return solver.NewClause(lits...)
}

// disequalityConflict handles lb = ub = the disequality value with both
// bounds non-strict: the conflict clause combines both bound derivations,
// the disequality and the strict Fourier-Motzkin combination.
func (t *Theory) disequalityConflict(trail *solver.Trail, models solver.Models, lb, ub, diseq *Bound) *solver.Clause {
	var premises []lit.Lit
	lower := t.expand(lb, false, &premises)
	upper := t.expand(ub, true, &premises)
	premises = append(premises, diseq.Reason().Lit())

	combined := t.combine(trail, models, lower, upper, lb.Ord(), true)

	lits := make([]lit.Lit, 0, len(premises)+1)
	for _, p := range premises {
		lits = appendUnique(lits, p.Not())
	}
	if !combined.Empty() {
		lits = appendUnique(lits, combined.Lit())
	}
	return solver.NewClause(lits...)
}

// expand turns a bound record into a <= form inequality over assigned
// variables plus the bounded variable, replaying the record's derivation
// chain. The atoms of every constraint used are appended to premises.
func (t *Theory) expand(b *Bound, wantUpper bool, premises *[]lit.Lit) leq {
	*premises = append(*premises, b.Reason().Lit())

	var form leq
	if b.Reason().Pred() == EQ {
		// an equality provides both directions; orient it
		form = leq{
			vars: append([]int(nil), b.Reason().Vars()...),
			coef: make([]*big.Rat, b.Reason().Size()),
			rhs:  new(big.Rat).Set(b.Reason().RHS()),
		}
		for i, c := range b.Reason().Coef() {
			form.coef[i] = new(big.Rat).Set(c)
		}
		ordCoef := coefOf(form, b.Ord())
		if (ordCoef.Sign() > 0) != wantUpper {
			scaleNeg(form)
		}
	} else {
		form = leForm(b.Reason())
		form.vars = append([]int(nil), form.vars...)
	}

	for _, dep := range b.Deps() {
		c := coefOf(form, dep.Ord())
		if c == nil || c.Sign() == 0 {
			continue
		}
		depForm := t.expand(dep, c.Sign() < 0, premises)
		depCoef := coefOf(depForm, dep.Ord())
		// positive multiplier that cancels dep's variable
		m := new(big.Rat).Quo(c, depCoef)
		m.Neg(m)
		form = addScaled(form, depForm, m)
	}
	return form
}

// combine eliminates ord between a lower-bound form (negative coefficient)
// and an upper-bound form (positive coefficient) and interns the result,
// semantically propagating its atom when it is not yet assigned. A
// combination that cancels to a constant has no atom: the empty constraint
// is returned and the conflict clause carries the premises alone.
func (t *Theory) combine(trail *solver.Trail, models solver.Models, lower, upper leq, ord int, strict bool) Constraint {
	cl := coefOf(lower, ord)
	cu := coefOf(upper, ord)
	solver.Invariant(cl != nil && cl.Sign() < 0, "lower bound form has no negative coefficient for r%d", ord)
	solver.Invariant(cu != nil && cu.Sign() > 0, "upper bound form has no positive coefficient for r%d", ord)

	m := new(big.Rat).Quo(cl, cu)
	m.Neg(m)
	form := addScaled(lower, upper, m)

	if len(form.vars) == 0 {
		cmp := form.rhs.Sign()
		solver.Invariant(cmp < 0 || (cmp == 0 && strict), "bound combination 0 <= %s is not false", form.rhs.RatString())
		return Constraint{}
	}

	pred := LE
	if strict {
		pred = LT
	}
	cons := t.NewConstraint(trail, form.vars, form.coef, pred, form.rhs)
	if !models.Bool().IsDefined(cons.Lit().Ord()) {
		t.semanticPropagate(trail, models, cons)
	}
	return cons
}

// addScaled returns a + m*b with zero coefficients dropped. m must be
// positive so the <= direction is preserved.
func addScaled(a, b leq, m *big.Rat) leq {
	sum := map[int]*big.Rat{}
	for i, v := range a.vars {
		sum[v] = new(big.Rat).Set(a.coef[i])
	}
	term := new(big.Rat)
	for i, v := range b.vars {
		term.Mul(b.coef[i], m)
		if prev, ok := sum[v]; ok {
			prev.Add(prev, term)
		} else {
			sum[v] = new(big.Rat).Set(term)
		}
	}

	result := leq{
		rhs:    new(big.Rat).Mul(b.rhs, m),
		strict: a.strict || b.strict,
	}
	result.rhs.Add(result.rhs, a.rhs)

	vars := make([]int, 0, len(sum))
	for v, c := range sum {
		if c.Sign() != 0 {
			vars = append(vars, v)
		}
	}
	sort.Ints(vars)
	for _, v := range vars {
		result.vars = append(result.vars, v)
		result.coef = append(result.coef, sum[v])
	}
	return result
}

func coefOf(form leq, ord int) *big.Rat {
	for i, v := range form.vars {
		if v == ord {
			return form.coef[i]
		}
	}
	return nil
}

func scaleNeg(form leq) {
	for _, c := range form.coef {
		c.Neg(c)
	}
	form.rhs.Neg(form.rhs)
}

func appendUnique(lits []lit.Lit, l lit.Lit) []lit.Lit {
	for _, other := range lits {
		if other == l {
			return lits
		}
	}
	return append(lits, l)
}

// findInteger searches for the integer of smallest absolute value allowed
// by the bounds, preferring positive values on ties.
func findInteger(models solver.Models, vb *VarBounds) *big.Rat {
	lb := big.NewRat(minDecisionValue, 1)
	ub := big.NewRat(maxDecisionValue, 1)
	if lower := vb.LowerBound(models); lower != nil {
		lb.Set(lower.Value())
	}
	if upper := vb.UpperBound(models); upper != nil {
		ub.Set(upper.Value())
	}

	absBound := new(big.Rat).Abs(lb)
	if abs := new(big.Rat).Abs(ub); abs.Cmp(absBound) > 0 {
		absBound.Set(abs)
	}

	value := new(big.Rat)
	one := big.NewRat(1, 1)
	for k := new(big.Rat); k.Cmp(absBound) <= 0; k.Add(k, one) {
		value.Set(k)
		if lb.Cmp(value) <= 0 && value.Cmp(ub) <= 0 && vb.IsAllowed(models, value) {
			return value
		}
		value.Neg(k)
		if lb.Cmp(value) <= 0 && value.Cmp(ub) <= 0 && vb.IsAllowed(models, value) {
			return value
		}
	}
	return nil
}

const (
	minDecisionValue = -1 << 20
	maxDecisionValue = 1 << 20
)
