package order

import (
	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/solver"
)

// Activity is a dynamic variable order for Boolean variables: a max-heap
// keyed by an exponentially decaying activity score, bumped for every
// variable that takes part in conflict resolution. Rational variables are
// picked first-unassigned, after the Boolean variables.
type Activity struct {
	solver.BaseListener

	// activity is a heuristic measurement of the activity of a variable.
	activity []float64
	// varInc is the variable activity increment.
	varInc float64
	// varDecay is the decay factor applied to varInc.
	varDecay float64

	// heap of Boolean variable ordinals and its position index
	vars    []int
	indices []int
}

// NewActivity returns an activity order with the decay constant from the
// configuration.
func NewActivity(cfg *config.Config) *Activity {
	return &Activity{
		varInc:   1.0,
		varDecay: 1 / cfg.VarDecay,
	}
}

// OnVariableResize grows the activity table and the heap.
func (o *Activity) OnVariableResize(typ lit.Type, numVars int) {
	if typ != lit.Boolean {
		return
	}
	for len(o.activity) < numVars {
		ord := len(o.activity)
		o.activity = append(o.activity, 0)
		o.indices = append(o.indices, len(o.vars))
		o.vars = append(o.vars, ord)
		o.up(len(o.vars) - 1)
	}
}

// OnInit restores the heap order of the variables currently in the heap.
// Variables removed by earlier picks are not re-inserted.
func (o *Activity) OnInit(db *solver.Database, trail *solver.Trail) {
	n := len(o.vars)
	for i := n/2 - 1; i >= 0; i-- {
		o.down(i, n)
	}
}

// OnBeforeBacktrack returns the variables above level to the heap.
func (o *Activity) OnBeforeBacktrack(db *solver.Database, trail *solver.Trail, level int) {
	for l := trail.DecisionLevel(); l > level; l-- {
		for _, a := range trail.Assigned(l) {
			if a.Var.Type() == lit.Boolean {
				o.push(a.Var.Ord())
			}
		}
	}
}

// OnRestart returns every assigned variable to the heap.
func (o *Activity) OnRestart(db *solver.Database, trail *solver.Trail) {
	o.OnBeforeBacktrack(db, trail, -1)
}

// OnConflictResolved bumps the activity of every variable of the resolved
// clause.
func (o *Activity) OnConflictResolved(db *solver.Database, trail *solver.Trail, other *solver.Clause) {
	for _, l := range other.Lits() {
		o.bump(l.Ord())
	}
}

// OnLearnedClause decays the activity increment.
func (o *Activity) OnLearnedClause(db *solver.Database, trail *solver.Trail, learned *solver.Clause) {
	o.varInc *= o.varDecay
}

// Pick implements the VarOrder interface.
func (o *Activity) Pick(db *solver.Database, trail *solver.Trail) (lit.Var, bool) {
	model := trail.BoolModel()
	for len(o.vars) > 0 {
		v := o.pop()
		if !model.IsDefined(v) {
			return lit.NewVar(v, lit.Boolean), true
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

// IsBefore implements the VarOrder interface. Higher activity comes first.
func (o *Activity) IsBefore(a, b lit.Var) bool {
	if a.Type() != b.Type() {
		return a.Type() < b.Type()
	}
	if a.Type() == lit.Boolean && o.activity[a.Ord()] != o.activity[b.Ord()] {
		return o.activity[a.Ord()] > o.activity[b.Ord()]
	}
	return a.Ord() < b.Ord()
}

// bump increases a variable's activity and rescales on overflow.
func (o *Activity) bump(ord int) {
	if ord >= len(o.activity) {
		return
	}
	o.activity[ord] += o.varInc
	if o.activity[ord] > 1e100 {
		for i := range o.activity {
			o.activity[i] *= 1e-100
		}
		o.varInc *= 1e-100
	}
	o.fix(ord)
}

// push returns a variable to the heap.
func (o *Activity) push(ord int) {
	if o.indices[ord] != -1 {
		return
	}
	o.indices[ord] = len(o.vars)
	o.vars = append(o.vars, ord)
	o.up(len(o.vars) - 1)
}

// fix restores heap order around a variable whose activity changed.
func (o *Activity) fix(ord int) {
	i := o.indices[ord]
	if i == -1 {
		return
	}
	o.down(i, len(o.vars))
	o.up(i)
}

// pop removes the most active variable from the heap.
func (o *Activity) pop() int {
	n := len(o.vars) - 1
	o.swap(0, n)
	o.down(0, n)
	v := o.vars[n]
	o.vars = o.vars[:n]
	o.indices[v] = -1
	return v
}

func (o *Activity) less(i, j int) bool {
	return o.activity[o.vars[i]] > o.activity[o.vars[j]]
}

func (o *Activity) swap(i, j int) {
	k, l := o.vars[i], o.vars[j]
	o.vars[i], o.vars[j] = l, k
	o.indices[k], o.indices[l] = j, i
}

// up percolates a heap element up, as adopted from Go's container/heap
// package.
func (o *Activity) up(j int) {
	for {
		i := (j - 1) / 2
		if i == j || !o.less(j, i) {
			break
		}
		o.swap(i, j)
		j = i
	}
}

// down percolates a heap element down, as adopted from Go's container/heap
// package.
func (o *Activity) down(i0, n int) {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && o.less(j2, j1) {
			j = j2
		}
		if !o.less(j, i) {
			break
		}
		o.swap(i, j)
		i = j
	}
}
