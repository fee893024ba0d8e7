package solver

import (
	"math/big"

	"github.com/stepanhen/yaga/lit"
)

// Assignment is one trail entry: an assigned variable together with the
// clause that propagated it. Reason is nil for decisions and semantically
// propagated variables.
type Assignment struct {
	Var    lit.Var
	Reason *Clause
}

// Trail is the totally ordered assignment history shared by all theories.
// Entries are grouped into decision levels; level 0 is the ground level.
// The per-type models hold the values, the trail holds the order, the
// levels and the reasons.
type Trail struct {
	dispatcher *Dispatcher

	levels [][]Assignment
	// assignments in insertion-time order, across levels
	log []Assignment

	boolModel *Model[bool]
	ratModel  *Model[*big.Rat]

	// decision level per variable ordinal, -1 when unassigned
	varLevel [lit.NumTypes][]int
}

// NewTrail returns an empty trail with one (ground) decision level. The
// dispatcher receives variable-resize events and may be nil.
func NewTrail(dispatcher *Dispatcher) *Trail {
	return &Trail{
		dispatcher: dispatcher,
		levels:     make([][]Assignment, 1),
		boolModel:  NewModel[bool](),
		ratModel:   NewModel[*big.Rat](),
	}
}

// BoolModel returns the model of Boolean variables.
func (t *Trail) BoolModel() *Model[bool] {
	return t.boolModel
}

// RatModel returns the model of rational variables.
func (t *Trail) RatModel() *Model[*big.Rat] {
	return t.ratModel
}

// Models returns both models.
func (t *Trail) Models() Models {
	return Models{b: t.boolModel, r: t.ratModel}
}

// NumVars returns the number of variables of the given type.
func (t *Trail) NumVars(typ lit.Type) int {
	if typ == lit.Boolean {
		return t.boolModel.NumVars()
	}
	return t.ratModel.NumVars()
}

// Resize makes room for n variables of the given type and broadcasts the
// resize to all registered listeners.
func (t *Trail) Resize(typ lit.Type, n int) {
	if typ == lit.Boolean {
		t.boolModel.Resize(n)
	} else {
		t.ratModel.Resize(n)
	}
	for len(t.varLevel[typ]) < n {
		t.varLevel[typ] = append(t.varLevel[typ], -1)
	}
	if t.dispatcher != nil {
		t.dispatcher.OnVariableResize(typ, n)
	}
}

// DecisionLevel returns the current decision level.
func (t *Trail) DecisionLevel() int {
	return len(t.levels) - 1
}

// Empty returns true if there are no assignments on the trail.
func (t *Trail) Empty() bool {
	return len(t.log) == 0
}

// Size returns the total number of assignments on the trail.
func (t *Trail) Size() int {
	return len(t.log)
}

// Assigned returns the assignments at the given decision level in
// assignment order.
func (t *Trail) Assigned(level int) []Assignment {
	return t.levels[level]
}

// Log returns all assignments in insertion-time order.
func (t *Trail) Log() []Assignment {
	return t.log
}

// LevelOf returns the decision level at which the variable was assigned,
// or ok=false if it is unassigned.
func (t *Trail) LevelOf(v lit.Var) (int, bool) {
	if v.Ord() >= len(t.varLevel[v.Type()]) {
		return 0, false
	}
	level := t.varLevel[v.Type()][v.Ord()]
	if level < 0 {
		return 0, false
	}
	return level, true
}

// ReasonOf returns the reason clause of the variable, or nil if the
// variable is unassigned, decided, or semantically propagated.
func (t *Trail) ReasonOf(v lit.Var) *Clause {
	level, ok := t.LevelOf(v)
	if !ok {
		return nil
	}
	for _, a := range t.levels[level] {
		if a.Var == v {
			return a.Reason
		}
	}
	return nil
}

// Decide opens a new decision level with v as its decision. The caller has
// already set the variable's value in its model.
func (t *Trail) Decide(v lit.Var) {
	Invariant(t.defined(v), "decided variable %v has no model value", v)
	Invariant(t.varLevel[v.Type()][v.Ord()] < 0, "variable %v is already on the trail", v)
	t.levels = append(t.levels, nil)
	t.push(v, nil, t.DecisionLevel())
}

// Propagate appends v to the given decision level with the given reason.
// The level may be below the current decision level for semantic
// propagations. The caller has already set the variable's value.
func (t *Trail) Propagate(v lit.Var, reason *Clause, level int) {
	Invariant(t.defined(v), "propagated variable %v has no model value", v)
	Invariant(t.varLevel[v.Type()][v.Ord()] < 0, "variable %v is already on the trail", v)
	Invariant(level <= t.DecisionLevel(), "propagation level %d is above decision level %d", level, t.DecisionLevel())
	t.push(v, reason, level)
}

// Backtrack drops all assignments above the given decision level and clears
// their model values.
func (t *Trail) Backtrack(level int) {
	for l := t.DecisionLevel(); l > level; l-- {
		for _, a := range t.levels[l] {
			t.clear(a.Var)
		}
	}
	t.levels = t.levels[:level+1]

	kept := t.log[:0]
	for _, a := range t.log {
		if t.varLevel[a.Var.Type()][a.Var.Ord()] >= 0 {
			kept = append(kept, a)
		}
	}
	t.log = kept
}

// Clear removes all assignments, including the ground level.
func (t *Trail) Clear() {
	for _, level := range t.levels {
		for _, a := range level {
			t.clear(a.Var)
		}
	}
	t.levels = t.levels[:1]
	t.levels[0] = nil
	t.log = t.log[:0]
}

func (t *Trail) push(v lit.Var, reason *Clause, level int) {
	a := Assignment{Var: v, Reason: reason}
	t.levels[level] = append(t.levels[level], a)
	t.log = append(t.log, a)
	t.varLevel[v.Type()][v.Ord()] = level
}

func (t *Trail) clear(v lit.Var) {
	t.varLevel[v.Type()][v.Ord()] = -1
	if v.Type() == lit.Boolean {
		t.boolModel.Clear(v.Ord())
	} else {
		t.ratModel.Clear(v.Ord())
	}
}

func (t *Trail) defined(v lit.Var) bool {
	if v.Type() == lit.Boolean {
		return t.boolModel.IsDefined(v.Ord())
	}
	return t.ratModel.IsDefined(v.Ord())
}
