package solver

import (
	"sort"

	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/tribool"
)

// Analysis derives conflict clauses suitable for backtracking by first-UIP
// resolution over Boolean reasons.
type Analysis struct {
	// current conflict clause
	conflict map[lit.Lit]bool
	// the highest decision level in the current conflict clause
	topLevel int
	// number of literals at topLevel in the current conflict clause
	numTopLevel int
}

// NewAnalysis returns an analysis engine.
func NewAnalysis() *Analysis {
	return &Analysis{conflict: map[lit.Lit]bool{}}
}

// Analyze resolves the conflict clause into a clause suitable for
// backtracking. Literals in the returned clause are ordered by decision
// level from the highest to the smallest; the second value is the level to
// backtrack to. onResolve is called for each clause resolved with the
// current conflict and may be nil.
func (a *Analysis) Analyze(trail *Trail, conflict *Clause, onResolve func(*Clause)) (*Clause, int) {
	return a.run(trail, conflict, onResolve, nil, false)
}

// AnalyzeSkip is Analyze except that entries whose variable is in skip are
// never resolved; scanning continues past them.
func (a *Analysis) AnalyzeSkip(trail *Trail, conflict *Clause, skip []lit.Var, onResolve func(*Clause)) (*Clause, int) {
	return a.run(trail, conflict, onResolve, skip, false)
}

// AnalyzeFinal is Analyze except that the derivation stops as soon as the
// scan reaches an entry whose variable is in vars; the current conflict is
// returned as the final explanation clause.
func (a *Analysis) AnalyzeFinal(trail *Trail, conflict *Clause, vars []lit.Var, onResolve func(*Clause)) (*Clause, int) {
	return a.run(trail, conflict, onResolve, vars, true)
}

func (a *Analysis) run(trail *Trail, conflict *Clause, onResolve func(*Clause), vars []lit.Var, stopAtVars bool) (*Clause, int) {
	model := trail.BoolModel()
	Invariant(EvalClause(model, conflict) == tribool.False, "conflict clause is not false in the model")

	a.init(trail, conflict)

	assigned := trail.Assigned(a.topLevel)
	for i := len(assigned) - 1; !a.canBacktrack() && i >= 0; i-- {
		entry := assigned[i]
		if containsVar(vars, entry.Var) {
			if stopAtVars {
				return a.finish(trail)
			}
			continue
		}
		level, _ := trail.LevelOf(entry.Var)
		if entry.Var.Type() != lit.Boolean || entry.Reason == nil || level != a.topLevel {
			continue
		}
		// the falsified literal of the entry's variable
		l := lit.New(entry.Var.Ord(), model.Value(entry.Var.Ord()))
		if a.canResolve(l) {
			if onResolve != nil {
				onResolve(entry.Reason)
			}
			a.resolve(trail, entry.Reason, l)
		}
	}
	return a.finish(trail)
}

// canBacktrack reports whether the current conflict clause asserts after
// backtracking: exactly one literal at the top level and at least one more
// below it.
func (a *Analysis) canBacktrack() bool {
	return a.numTopLevel == 1 && len(a.conflict) > 1
}

// canResolve reports whether the current conflict clause contains l.
func (a *Analysis) canResolve(l lit.Lit) bool {
	return a.conflict[l]
}

func (a *Analysis) init(trail *Trail, conflict *Clause) {
	clear(a.conflict)
	a.topLevel = 0
	for _, l := range conflict.Lits() {
		level, ok := trail.LevelOf(l.Var())
		Invariant(ok, "conflict literal %v is unassigned", l)
		if level > a.topLevel {
			a.topLevel = level
		}
	}
	a.numTopLevel = 0
	for _, l := range conflict.Lits() {
		if a.conflict[l] {
			continue
		}
		a.conflict[l] = true
		if level, _ := trail.LevelOf(l.Var()); level == a.topLevel {
			a.numTopLevel++
		}
	}
}

// resolve replaces the current conflict with its resolvent with other on l.
func (a *Analysis) resolve(trail *Trail, other *Clause, l lit.Lit) {
	delete(a.conflict, l)
	a.numTopLevel--
	notL := l.Not()
	for _, q := range other.Lits() {
		if q == notL || a.conflict[q] {
			continue
		}
		a.conflict[q] = true
		if level, _ := trail.LevelOf(q.Var()); level == a.topLevel {
			a.numTopLevel++
		}
	}
}

// finish extracts the conflict clause with literals sorted by descending
// decision level and computes the asserting level.
func (a *Analysis) finish(trail *Trail) (*Clause, int) {
	lits := make([]lit.Lit, 0, len(a.conflict))
	for l := range a.conflict {
		lits = append(lits, l)
	}
	sort.Slice(lits, func(i, j int) bool {
		li, _ := trail.LevelOf(lits[i].Var())
		lj, _ := trail.LevelOf(lits[j].Var())
		if li != lj {
			return li > lj
		}
		return lits[i] < lits[j]
	})

	level := 0
	if len(lits) > 1 {
		top, _ := trail.LevelOf(lits[0].Var())
		level, _ = trail.LevelOf(lits[1].Var())
		if level == top {
			// semantic split: both top literals must be unassigned after
			// backtracking, so the clause asserts one level below them
			level = top - 1
			if level < 0 {
				level = 0
			}
		}
	}
	return NewClause(lits...), level
}

func containsVar(vars []lit.Var, v lit.Var) bool {
	for _, other := range vars {
		if other == v {
			return true
		}
	}
	return false
}
