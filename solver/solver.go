package solver

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
)

// Result is the outcome of a Check.
type Result int

const (
	// Unknown is returned on cancellation.
	Unknown Result = iota
	// Sat means the asserted clauses are satisfiable.
	Sat
	// Unsat means the asserted clauses are unsatisfiable.
	Unsat
)

// String implements the Stringer interface.
func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Solver runs the MCSat search loop: propagate to fixpoint, analyze
// conflicts, learn, backtrack or restart, decide. It owns the database, the
// trail, the event dispatcher and the theory combination.
type Solver struct {
	cfg    *config.Config
	logger *logrus.Logger

	db          *Database
	trail       *Trail
	dispatcher  *Dispatcher
	combination *Combination
	analysis    *Analysis
	subsumption *Subsumption

	order   VarOrder
	restart RestartPolicy

	// statistics
	totalConflicts       int
	totalConflictClauses int
	totalLearnedClauses  int
	totalRestarts        int
	totalDecisions       int
}

// New returns a solver with no theories, variable order or restart policy.
func New(cfg *config.Config) *Solver {
	s := &Solver{
		cfg:         cfg,
		logger:      cfg.Logger,
		db:          NewDatabase(),
		dispatcher:  NewDispatcher(),
		combination: NewCombination(),
		analysis:    NewAnalysis(),
		subsumption: NewSubsumption(),
	}
	s.trail = NewTrail(s.dispatcher)
	s.dispatcher.Add(s.subsumption)
	s.dispatcher.Add(s.combination)
	return s
}

// DB returns the clause database used by Check.
func (s *Solver) DB() *Database {
	return s.db
}

// Trail returns the current trail (partial model).
func (s *Solver) Trail() *Trail {
	return s.trail
}

// AddTheory registers a theory with the theory combination.
func (s *Solver) AddTheory(t Theory) {
	s.combination.Add(t)
}

// Theories returns the registered theories.
func (s *Solver) Theories() []Theory {
	return s.combination.Theories()
}

// SetVariableOrder installs the variable-order heuristic. An order that
// also implements Listener receives solver events.
func (s *Solver) SetVariableOrder(o VarOrder) {
	if l, ok := s.order.(Listener); ok {
		s.dispatcher.Remove(l)
	}
	s.order = o
	if l, ok := o.(Listener); ok {
		s.dispatcher.Add(l)
	}
}

// SetRestartPolicy installs the restart policy. A policy that also
// implements Listener receives solver events.
func (s *Solver) SetRestartPolicy(p RestartPolicy) {
	if l, ok := s.restart.(Listener); ok {
		s.dispatcher.Remove(l)
	}
	s.restart = p
	if l, ok := p.(Listener); ok {
		s.dispatcher.Add(l)
	}
}

// NumConflicts returns the number of conflicts in the last Check.
func (s *Solver) NumConflicts() int { return s.totalConflicts }

// NumConflictClauses returns the number of analyzed conflict clauses in the
// last Check.
func (s *Solver) NumConflictClauses() int { return s.totalConflictClauses }

// NumLearnedClauses returns the number of learned clauses in the last Check.
func (s *Solver) NumLearnedClauses() int { return s.totalLearnedClauses }

// NumRestarts returns the number of restarts in the last Check.
func (s *Solver) NumRestarts() int { return s.totalRestarts }

// NumDecisions returns the number of decisions in the last Check.
func (s *Solver) NumDecisions() int { return s.totalDecisions }

// Check decides satisfiability of the asserted clauses. It returns Unknown
// when ctx is cancelled. A violated internal invariant is returned as an
// error, distinct from Unknown.
func (s *Solver) Check(ctx context.Context) (result Result, err error) {
	defer s.recoverInvariant(&result, &err)
	s.init()

	for {
		if ctx != nil && ctx.Err() != nil {
			return Unknown, nil
		}
		conflicts := s.combination.Propagate(s.db, s.trail)
		if len(conflicts) > 0 {
			if s.trail.DecisionLevel() == 0 {
				return Unsat, nil
			}
			learned, level := s.analyzeConflicts(conflicts, nil)
			if hasEmptyClause(learned) {
				return Unsat, nil
			}
			clauses := s.learn(learned)
			if s.restart != nil && s.restart.ShouldRestart() {
				s.doRestart()
			} else if !s.backtrackWith(clauses, level) {
				// the learned clauses are still false at the asserting
				// level: their literals are ground consequences
				return Unsat, nil
			}
		} else {
			v, ok := s.pickVariable()
			if !ok {
				return Sat, nil
			}
			s.decide(v)
		}
	}
}

// CheckWithModel is Check except that at every decision point an unassigned
// assumed variable is decided to its assumed value first. On Unsat it also
// returns the final conflict clauses over the assumed variables, an
// explanation of why the assumption is inconsistent.
func (s *Solver) CheckWithModel(ctx context.Context, assumed map[lit.Var]Value) (result Result, finals []*Clause, err error) {
	defer s.recoverInvariant(&result, &err)
	s.init()

	vars := make([]lit.Var, 0, len(assumed))
	for v := range assumed {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool {
		if vars[i].Type() != vars[j].Type() {
			return vars[i].Type() < vars[j].Type()
		}
		return vars[i].Ord() < vars[j].Ord()
	})

	for {
		if ctx != nil && ctx.Err() != nil {
			return Unknown, nil, nil
		}
		conflicts := s.combination.Propagate(s.db, s.trail)
		if len(conflicts) > 0 {
			if s.trail.DecisionLevel() == 0 {
				return Unsat, nil, nil
			}
			learned, level := s.analyzeConflicts(conflicts, vars)
			if hasEmptyClause(learned) {
				finals, _ = s.analyzeFinal(conflicts, vars)
				return Unsat, finals, nil
			}
			clauses := s.learn(learned)
			if s.restart != nil && s.restart.ShouldRestart() {
				s.doRestart()
			} else if !s.backtrackWith(clauses, level) {
				// the learned clauses are still false after backtracking
				finals, _ = s.analyzeFinal(clauses, vars)
				return Unsat, finals, nil
			}
		} else {
			if v, ok := s.pickAssumed(vars); ok {
				s.totalDecisions++
				s.combination.DecideToValue(s.trail, v, assumed[v])
				continue
			}
			v, ok := s.pickVariable()
			if !ok {
				return Sat, nil, nil
			}
			s.decide(v)
		}
	}
}

// init resets solver state for a new search and replays variable counts
// into all listeners.
func (s *Solver) init() {
	for typ := lit.Type(0); typ < lit.NumTypes; typ++ {
		if n := s.trail.NumVars(typ); n > 0 {
			s.dispatcher.OnVariableResize(typ, n)
		}
	}
	s.totalConflicts = 0
	s.totalConflictClauses = 0
	s.totalLearnedClauses = 0
	s.totalRestarts = 0
	s.totalDecisions = 0
	s.dispatcher.OnInit(s.db, s.trail)
}

// analyzeConflicts derives a backtracking clause from each conflict and
// keeps the ones at the lowest asserting level. When skip is non-nil the
// skipped variables are never resolved.
func (s *Solver) analyzeConflicts(conflicts []*Clause, skip []lit.Var) ([]*Clause, int) {
	s.totalConflicts++
	onResolve := func(other *Clause) {
		s.dispatcher.OnConflictResolved(s.db, s.trail, other)
	}

	var learned []*Clause
	level := int(^uint(0) >> 1)
	for _, conflict := range conflicts {
		s.totalConflictClauses++

		var clause *Clause
		var clauseLevel int
		if skip == nil {
			clause, clauseLevel = s.analysis.Analyze(s.trail, conflict, onResolve)
		} else {
			clause, clauseLevel = s.analysis.AnalyzeSkip(s.trail, conflict, skip, onResolve)
		}
		if clause.Len() > 0 {
			s.subsumption.Minimize(s.trail, clause)
		}

		if clauseLevel < level {
			level = clauseLevel
			learned = learned[:0]
			learned = append(learned, clause)
		} else if clauseLevel == level {
			learned = append(learned, clause)
		}
	}
	return learned, level
}

// analyzeFinal extracts explanation clauses over the assumed variables.
func (s *Solver) analyzeFinal(conflicts []*Clause, vars []lit.Var) ([]*Clause, int) {
	s.totalConflicts++
	onResolve := func(other *Clause) {
		s.dispatcher.OnConflictResolved(s.db, s.trail, other)
	}

	var learned []*Clause
	level := int(^uint(0) >> 1)
	for _, conflict := range conflicts {
		s.totalConflictClauses++
		clause, clauseLevel := s.analysis.AnalyzeFinal(s.trail, conflict, vars, onResolve)
		if clause.Len() > 0 {
			s.subsumption.Minimize(s.trail, clause)
		}
		if clauseLevel < level {
			level = clauseLevel
			learned = learned[:0]
			learned = append(learned, clause)
		} else if clauseLevel == level {
			learned = append(learned, clause)
		}
	}
	return learned, level
}

// learn deduplicates the clauses, keeps UIP clauses over semantic-split
// clauses, adds the survivors to the database and fans out the event.
func (s *Solver) learn(clauses []*Clause) []*Clause {
	sort.Slice(clauses, func(i, j int) bool {
		return clauseLess(clauses[i], clauses[j])
	})
	deduped := clauses[:0]
	for _, c := range clauses {
		if len(deduped) == 0 || !clauseEqual(deduped[len(deduped)-1], c) {
			deduped = append(deduped, c)
		}
	}

	// prefer UIP clauses (propagations) over semantic-split clauses
	// (decisions)
	hasUIP := false
	for _, c := range deduped {
		if !s.isSemanticSplit(c) {
			hasUIP = true
			break
		}
	}
	if hasUIP {
		kept := deduped[:0]
		for _, c := range deduped {
			if !s.isSemanticSplit(c) {
				kept = append(kept, c)
			}
		}
		deduped = kept
	}

	learned := make([]*Clause, 0, len(deduped))
	for _, c := range deduped {
		s.totalLearnedClauses++
		ref := s.db.LearnClause(c)
		s.dispatcher.OnLearnedClause(s.db, s.trail, ref)
		learned = append(learned, ref)
	}
	return learned
}

// isSemanticSplit reports whether the clause has two literals at the same
// top decision level.
func (s *Solver) isSemanticSplit(c *Clause) bool {
	if c.Len() < 2 {
		return false
	}
	l0, ok0 := s.trail.LevelOf(c.At(0).Var())
	l1, ok1 := s.trail.LevelOf(c.At(1).Var())
	return ok0 && ok1 && l0 == l1
}

// backtrackWith returns the trail to level and either propagates the
// asserting literals (UIP) or decides one top literal (semantic split). A
// decision is always backtracked in the split case; this is what guarantees
// MCSat termination. The return value is false when every learned clause
// remained false at the asserting level, which makes the instance unsat.
func (s *Solver) backtrackWith(clauses []*Clause, level int) bool {
	s.dispatcher.OnBeforeBacktrack(s.db, s.trail, level)
	model := s.trail.BoolModel()

	if s.isSemanticSplit(clauses[0]) {
		// pick the earliest top-level literal in the variable order
		first := clauses[0]
		topLevel, _ := s.trail.LevelOf(first.At(0).Var())
		top := first.At(0)
		for _, l := range first.Lits()[1:] {
			if lv, _ := s.trail.LevelOf(l.Var()); lv != topLevel {
				break
			}
			if s.order != nil && s.order.IsBefore(l.Var(), top.Var()) {
				top = l
			}
		}

		s.trail.Backtrack(level)
		if model.IsDefined(top.Ord()) {
			// the split literals survive at the ground level; they are
			// semantic consequences and the clause stays false
			return false
		}
		model.SetValue(top.Ord(), !top.Sign())
		s.trail.Decide(top.Var())
		return true
	}

	s.trail.Backtrack(level)

	// propagate the asserting literal of every learned clause
	progress := false
	for _, c := range clauses {
		if !model.IsDefined(c.At(0).Ord()) {
			model.SetValue(c.At(0).Ord(), !c.At(0).Sign())
			s.trail.Propagate(c.At(0).Var(), c, level)
			progress = true
		} else if Eval(model, c.At(0)).True() {
			progress = true
		}
	}
	return progress
}

func (s *Solver) doRestart() {
	s.dispatcher.OnBeforeBacktrack(s.db, s.trail, 0)
	s.totalRestarts++
	s.trail.Clear()
	s.dispatcher.OnRestart(s.db, s.trail)
	s.logger.WithField("restarts", s.totalRestarts).Debug("restarted")
}

func (s *Solver) pickVariable() (lit.Var, bool) {
	Invariant(s.order != nil, "no variable order is set")
	return s.order.Pick(s.db, s.trail)
}

func (s *Solver) pickAssumed(vars []lit.Var) (lit.Var, bool) {
	for _, v := range vars {
		defined := false
		if v.Type() == lit.Boolean {
			defined = s.trail.BoolModel().IsDefined(v.Ord())
		} else {
			defined = s.trail.RatModel().IsDefined(v.Ord())
		}
		if !defined {
			return v, true
		}
	}
	return lit.Var{}, false
}

func (s *Solver) decide(v lit.Var) {
	s.totalDecisions++
	s.combination.Decide(s.db, s.trail, v)
}

func (s *Solver) recoverInvariant(result *Result, err *error) {
	if r := recover(); r != nil {
		if ie, ok := r.(*InvariantError); ok {
			*result = Unknown
			*err = ie
			return
		}
		panic(r)
	}
}

func hasEmptyClause(clauses []*Clause) bool {
	for _, c := range clauses {
		if c.Len() == 0 {
			return true
		}
	}
	return false
}

func clauseLess(a, b *Clause) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	for i := 0; i < a.Len(); i++ {
		if a.At(i) != b.At(i) {
			return a.At(i) < b.At(i)
		}
	}
	return false
}

func clauseEqual(a, b *Clause) bool {
	return !clauseLess(a, b) && !clauseLess(b, a)
}
