package solver

import (
	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/tribool"
)

// watchedClause is a clause seen from one of its two watched literals.
// index is a rotating cursor into the replacement candidates [2, len).
type watchedClause struct {
	clause *Clause
	index  int
}

func newWatchedClause(c *Clause) watchedClause {
	index := 2
	if c.Len() < 2 {
		index = c.Len() - 1
	}
	return watchedClause{clause: c, index: index}
}

// BoolTheory performs Boolean constraint propagation with two watched
// literals per clause.
type BoolTheory struct {
	BaseListener
	Cursor

	cfg *config.Config

	// watch lists indexed by the watched literal
	watched [][]watchedClause
	// cached polarity per Boolean variable
	phase []bool
}

// NewBoolTheory returns a Boolean theory with the given configuration.
func NewBoolTheory(cfg *config.Config) *BoolTheory {
	return &BoolTheory{cfg: cfg}
}

// OnVariableResize allocates watch lists and the phase cache.
func (b *BoolTheory) OnVariableResize(typ lit.Type, numVars int) {
	if typ != lit.Boolean {
		return
	}
	for len(b.watched) < 2*numVars {
		b.watched = append(b.watched, nil)
	}
	for len(b.phase) < numVars {
		b.phase = append(b.phase, true)
	}
}

// OnBeforeBacktrack caches the polarity of every variable about to be
// dropped from the trail.
func (b *BoolTheory) OnBeforeBacktrack(db *Database, trail *Trail, level int) {
	model := trail.BoolModel()
	for l := trail.DecisionLevel(); l > level; l-- {
		for _, a := range trail.Assigned(l) {
			if a.Var.Type() == lit.Boolean {
				b.phase[a.Var.Ord()] = model.Value(a.Var.Ord())
			}
		}
	}
	b.Rewind(trail, level)
}

// OnLearnedClause installs watches on the first two positions of the
// learned clause. The caller guarantees position 0 holds the asserting
// literal.
func (b *BoolTheory) OnLearnedClause(db *Database, trail *Trail, learned *Clause) {
	Invariant(learned.Len() > 0, "learned clause is empty")
	b.watch(newWatchedClause(learned))
}

// OnInit resets the processed-trail cursor.
func (b *BoolTheory) OnInit(db *Database, trail *Trail) {
	b.Reset()
}

// OnRestart resets the processed-trail cursor.
func (b *BoolTheory) OnRestart(db *Database, trail *Trail) {
	b.Reset()
}

// Propagate runs BCP to fixpoint or to the first conflict. The cursor only
// advances past an assignment once its watch lists are fully processed, so
// a conflict leaves the unprocessed suffix for the next call.
func (b *BoolTheory) Propagate(db *Database, trail *Trail) []*Clause {
	model := trail.BoolModel()
	if conflict := b.initialize(db, trail); conflict != nil {
		return []*Clause{conflict}
	}

	for {
		a, ok := b.Peek(trail)
		if !ok {
			return nil
		}
		if a.Var.Type() == lit.Boolean {
			falsifiedLit := lit.New(a.Var.Ord(), model.Value(a.Var.Ord()))
			if conflict := b.falsified(trail, model, falsifiedLit); conflict != nil {
				return []*Clause{conflict}
			}
		}
		b.Advance()
	}
}

// Decide assigns a polarity to a Boolean variable according to the phase
// strategy and pushes the decision to the trail.
func (b *BoolTheory) Decide(db *Database, trail *Trail, v lit.Var) {
	if v.Type() != lit.Boolean {
		return
	}
	model := trail.BoolModel()
	switch b.cfg.BoolPhase {
	case config.PhasePositive:
		model.SetValue(v.Ord(), true)
	case config.PhaseNegative:
		model.SetValue(v.Ord(), false)
	default:
		model.SetValue(v.Ord(), b.phase[v.Ord()])
	}
	trail.Decide(v)
}

// DecideToValue decides a Boolean variable to an assumed value.
func (b *BoolTheory) DecideToValue(trail *Trail, v lit.Var, value Value) {
	bv, ok := value.(BoolValue)
	if v.Type() != lit.Boolean || !ok {
		return
	}
	trail.BoolModel().SetValue(v.Ord(), bool(bv))
	trail.Decide(v)
}

// initialize rebuilds the watch lists when the trail is empty and assigns
// the unit clauses of the database at the ground level.
func (b *BoolTheory) initialize(db *Database, trail *Trail) *Clause {
	if !trail.Empty() {
		return nil
	}
	for i := range b.watched {
		b.watched[i] = nil
	}
	b.Reset()

	for _, list := range [][]*Clause{db.Asserted(), db.Learned()} {
		for _, c := range list {
			Invariant(c.Len() > 0, "empty clause in the database")
			b.watch(newWatchedClause(c))
			if c.Len() == 1 {
				if conflict := b.assign(trail, c.At(0), c); conflict != nil {
					return conflict
				}
			}
		}
	}
	return nil
}

// watch installs the clause in the watch lists of its first two literals.
func (b *BoolTheory) watch(w watchedClause) {
	b.watched[w.clause.At(0).Index()] = append(b.watched[w.clause.At(0).Index()], w)
	if w.clause.Len() > 1 {
		b.watched[w.clause.At(1).Index()] = append(b.watched[w.clause.At(1).Index()], w)
	}
}

// assign makes l true with the given reason. It returns the reason as a
// conflict when l is already false.
func (b *BoolTheory) assign(trail *Trail, l lit.Lit, reason *Clause) *Clause {
	switch Eval(trail.BoolModel(), l) {
	case tribool.True:
		return nil
	case tribool.False:
		return reason
	}
	trail.BoolModel().SetValue(l.Ord(), !l.Sign())
	trail.Propagate(l.Var(), reason, trail.DecisionLevel())
	return nil
}

// falsified migrates the watches of a freshly falsified literal. Clauses
// that become unit propagate their remaining literal; a clause that becomes
// false is returned as a conflict.
func (b *BoolTheory) falsified(trail *Trail, model *Model[bool], falsifiedLit lit.Lit) *Clause {
	watchlist := b.watched[falsifiedLit.Index()]
	for i := 0; i < len(watchlist); {
		w := &watchlist[i]
		clause := w.clause

		if clause.Len() == 1 {
			return clause
		}

		// move the falsified literal to position 1
		if clause.At(0) == falsifiedLit {
			clause.Swap(0, 1)
		}

		// a satisfied clause keeps its watches
		if Eval(model, clause.At(0)).True() {
			i++
			continue
		}

		if b.replaceSecondWatch(model, w) {
			watchlist[i] = watchlist[len(watchlist)-1]
			watchlist = watchlist[:len(watchlist)-1]
			b.watched[falsifiedLit.Index()] = watchlist
			continue
		}

		if Eval(model, clause.At(0)).False() {
			return clause
		}

		// the clause is unit
		if conflict := b.assign(trail, clause.At(0), clause); conflict != nil {
			return conflict
		}
		i++
	}
	return nil
}

// replaceSecondWatch scans from the rotating cursor for a non-falsified
// literal to watch instead of the falsified literal at position 1.
func (b *BoolTheory) replaceSecondWatch(model *Model[bool], w *watchedClause) bool {
	clause := w.clause
	if clause.Len() <= 2 {
		return false
	}
	end := w.index
	for {
		if !Eval(model, clause.At(w.index)).False() {
			clause.Swap(1, w.index)
			b.watched[clause.At(1).Index()] = append(b.watched[clause.At(1).Index()], *w)
			return true
		}
		w.index++
		if w.index >= clause.Len() {
			w.index = 2
		}
		if w.index == end {
			return false
		}
	}
}
