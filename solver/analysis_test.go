package solver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepanhen/yaga/lit"
)

// decideTrue pushes a decision of l being true.
func decideTrue(trail *Trail, l lit.Lit) {
	trail.BoolModel().SetValue(l.Ord(), !l.Sign())
	trail.Decide(l.Var())
}

// propagateTrue pushes l being true with the given reason at the current
// decision level.
func propagateTrue(trail *Trail, l lit.Lit, reason *Clause) {
	trail.BoolModel().SetValue(l.Ord(), !l.Sign())
	trail.Propagate(l.Var(), reason, trail.DecisionLevel())
}

func TestAnalyzeResolvesToDecision(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 4)
	analysis := NewAnalysis()

	b0 := lit.New(0, false)
	b1 := lit.New(1, false)
	b2 := lit.New(2, false)

	c1 := NewClause(b0.Not(), b1)
	c2 := NewClause(b1.Not(), b2)
	conflict := NewClause(b1.Not(), b2.Not())

	decideTrue(trail, b0)
	propagateTrue(trail, b1, c1)
	propagateTrue(trail, b2, c2)

	var resolved []*Clause
	clause, level := analysis.Analyze(trail, conflict, func(c *Clause) {
		resolved = append(resolved, c)
	})

	require.Equal(t, 0, level)
	assert.Empty(t, cmp.Diff([]lit.Lit{b0.Not()}, clause.Lits()))
	assert.Equal(t, []*Clause{c2, c1}, resolved)
}

func TestAnalyzeStopsAtFirstUIP(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 10)
	analysis := NewAnalysis()

	b0 := lit.New(0, false)
	b1 := lit.New(1, false)
	b2 := lit.New(2, false)
	b9 := lit.New(9, false)

	decideTrue(trail, b9) // level 1
	decideTrue(trail, b0) // level 2
	c1 := NewClause(b0.Not(), b1)
	c2 := NewClause(b1.Not(), b9.Not(), b2)
	propagateTrue(trail, b1, c1)
	propagateTrue(trail, b2, c2)

	conflict := NewClause(b2.Not(), b1.Not())
	clause, level := analysis.Analyze(trail, conflict, nil)

	// resolution stops at the unique implication point b1
	require.Equal(t, 1, level)
	assert.Empty(t, cmp.Diff([]lit.Lit{b1.Not(), b9.Not()}, clause.Lits()))
}

func TestAnalyzeOrdersByDecreasingLevel(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 6)
	analysis := NewAnalysis()

	b0 := lit.New(0, false)
	b1 := lit.New(1, false)
	b2 := lit.New(2, false)

	decideTrue(trail, b0) // level 1
	decideTrue(trail, b1) // level 2
	decideTrue(trail, b2) // level 3

	conflict := NewClause(b1.Not(), b0.Not(), b2.Not())
	clause, level := analysis.Analyze(trail, conflict, nil)

	require.Equal(t, 2, level)
	assert.Empty(t, cmp.Diff([]lit.Lit{b2.Not(), b1.Not(), b0.Not()}, clause.Lits()))

	// at most one literal at the top level
	top, _ := trail.LevelOf(clause.At(0).Var())
	next, _ := trail.LevelOf(clause.At(1).Var())
	assert.Greater(t, top, next)
}

func TestAnalyzeSkipKeepsScanning(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 4)
	analysis := NewAnalysis()

	b0 := lit.New(0, false)
	b1 := lit.New(1, false)
	b2 := lit.New(2, false)

	decideTrue(trail, b0)
	c1 := NewClause(b0.Not(), b1)
	c2 := NewClause(b0.Not(), b2)
	propagateTrue(trail, b1, c1)
	propagateTrue(trail, b2, c2)

	conflict := NewClause(b1.Not(), b2.Not())

	// skipping b2 leaves its literal unresolved in the clause
	clause, _ := analysis.AnalyzeSkip(trail, conflict, []lit.Var{b2.Var()}, nil)
	assert.True(t, clause.Contains(b2.Not()))
	assert.False(t, clause.Contains(b1.Not()))
}

func TestAnalyzeFinalStopsEarly(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 4)
	analysis := NewAnalysis()

	b0 := lit.New(0, false)
	b1 := lit.New(1, false)
	b2 := lit.New(2, false)

	decideTrue(trail, b0)
	c1 := NewClause(b0.Not(), b1)
	c2 := NewClause(b1.Not(), b2)
	propagateTrue(trail, b1, c1)
	propagateTrue(trail, b2, c2)

	conflict := NewClause(b1.Not(), b2.Not())

	// the scan reaches b2 first and stops immediately
	clause, _ := analysis.AnalyzeFinal(trail, conflict, []lit.Var{b2.Var()}, nil)
	assert.Empty(t, cmp.Diff([]lit.Lit{b1.Not(), b2.Not()}, clause.Lits()))
}

func TestSubsumptionMinimize(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 4)
	db := NewDatabase()
	db.AssertClause(lit.New(0, true))

	sub := NewSubsumption()
	sub.OnInit(db, trail)

	clause := NewClause(lit.New(1, false), lit.New(0, false), lit.New(2, false))
	sub.Minimize(trail, clause)
	assert.Empty(t, cmp.Diff([]lit.Lit{lit.New(1, false), lit.New(2, false)}, clause.Lits()))

	// a learned unit clause joins the index
	sub.OnLearnedClause(db, trail, db.LearnClause(NewClause(lit.New(2, true))))
	clause = NewClause(lit.New(1, false), lit.New(2, false))
	sub.Minimize(trail, clause)
	assert.Empty(t, cmp.Diff([]lit.Lit{lit.New(1, false)}, clause.Lits()))
}
