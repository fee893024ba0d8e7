package solver

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepanhen/yaga/lit"
)

func TestTrailDecideAndBacktrack(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 4)
	trail.Resize(lit.Rational, 2)

	b0 := lit.NewVar(0, lit.Boolean)
	b1 := lit.NewVar(1, lit.Boolean)
	r0 := lit.NewVar(0, lit.Rational)

	trail.BoolModel().SetValue(0, true)
	trail.Decide(b0)
	require.Equal(t, 1, trail.DecisionLevel())

	trail.BoolModel().SetValue(1, false)
	trail.Propagate(b1, nil, 1)

	trail.RatModel().SetValue(0, big.NewRat(3, 2))
	trail.Decide(r0)
	require.Equal(t, 2, trail.DecisionLevel())

	level, ok := trail.LevelOf(b1)
	require.True(t, ok)
	assert.Equal(t, 1, level)
	level, ok = trail.LevelOf(r0)
	require.True(t, ok)
	assert.Equal(t, 2, level)

	trail.Backtrack(0)
	assert.Equal(t, 0, trail.DecisionLevel())
	assert.True(t, trail.Empty())
	assert.False(t, trail.BoolModel().IsDefined(0))
	assert.False(t, trail.BoolModel().IsDefined(1))
	assert.False(t, trail.RatModel().IsDefined(0))

	_, ok = trail.LevelOf(b1)
	assert.False(t, ok)
}

func TestTrailSemanticPropagationLevel(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 4)

	trail.BoolModel().SetValue(0, true)
	trail.Decide(lit.NewVar(0, lit.Boolean))
	trail.BoolModel().SetValue(1, true)
	trail.Decide(lit.NewVar(1, lit.Boolean))

	// a semantic propagation lands below the current decision level
	trail.BoolModel().SetValue(2, false)
	trail.Propagate(lit.NewVar(2, lit.Boolean), nil, 1)

	assert.Len(t, trail.Assigned(1), 2)
	assert.Len(t, trail.Assigned(2), 1)

	// backtracking to level 1 keeps the semantically propagated entry
	trail.Backtrack(1)
	assert.True(t, trail.BoolModel().IsDefined(2))
	assert.Equal(t, 2, trail.Size())
}

func TestTrailReasons(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 2)

	reason := NewClause(lit.New(0, false))
	trail.BoolModel().SetValue(0, true)
	trail.Propagate(lit.NewVar(0, lit.Boolean), reason, 0)

	assert.Same(t, reason, trail.ReasonOf(lit.NewVar(0, lit.Boolean)))
	assert.Nil(t, trail.ReasonOf(lit.NewVar(1, lit.Boolean)))
}

func TestTrailClear(t *testing.T) {
	trail := NewTrail(nil)
	trail.Resize(lit.Boolean, 2)

	trail.BoolModel().SetValue(0, true)
	trail.Propagate(lit.NewVar(0, lit.Boolean), nil, 0)
	trail.BoolModel().SetValue(1, true)
	trail.Decide(lit.NewVar(1, lit.Boolean))

	trail.Clear()
	assert.True(t, trail.Empty())
	assert.Equal(t, 0, trail.DecisionLevel())
	assert.False(t, trail.BoolModel().IsDefined(0))
	assert.Equal(t, 2, trail.NumVars(lit.Boolean))
}

func TestModelEval(t *testing.T) {
	model := NewModel[bool]()
	model.Resize(2)
	model.SetValue(0, true)

	assert.True(t, Eval(model, lit.New(0, false)).True())
	assert.True(t, Eval(model, lit.New(0, true)).False())
	assert.True(t, Eval(model, lit.New(1, false)).Undef())

	clause := NewClause(lit.New(0, true), lit.New(1, false))
	assert.True(t, EvalClause(model, clause).Undef())
	model.SetValue(1, false)
	assert.True(t, EvalClause(model, clause).False())
}
