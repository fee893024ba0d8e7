package solver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/order"
	"github.com/stepanhen/yaga/restart"
	"github.com/stepanhen/yaga/solver"
)

func newSolver(numVars int) *solver.Solver {
	cfg := config.New()
	s := solver.New(cfg)
	s.AddTheory(solver.NewBoolTheory(cfg))
	s.SetVariableOrder(order.NewFirstUnassigned())
	s.SetRestartPolicy(restart.NewNever())
	s.Trail().Resize(lit.Boolean, numVars)
	return s
}

func TestCheckUnitPropagation(t *testing.T) {
	s := newSolver(3)
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false), lit.New(2, false))
	s.DB().AssertClause(lit.New(0, true))
	s.DB().AssertClause(lit.New(1, true))

	result, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)

	model := s.Trail().BoolModel()
	assert.False(t, model.Value(0))
	assert.False(t, model.Value(1))
	assert.True(t, model.Value(2))
}

func TestCheckUnsatUnits(t *testing.T) {
	s := newSolver(1)
	s.DB().AssertClause(lit.New(0, false))
	s.DB().AssertClause(lit.New(0, true))

	result, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Unsat, result)
}

func TestCheckUnsatAfterSearch(t *testing.T) {
	s := newSolver(2)
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, true), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, false), lit.New(1, true))
	s.DB().AssertClause(lit.New(0, true), lit.New(1, true))

	result, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Unsat, result)
	assert.Greater(t, s.NumConflicts(), 0)
	assert.Greater(t, s.NumLearnedClauses(), 0)
}

func TestNonChronologicalBacktrack(t *testing.T) {
	s := newSolver(6)
	// b0 and b1 are free; the clauses over b2..b5 force a conflict whose
	// asserting clause jumps back over the independent decisions
	s.DB().AssertClause(lit.New(2, true), lit.New(3, false))
	s.DB().AssertClause(lit.New(2, true), lit.New(4, false))
	s.DB().AssertClause(lit.New(3, true), lit.New(4, true), lit.New(5, false))
	s.DB().AssertClause(lit.New(3, true), lit.New(4, true), lit.New(5, true))

	result, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)

	model := s.Trail().BoolModel()
	assert.False(t, model.Value(2))
}

func TestCheckSatLargerInstance(t *testing.T) {
	s := newSolver(8)
	// a ring of implications b0 -> b1 -> ... -> b7 -> b0
	for i := 0; i < 8; i++ {
		s.DB().AssertClause(lit.New(i, true), lit.New((i+1)%8, false))
	}

	result, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)

	model := s.Trail().BoolModel()
	first := model.Value(0)
	for i := 1; i < 8; i++ {
		assert.Equal(t, first, model.Value(i))
	}
}

func TestCheckWithRestarts(t *testing.T) {
	cfg := config.New()
	cfg.RestartBase = 1
	s := solver.New(cfg)
	s.AddTheory(solver.NewBoolTheory(cfg))
	s.SetVariableOrder(order.NewFirstUnassigned())
	s.SetRestartPolicy(restart.NewLuby(cfg))
	s.Trail().Resize(lit.Boolean, 3)

	// unsat over b0, b1; b2 pads the search
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, true), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, false), lit.New(1, true))
	s.DB().AssertClause(lit.New(0, true), lit.New(1, true))
	s.DB().AssertClause(lit.New(2, false), lit.New(0, false))

	result, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solver.Unsat, result)
	assert.Greater(t, s.NumRestarts(), 0)
}

func TestCheckCancellation(t *testing.T) {
	s := newSolver(2)
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, solver.Unknown, result)
}

func TestCheckIsRepeatable(t *testing.T) {
	s := newSolver(3)
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false))
	s.DB().AssertClause(lit.New(1, true), lit.New(2, false))

	for i := 0; i < 3; i++ {
		result, err := s.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, solver.Sat, result)
	}
}

func TestCheckWithModelSat(t *testing.T) {
	s := newSolver(2)
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false))

	assumed := map[lit.Var]solver.Value{
		lit.NewVar(0, lit.Boolean): solver.BoolValue(false),
	}
	result, finals, err := s.CheckWithModel(context.Background(), assumed)
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)
	assert.Empty(t, finals)

	model := s.Trail().BoolModel()
	assert.False(t, model.Value(0))
	assert.True(t, model.Value(1))
}

func TestCheckWithModelPreferenceIsSoft(t *testing.T) {
	s := newSolver(3)
	// assuming b0 true conflicts with the clauses; the solver learns the
	// assumption away and still finds the model with b0 false
	s.DB().AssertClause(lit.New(0, true), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, true), lit.New(2, false))
	s.DB().AssertClause(lit.New(1, true), lit.New(2, true))

	assumed := map[lit.Var]solver.Value{
		lit.NewVar(0, lit.Boolean): solver.BoolValue(true),
	}
	result, _, err := s.CheckWithModel(context.Background(), assumed)
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)
	assert.False(t, s.Trail().BoolModel().Value(0))
}

func TestCheckWithModelUnsat(t *testing.T) {
	s := newSolver(2)
	s.DB().AssertClause(lit.New(0, false), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, true), lit.New(1, false))
	s.DB().AssertClause(lit.New(0, false), lit.New(1, true))
	s.DB().AssertClause(lit.New(0, true), lit.New(1, true))

	assumed := map[lit.Var]solver.Value{
		lit.NewVar(0, lit.Boolean): solver.BoolValue(true),
	}
	result, _, err := s.CheckWithModel(context.Background(), assumed)
	require.NoError(t, err)
	assert.Equal(t, solver.Unsat, result)
}
