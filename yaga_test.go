package yaga

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/lra"
	"github.com/stepanhen/yaga/solver"
)

func checkSat(t *testing.T, y *Yaga) {
	t.Helper()
	result, err := y.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)
}

func checkUnsat(t *testing.T, y *Yaga) {
	t.Helper()
	result, err := y.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, solver.Unsat, result)
}

func TestPureBooleanSat(t *testing.T) {
	y := New(config.New())
	b0 := y.MakeVar(lit.Boolean)
	b1 := y.MakeVar(lit.Boolean)
	b2 := y.MakeVar(lit.Boolean)

	require.NoError(t, y.AssertClause(lit.New(b0.Ord(), false), lit.New(b1.Ord(), false), lit.New(b2.Ord(), false)))
	require.NoError(t, y.AssertClause(lit.New(b0.Ord(), true)))
	require.NoError(t, y.AssertClause(lit.New(b1.Ord(), true)))

	checkSat(t, y)
	assert.True(t, y.BoolValue(b0).False())
	assert.True(t, y.BoolValue(b1).False())
	assert.True(t, y.BoolValue(b2).True())
}

func TestPureBooleanUnsat(t *testing.T) {
	y := New(config.New())
	b0 := y.MakeVar(lit.Boolean)
	b1 := y.MakeVar(lit.Boolean)

	require.NoError(t, y.AssertClause(lit.New(b0.Ord(), false), lit.New(b1.Ord(), false)))
	require.NoError(t, y.AssertClause(lit.New(b0.Ord(), true), lit.New(b1.Ord(), false)))
	require.NoError(t, y.AssertClause(lit.New(b0.Ord(), false), lit.New(b1.Ord(), true)))
	require.NoError(t, y.AssertClause(lit.New(b0.Ord(), true), lit.New(b1.Ord(), true)))

	checkUnsat(t, y)
}

func TestLinearArithmeticSat(t *testing.T) {
	y := New(config.New())
	x := y.MakeVar(lit.Rational)
	z := y.MakeVar(lit.Rational)

	// 0 <= x, x < 10, x + z = 4
	lower, err := y.Constrain([]lit.Var{x}, []*big.Rat{big.NewRat(1, 1)}, lra.LT, big.NewRat(0, 1))
	require.NoError(t, err)
	upper, err := y.Constrain([]lit.Var{x}, []*big.Rat{big.NewRat(1, 1)}, lra.LT, big.NewRat(10, 1))
	require.NoError(t, err)
	sum, err := y.Constrain([]lit.Var{x, z}, []*big.Rat{big.NewRat(1, 1), big.NewRat(1, 1)}, lra.EQ, big.NewRat(4, 1))
	require.NoError(t, err)

	require.NoError(t, y.AssertClause(lower.Lit().Not())) // x >= 0
	require.NoError(t, y.AssertClause(upper.Lit()))
	require.NoError(t, y.AssertClause(sum.Lit()))

	checkSat(t, y)

	xv := y.RatValue(x)
	zv := y.RatValue(z)
	require.NotNil(t, xv)
	require.NotNil(t, zv)
	assert.True(t, xv.Sign() >= 0)
	assert.True(t, xv.Cmp(big.NewRat(10, 1)) < 0)
	total := new(big.Rat).Add(xv, zv)
	assert.Equal(t, 0, total.Cmp(big.NewRat(4, 1)))
}

func TestLinearArithmeticUnsat(t *testing.T) {
	y := New(config.New())
	x := y.MakeVar(lit.Rational)
	z := y.MakeVar(lit.Rational)
	w := y.MakeVar(lit.Rational)

	// x <= z, z <= w, w < x is inconsistent
	one := big.NewRat(1, 1)
	negOne := big.NewRat(-1, 1)
	a, err := y.Constrain([]lit.Var{x, z}, []*big.Rat{one, negOne}, lra.LE, new(big.Rat))
	require.NoError(t, err)
	b, err := y.Constrain([]lit.Var{z, w}, []*big.Rat{one, negOne}, lra.LE, new(big.Rat))
	require.NoError(t, err)
	c, err := y.Constrain([]lit.Var{w, x}, []*big.Rat{one, negOne}, lra.LT, new(big.Rat))
	require.NoError(t, err)

	require.NoError(t, y.AssertClause(a.Lit()))
	require.NoError(t, y.AssertClause(b.Lit()))
	require.NoError(t, y.AssertClause(c.Lit()))

	checkUnsat(t, y)
}

func TestMixedBooleanArithmetic(t *testing.T) {
	y := New(config.New())
	b := y.MakeVar(lit.Boolean)
	x := y.MakeVar(lit.Rational)

	one := big.NewRat(1, 1)
	// b -> x <= 0 and not b -> x >= 5; x = 3 forces not b
	le0, err := y.Constrain([]lit.Var{x}, []*big.Rat{one}, lra.LE, new(big.Rat))
	require.NoError(t, err)
	lt5, err := y.Constrain([]lit.Var{x}, []*big.Rat{one}, lra.LT, big.NewRat(5, 1))
	require.NoError(t, err)
	eq3, err := y.Constrain([]lit.Var{x}, []*big.Rat{one}, lra.EQ, big.NewRat(3, 1))
	require.NoError(t, err)

	require.NoError(t, y.AssertClause(lit.New(b.Ord(), true), le0.Lit()))
	require.NoError(t, y.AssertClause(lit.New(b.Ord(), false), lt5.Lit().Not()))
	require.NoError(t, y.AssertClause(eq3.Lit()))

	checkUnsat(t, y)
}

func TestFormulaInternalization(t *testing.T) {
	y := New(config.New())
	tm := y.Terms()

	p := tm.NewBoolVar("p")
	q := tm.NewBoolVar("q")

	require.NoError(t, y.AssertFormula(tm.Or(p, q)))
	require.NoError(t, y.AssertFormula(p.Not()))

	checkSat(t, y)
	assert.True(t, y.BoolValue(y.AtomLit(q).Var()).True())
}

func TestArithmeticFormulas(t *testing.T) {
	y := New(config.New())
	tm := y.Terms()

	x := tm.NewRealVar("x")
	// x >= 0 and not (x - 1 >= 0): 0 <= x < 1
	poly := tm.Poly(tm.Product(big.NewRat(1, 1), x), tm.RatConst(big.NewRat(-1, 1)))
	require.NoError(t, y.AssertFormula(tm.GeqZero(tm.Product(big.NewRat(1, 1), x))))
	require.NoError(t, y.AssertFormula(tm.GeqZero(poly).Not()))

	checkSat(t, y)
	xv := y.RatValue(y.RealVar(x))
	require.NotNil(t, xv)
	assert.True(t, xv.Sign() >= 0)
	assert.True(t, xv.Cmp(big.NewRat(1, 1)) < 0)
}

func TestAssertEmptyClause(t *testing.T) {
	y := New(config.New())
	require.NoError(t, y.AssertClause())
	checkUnsat(t, y)
}

func TestAssertOutOfRangeLiteral(t *testing.T) {
	y := New(config.New())
	err := y.AssertClause(lit.New(3, false))
	assert.Error(t, err)
}

func TestCheckWithAssumedRational(t *testing.T) {
	y := New(config.New())
	x := y.MakeVar(lit.Rational)

	upper, err := y.Constrain([]lit.Var{x}, []*big.Rat{big.NewRat(1, 1)}, lra.LE, big.NewRat(10, 1))
	require.NoError(t, err)
	require.NoError(t, y.AssertClause(upper.Lit()))

	assumed := map[lit.Var]solver.Value{
		x: solver.RatValue{Rat: big.NewRat(7, 1)},
	}
	result, _, err := y.CheckWithModel(context.Background(), assumed)
	require.NoError(t, err)
	require.Equal(t, solver.Sat, result)
	assert.Equal(t, 0, y.RatValue(x).Cmp(big.NewRat(7, 1)))
}
