package lra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduceEliminatesBoundedVariables(t *testing.T) {
	_, trail, theory := setup(5)
	x, y, z, w, a := 0, 1, 2, 3, 4
	models := trail.Models()

	constraints := []Constraint{
		// 2y + w > 2
		theory.NewConstraint(trail, []int{y, w}, rats(2, 1), LE, rat(2, 1)).Neg(),
		// 3z + a <= 1
		theory.NewConstraint(trail, []int{z, a}, rats(3, 1), LE, rat(1, 1)),
		// x + 3y - 2z <= 3
		theory.NewConstraint(trail, []int{x, y, z}, rats(1, 3, -2), LE, rat(3, 1)),
	}
	for _, cons := range constraints {
		propagateAtom(trail, cons, true)
	}
	models.Rat().SetValue(w, rat(1, 1))
	models.Rat().SetValue(a, rat(2, 1))

	bounds := theory.Bounds()
	bounds.Update(models, constraints[0])
	bounds.Update(models, constraints[1])

	// an upper bound on x by eliminating y and z
	bounds.Deduce(models, constraints[2])
	ub := bounds.At(x).UpperBound(models)
	require.NotNil(t, ub)
	assert.Equal(t, 0, ub.Value().Cmp(rat(5, 6)))
	assert.Equal(t, constraints[2].Lit(), ub.Reason().Lit())
	assert.True(t, ub.IsStrict())
	require.Len(t, ub.Deps(), 2)
	assert.Equal(t, constraints[0].Lit(), ub.Deps()[0].Reason().Lit())
	assert.Equal(t, constraints[1].Lit(), ub.Deps()[1].Reason().Lit())
}

func TestDeduceWithDerivedBounds(t *testing.T) {
	_, trail, theory := setup(5)
	x, y, z, w, a := 0, 1, 2, 3, 4
	models := trail.Models()

	constraints := []Constraint{
		// 5z + 2a - 2w >= 2
		theory.NewConstraint(trail, []int{z, a, w}, rats(5, 2, -2), LT, rat(2, 1)).Neg(),
		// 2y - 3z + 3w >= 3
		theory.NewConstraint(trail, []int{y, z, w}, rats(2, -3, 3), LT, rat(3, 1)).Neg(),
		// x + 2y + 3z + w + a <= 2
		theory.NewConstraint(trail, []int{x, y, z, w, a}, rats(1, 2, 3, 1, 1), LE, rat(2, 1)),
	}
	for _, cons := range constraints {
		propagateAtom(trail, cons, true)
	}
	models.Rat().SetValue(w, rat(1, 1))
	models.Rat().SetValue(a, rat(2, 1))

	bounds := theory.Bounds()

	// lower bound of z: 5z >= 2 - 2*2 + 2*1, so z >= 0
	bounds.Update(models, constraints[0])

	// lower bound of y through the bound on z
	bounds.Deduce(models, constraints[1])
	lb := bounds.At(y).LowerBound(models)
	require.NotNil(t, lb)
	assert.Equal(t, 0, lb.Value().Sign())
	assert.False(t, lb.IsStrict())
	assert.Equal(t, constraints[1].Lit(), lb.Reason().Lit())
	require.Len(t, lb.Deps(), 1)
	assert.Equal(t, constraints[0].Lit(), lb.Deps()[0].Reason().Lit())

	// upper bound of x through the bounds on y and z
	bounds.Deduce(models, constraints[2])
	ub := bounds.At(x).UpperBound(models)
	require.NotNil(t, ub)
	assert.Equal(t, 0, ub.Value().Cmp(rat(-1, 1)))
	assert.Equal(t, constraints[2].Lit(), ub.Reason().Lit())
	require.Len(t, ub.Deps(), 2)
	assert.Equal(t, constraints[1].Lit(), ub.Deps()[0].Reason().Lit())
	assert.Equal(t, constraints[0].Lit(), ub.Deps()[1].Reason().Lit())
}

func TestBoundsStaleRecordsAreSkipped(t *testing.T) {
	_, trail, theory := setup(2)
	x := 0
	models := trail.Models()

	loose := theory.NewConstraint(trail, []int{x}, rats(1), LE, rat(16, 1))
	tight := theory.NewConstraint(trail, []int{x}, rats(1), LE, rat(4, 1))

	propagateAtom(trail, loose, true)
	decideAtom(trail, tight)

	bounds := theory.Bounds()
	bounds.Update(models, loose)
	bounds.Update(models, tight)
	require.Equal(t, 0, bounds.At(x).UpperBound(models).Value().Cmp(rat(4, 1)))

	// backtracking drops the tight bound but keeps the record
	trail.Backtrack(0)
	ub := bounds.At(x).UpperBound(models)
	require.NotNil(t, ub)
	assert.Equal(t, 0, ub.Value().Cmp(rat(16, 1)))
}

func TestIsAllowed(t *testing.T) {
	_, trail, theory := setup(2)
	x := 0
	models := trail.Models()

	lower := theory.NewConstraint(trail, []int{x}, rats(1), LT, rat(0, 1)).Neg() // x >= 0
	upper := theory.NewConstraint(trail, []int{x}, rats(1), LT, rat(10, 1))     // x < 10
	diseq := theory.NewConstraint(trail, []int{x}, rats(1), EQ, rat(5, 1)).Neg()

	propagateAtom(trail, lower, true)
	propagateAtom(trail, upper, true)
	propagateAtom(trail, diseq, true)

	bounds := theory.Bounds()
	bounds.Update(models, lower)
	bounds.Update(models, upper)
	bounds.Update(models, diseq)

	vb := bounds.At(x)
	assert.True(t, vb.IsAllowed(models, rat(0, 1)))
	assert.True(t, vb.IsAllowed(models, rat(9, 1)))
	assert.False(t, vb.IsAllowed(models, rat(10, 1))) // strict upper bound
	assert.False(t, vb.IsAllowed(models, rat(-1, 1)))
	assert.False(t, vb.IsAllowed(models, rat(5, 1))) // disequality
}

func TestChangedIsDrained(t *testing.T) {
	_, trail, theory := setup(2)
	x := 0
	models := trail.Models()

	cons := theory.NewConstraint(trail, []int{x}, rats(1), LE, rat(4, 1))
	propagateAtom(trail, cons, true)

	bounds := theory.Bounds()
	bounds.Update(models, cons)
	assert.Equal(t, []int{x}, bounds.Changed())
	assert.Empty(t, bounds.Changed())
}
