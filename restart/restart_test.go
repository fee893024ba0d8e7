package restart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/solver"
)

func TestNeverRestarts(t *testing.T) {
	p := NewNever()
	assert.False(t, p.ShouldRestart())
}

func TestLubySequence(t *testing.T) {
	cfg := config.New()
	cfg.RestartBase = 2
	p := NewLuby(cfg)

	db := solver.NewDatabase()
	trail := solver.NewTrail(nil)
	p.OnInit(db, trail)

	clause := solver.NewClause()
	expected := []int{1, 1, 2, 1, 1, 2, 4}
	for _, unit := range expected {
		for i := 0; i < cfg.RestartBase*unit-1; i++ {
			p.OnLearnedClause(db, trail, clause)
			assert.False(t, p.ShouldRestart())
		}
		p.OnLearnedClause(db, trail, clause)
		assert.True(t, p.ShouldRestart())
		p.OnRestart(db, trail)
	}
}

func TestGeometricGrowth(t *testing.T) {
	cfg := config.New()
	cfg.RestartBase = 2
	p := NewGeometric(cfg)

	db := solver.NewDatabase()
	trail := solver.NewTrail(nil)
	p.OnInit(db, trail)

	clause := solver.NewClause()
	p.OnLearnedClause(db, trail, clause)
	assert.False(t, p.ShouldRestart())
	p.OnLearnedClause(db, trail, clause)
	assert.True(t, p.ShouldRestart())

	// the cap doubles after a restart
	p.OnRestart(db, trail)
	for i := 0; i < 3; i++ {
		p.OnLearnedClause(db, trail, clause)
		assert.False(t, p.ShouldRestart())
	}
	p.OnLearnedClause(db, trail, clause)
	assert.True(t, p.ShouldRestart())
}
