// Package restart provides restart policies for the solver.
package restart

import (
	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/solver"
)

// Never is a policy that never restarts.
type Never struct{}

// NewNever returns the no-restart policy.
func NewNever() *Never {
	return &Never{}
}

// ShouldRestart implements the RestartPolicy interface.
func (*Never) ShouldRestart() bool {
	return false
}

// Luby restarts whenever the number of conflicts since the last restart
// reaches base times the next element of the Luby sequence
// 1 1 2 1 1 2 4 1 1 2 1 1 2 4 8 ...
type Luby struct {
	solver.BaseListener

	base      int
	conflicts int
	// Knuth's Luby sequence generator state
	u, v int
}

// NewLuby returns a Luby policy with the conflict cap multiplier from the
// configuration.
func NewLuby(cfg *config.Config) *Luby {
	return &Luby{base: cfg.RestartBase, u: 1, v: 1}
}

// OnInit resets the sequence.
func (p *Luby) OnInit(db *solver.Database, trail *solver.Trail) {
	p.conflicts = 0
	p.u, p.v = 1, 1
}

// OnLearnedClause counts one conflict.
func (p *Luby) OnLearnedClause(db *solver.Database, trail *solver.Trail, learned *solver.Clause) {
	p.conflicts++
}

// OnRestart advances the Luby sequence.
func (p *Luby) OnRestart(db *solver.Database, trail *solver.Trail) {
	p.conflicts = 0
	if p.u&-p.u == p.v {
		p.u++
		p.v = 1
	} else {
		p.v *= 2
	}
}

// ShouldRestart implements the RestartPolicy interface.
func (p *Luby) ShouldRestart() bool {
	return p.conflicts >= p.base*p.v
}

// Geometric restarts when the number of conflicts since the last restart
// reaches a cap that grows by a constant factor after every restart.
type Geometric struct {
	solver.BaseListener

	cap       float64
	growth    float64
	conflicts int
}

// NewGeometric returns a geometric policy with the conflict cap from the
// configuration.
func NewGeometric(cfg *config.Config) *Geometric {
	return &Geometric{cap: float64(cfg.RestartBase), growth: 2.0}
}

// OnInit resets the counter.
func (p *Geometric) OnInit(db *solver.Database, trail *solver.Trail) {
	p.conflicts = 0
}

// OnLearnedClause counts one conflict.
func (p *Geometric) OnLearnedClause(db *solver.Database, trail *solver.Trail, learned *solver.Clause) {
	p.conflicts++
}

// OnRestart grows the conflict cap.
func (p *Geometric) OnRestart(db *solver.Database, trail *solver.Trail) {
	p.conflicts = 0
	p.cap *= p.growth
}

// ShouldRestart implements the RestartPolicy interface.
func (p *Geometric) ShouldRestart() bool {
	return float64(p.conflicts) >= p.cap
}
