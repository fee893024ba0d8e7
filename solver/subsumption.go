package solver

import "github.com/stepanhen/yaga/lit"

// Subsumption minimizes learned clauses by self-subsuming resolution with
// the unit clauses of the database: a literal whose complement is entailed
// by a unit clause contributes nothing and is dropped.
type Subsumption struct {
	BaseListener

	// literals asserted by unit clauses in the database
	units map[lit.Lit]bool
}

// NewSubsumption returns a subsumption minimizer.
func NewSubsumption() *Subsumption {
	return &Subsumption{units: map[lit.Lit]bool{}}
}

// OnInit indexes the unit clauses of the database.
func (s *Subsumption) OnInit(db *Database, trail *Trail) {
	clear(s.units)
	for _, list := range [][]*Clause{db.Asserted(), db.Learned()} {
		for _, c := range list {
			if c.Len() == 1 {
				s.units[c.At(0)] = true
			}
		}
	}
}

// OnLearnedClause indexes newly learned unit clauses.
func (s *Subsumption) OnLearnedClause(db *Database, trail *Trail, learned *Clause) {
	if learned.Len() == 1 {
		s.units[learned.At(0)] = true
	}
}

// Minimize removes literals whose complement is asserted by a unit clause.
// The relative order of the remaining literals is preserved.
func (s *Subsumption) Minimize(trail *Trail, c *Clause) {
	if len(s.units) == 0 || c.Len() <= 1 {
		return
	}
	for i := c.Len() - 1; i >= 0; i-- {
		if s.units[c.At(i).Not()] && c.Len() > 1 {
			c.remove(i)
		}
	}
}
