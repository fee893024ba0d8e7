package solver

import "github.com/stepanhen/yaga/lit"

// Combination runs several theories as one. Propagation round-robins the
// theories in registration order until a full pass adds no new trail
// entries; events fan out to every theory.
type Combination struct {
	theories []Theory

	// current variable counts, replayed into late-added theories
	numVars [lit.NumTypes]int
}

// NewCombination returns an empty theory combination.
func NewCombination() *Combination {
	return &Combination{}
}

// Add registers a theory. The theory immediately receives the current
// variable counts.
func (c *Combination) Add(t Theory) {
	for typ, n := range c.numVars {
		if n > 0 {
			t.OnVariableResize(lit.Type(typ), n)
		}
	}
	c.theories = append(c.theories, t)
}

// Theories returns the registered theories in registration order.
func (c *Combination) Theories() []Theory {
	return c.theories
}

// Propagate runs all theories to a common fixpoint and returns the first
// non-empty conflict set encountered.
func (c *Combination) Propagate(db *Database, trail *Trail) []*Clause {
	for {
		oldSize := trail.Size()
		for _, t := range c.theories {
			if conflicts := t.Propagate(db, trail); len(conflicts) > 0 {
				return conflicts
			}
		}
		if oldSize == trail.Size() {
			return nil
		}
	}
}

// Decide asks every theory to decide var; only the owning theory acts.
func (c *Combination) Decide(db *Database, trail *Trail, v lit.Var) {
	for _, t := range c.theories {
		t.Decide(db, trail, v)
	}
}

// DecideToValue asks every theory to decide var to an assumed value.
func (c *Combination) DecideToValue(trail *Trail, v lit.Var, value Value) {
	for _, t := range c.theories {
		t.DecideToValue(trail, v, value)
	}
}

// OnInit broadcasts the event to all theories.
func (c *Combination) OnInit(db *Database, trail *Trail) {
	for _, t := range c.theories {
		t.OnInit(db, trail)
	}
}

// OnBeforeBacktrack broadcasts the event to all theories.
func (c *Combination) OnBeforeBacktrack(db *Database, trail *Trail, level int) {
	for _, t := range c.theories {
		t.OnBeforeBacktrack(db, trail, level)
	}
}

// OnVariableResize broadcasts the event to all theories.
func (c *Combination) OnVariableResize(typ lit.Type, numVars int) {
	c.numVars[typ] = numVars
	for _, t := range c.theories {
		t.OnVariableResize(typ, numVars)
	}
}

// OnLearnedClause broadcasts the event to all theories.
func (c *Combination) OnLearnedClause(db *Database, trail *Trail, learned *Clause) {
	for _, t := range c.theories {
		t.OnLearnedClause(db, trail, learned)
	}
}

// OnConflictResolved broadcasts the event to all theories.
func (c *Combination) OnConflictResolved(db *Database, trail *Trail, other *Clause) {
	for _, t := range c.theories {
		t.OnConflictResolved(db, trail, other)
	}
}

// OnRestart broadcasts the event to all theories.
func (c *Combination) OnRestart(db *Database, trail *Trail) {
	for _, t := range c.theories {
		t.OnRestart(db, trail)
	}
}
