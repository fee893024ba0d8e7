package solver

import (
	"math/big"

	"github.com/stepanhen/yaga/lit"
)

// Value is an assumed value of a variable, used by CheckWithModel and
// DecideToValue.
type Value interface {
	Type() lit.Type
}

// BoolValue is an assumed Boolean value.
type BoolValue bool

// Type implements the Value interface.
func (BoolValue) Type() lit.Type { return lit.Boolean }

// RatValue is an assumed rational value.
type RatValue struct {
	Rat *big.Rat
}

// Type implements the Value interface.
func (RatValue) Type() lit.Type { return lit.Rational }

// Listener receives solver lifecycle events.
type Listener interface {
	// OnInit is called at the start of each Check.
	OnInit(db *Database, trail *Trail)
	// OnBeforeBacktrack is called before the trail backtracks to level.
	OnBeforeBacktrack(db *Database, trail *Trail, level int)
	// OnVariableResize is called when the number of variables of a type grows.
	OnVariableResize(typ lit.Type, numVars int)
	// OnLearnedClause is called after a clause is added to the database.
	OnLearnedClause(db *Database, trail *Trail, learned *Clause)
	// OnConflictResolved is called for each clause resolved with the
	// current conflict during analysis.
	OnConflictResolved(db *Database, trail *Trail, other *Clause)
	// OnRestart is called after the trail is cleared by a restart.
	OnRestart(db *Database, trail *Trail)
}

// BaseListener is a no-op Listener for embedding.
type BaseListener struct{}

func (BaseListener) OnInit(*Database, *Trail)                  {}
func (BaseListener) OnBeforeBacktrack(*Database, *Trail, int)  {}
func (BaseListener) OnVariableResize(lit.Type, int)            {}
func (BaseListener) OnLearnedClause(*Database, *Trail, *Clause) {}
func (BaseListener) OnConflictResolved(*Database, *Trail, *Clause) {}
func (BaseListener) OnRestart(*Database, *Trail)               {}

// Theory is the plugin interface for theory-specific propagation and
// decisions.
type Theory interface {
	Listener

	// Propagate propagates all unit constraints managed by this theory.
	// New assignments go to the trail; the return value lists clauses
	// that are false in the trail, empty when there is no conflict.
	Propagate(db *Database, trail *Trail) []*Clause

	// Decide assigns a value to var. The method ignores the request if
	// var is not owned by this theory.
	Decide(db *Database, trail *Trail, v lit.Var)

	// DecideToValue decides var to the given assumed value. The method
	// ignores the request if var is not owned by this theory.
	DecideToValue(trail *Trail, v lit.Var, value Value)
}

// VarOrder picks the next variable to decide. Implementations typically
// also implement Listener and are registered with the solver's dispatcher.
type VarOrder interface {
	// Pick returns the next unassigned variable, or ok=false when every
	// variable is assigned.
	Pick(db *Database, trail *Trail) (lit.Var, bool)
	// IsBefore reports whether a precedes b in the order.
	IsBefore(a, b lit.Var) bool
}

// RestartPolicy tells the solver when to restart instead of backtracking.
type RestartPolicy interface {
	ShouldRestart() bool
}

// Cursor tracks the prefix of the trail a theory has already processed.
// Theories embed it, inspect the next unprocessed assignment with Peek and
// mark it processed with Advance. Processing the trail log in order makes
// propagation FIFO over insertion time.
type Cursor struct {
	next int
}

// Peek returns the next unprocessed assignment, or ok=false when the whole
// trail has been processed.
func (c *Cursor) Peek(trail *Trail) (Assignment, bool) {
	log := trail.Log()
	if c.next > len(log) {
		// the trail backtracked without a rewind; every surviving entry
		// was already processed
		c.next = len(log)
	}
	if c.next >= len(log) {
		return Assignment{}, false
	}
	return log[c.next], true
}

// Advance marks the assignment returned by Peek as processed.
func (c *Cursor) Advance() {
	c.next++
}

// Rewind moves the cursor back in front of all trail entries above the
// given decision level. It must be called before the trail backtracks.
func (c *Cursor) Rewind(trail *Trail, level int) {
	log := trail.Log()
	if c.next > len(log) {
		c.next = len(log)
	}
	kept := 0
	for _, a := range log[:c.next] {
		if l, ok := trail.LevelOf(a.Var); ok && l <= level {
			kept++
		}
	}
	c.next = kept
}

// Reset moves the cursor to the start of the trail.
func (c *Cursor) Reset() {
	c.next = 0
}
