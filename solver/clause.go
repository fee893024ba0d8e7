package solver

import (
	"strings"

	"github.com/stepanhen/yaga/lit"
)

// Clause is a disjunction of literals. Positions 0 and 1 are the watched
// positions. The clause has no identity beyond its address: the trail stores
// reasons as clause pointers, so a clause must never be copied once it has
// been added to the database.
type Clause struct {
	lits []lit.Lit
}

// NewClause returns a clause over a copy of the given literals.
func NewClause(lits ...lit.Lit) *Clause {
	c := &Clause{lits: make([]lit.Lit, len(lits))}
	copy(c.lits, lits)
	return c
}

// Len returns the number of literals in the clause.
func (c *Clause) Len() int {
	return len(c.lits)
}

// At returns the literal at position i.
func (c *Clause) At(i int) lit.Lit {
	return c.lits[i]
}

// Lits returns the literals of the clause. The slice is shared with the
// clause; callers must not retain it across watch updates.
func (c *Clause) Lits() []lit.Lit {
	return c.lits
}

// Swap swaps two literals within the clause.
func (c *Clause) Swap(i, j int) {
	c.lits[i], c.lits[j] = c.lits[j], c.lits[i]
}

// Contains returns true if the clause contains the literal.
func (c *Clause) Contains(l lit.Lit) bool {
	for _, other := range c.lits {
		if other == l {
			return true
		}
	}
	return false
}

// remove drops the literal at position i, preserving the order of the rest.
func (c *Clause) remove(i int) {
	c.lits = append(c.lits[:i], c.lits[i+1:]...)
}

// String implements the Stringer interface.
func (c *Clause) String() string {
	strs := make([]string, 0, len(c.lits))
	for _, l := range c.lits {
		strs = append(strs, l.String())
	}
	return strings.Join(strs, ",")
}

// Database stores asserted and learned clauses. Both collections are
// append-only within a solving episode so that clause pointers stay valid
// for the lifetime of the trail entries that reference them.
type Database struct {
	asserted []*Clause
	learned  []*Clause
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{}
}

// AssertClause adds an input clause and returns its stable reference.
func (d *Database) AssertClause(lits ...lit.Lit) *Clause {
	c := NewClause(lits...)
	d.asserted = append(d.asserted, c)
	return c
}

// LearnClause adds a derived clause and returns its stable reference.
func (d *Database) LearnClause(c *Clause) *Clause {
	d.learned = append(d.learned, c)
	return c
}

// Asserted returns the asserted clauses.
func (d *Database) Asserted() []*Clause {
	return d.asserted
}

// Learned returns the learned clauses.
func (d *Database) Learned() []*Clause {
	return d.learned
}

// NumAsserted returns the number of asserted clauses.
func (d *Database) NumAsserted() int {
	return len(d.asserted)
}

// NumLearned returns the number of learned clauses.
func (d *Database) NumLearned() int {
	return len(d.learned)
}
