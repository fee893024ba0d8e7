package lit

import "fmt"

// Type distinguishes the two kinds of solver variables.
type Type uint8

const (
	// Boolean variables carry a truth value.
	Boolean Type = iota
	// Rational variables carry an exact rational value.
	Rational
)

// NumTypes is the number of variable types.
const NumTypes = 2

// String implements the Stringer interface.
func (t Type) String() string {
	switch t {
	case Boolean:
		return "bool"
	case Rational:
		return "rational"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Var is a typed solver variable. Ordinals are dense per type: the n-th
// Boolean variable and the n-th rational variable share the ordinal n.
type Var struct {
	ord int
	typ Type
}

// NewVar returns a variable with the given 0-based ordinal and type.
func NewVar(ord int, typ Type) Var {
	return Var{ord: ord, typ: typ}
}

// Ord returns the variable's 0-based ordinal.
func (v Var) Ord() int {
	return v.ord
}

// Type returns the variable's type.
func (v Var) Type() Type {
	return v.typ
}

// String implements the Stringer interface.
func (v Var) String() string {
	if v.typ == Rational {
		return fmt.Sprintf("r%d", v.ord)
	}
	return fmt.Sprintf("b%d", v.ord)
}

// Undef is the undefined literal.
const Undef = Lit(-1)

// Lit is a literal over a Boolean variable, represented by an integer. The
// sign of the literal is the least significant bit and the variable ordinal
// is obtained by a right bit shift. This encoding makes L and ~L adjacent
// when sorted and makes negation a single XOR.
//
// An unknown literal is denoted as -1.
type Lit int

// New returns a new literal given a 0-based Boolean variable ordinal and
// whether the literal is negative.
func New(ord int, neg bool) Lit {
	if neg {
		return Lit(ord + ord + 1)
	}
	return Lit(ord + ord)
}

// Not negates a literal. Negation is an involution: l.Not().Not() == l.
func (l Lit) Not() Lit {
	return l ^ 1
}

// Sign returns true if the literal is negative.
func (l Lit) Sign() bool {
	return l&1 == 1
}

// Index returns the literal's dense index, suitable for slice lookups.
func (l Lit) Index() int {
	return int(l)
}

// Ord returns the ordinal of the literal's variable.
func (l Lit) Ord() int {
	return int(l >> 1)
}

// Var returns the literal's variable.
func (l Lit) Var() Var {
	return Var{ord: int(l >> 1), typ: Boolean}
}

// String implements the Stringer interface.
func (l Lit) String() string {
	if l == Undef {
		return "undef"
	}
	if l.Sign() {
		return fmt.Sprintf("~b%d", l.Ord())
	}
	return fmt.Sprintf("b%d", l.Ord())
}
