package solver

import (
	"math/big"

	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/tribool"
)

// Model is a dense partial assignment of variables of one type, indexed by
// variable ordinal.
type Model[T any] struct {
	defined []bool
	values  []T
}

// NewModel returns an empty model.
func NewModel[T any]() *Model[T] {
	return &Model[T]{}
}

// NumVars returns the number of variables in the model.
func (m *Model[T]) NumVars() int {
	return len(m.values)
}

// Resize makes room for n variables. New entries are undefined.
func (m *Model[T]) Resize(n int) {
	for len(m.values) < n {
		var zero T
		m.values = append(m.values, zero)
		m.defined = append(m.defined, false)
	}
}

// IsDefined returns true if the variable with the given ordinal has a value.
func (m *Model[T]) IsDefined(ord int) bool {
	return ord < len(m.defined) && m.defined[ord]
}

// Value returns the value of the variable with the given ordinal. The value
// is only meaningful while IsDefined(ord) holds.
func (m *Model[T]) Value(ord int) T {
	return m.values[ord]
}

// SetValue defines the variable with the given ordinal.
func (m *Model[T]) SetValue(ord int, value T) {
	m.values[ord] = value
	m.defined[ord] = true
}

// Clear makes the variable with the given ordinal undefined again. Its old
// value is kept and remains readable through Value.
func (m *Model[T]) Clear(ord int) {
	m.defined[ord] = false
}

// Models bundles the Boolean and rational models of a trail.
type Models struct {
	b *Model[bool]
	r *Model[*big.Rat]
}

// Bool returns the Boolean model.
func (m Models) Bool() *Model[bool] {
	return m.b
}

// Rat returns the rational model.
func (m Models) Rat() *Model[*big.Rat] {
	return m.r
}

// Eval evaluates a literal in the Boolean model.
func Eval(m *Model[bool], l lit.Lit) tribool.Tribool {
	if l == lit.Undef || !m.IsDefined(l.Ord()) {
		return tribool.Undef
	}
	return tribool.NewFromBool(m.Value(l.Ord()) != l.Sign())
}

// EvalClause evaluates a clause in the Boolean model. A clause is true if
// some literal is true, false if all literals are false, and undefined
// otherwise.
func EvalClause(m *Model[bool], c *Clause) tribool.Tribool {
	result := tribool.False
	for _, l := range c.Lits() {
		switch Eval(m, l) {
		case tribool.True:
			return tribool.True
		case tribool.Undef:
			result = tribool.Undef
		}
	}
	return result
}
