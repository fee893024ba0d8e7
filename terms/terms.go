// Package terms provides a hash-consed table of formula terms: the
// ingestion surface that the solver facade internalizes into clauses and
// linear constraints.
package terms

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Kind identifies the structure of a term.
type Kind int

const (
	// KindConstant is the Boolean constant true.
	KindConstant Kind = iota
	// KindUninterpreted is an uninterpreted constant: a Boolean atom or a
	// free rational variable.
	KindUninterpreted
	// KindRational is a rational literal.
	KindRational
	// KindProduct is an arithmetic product coefficient * variable.
	KindProduct
	// KindPoly is an arithmetic polynomial: a sum of products and at most
	// one rational literal.
	KindPoly
	// KindGeqZero is the atom p >= 0.
	KindGeqZero
	// KindEqZero is the atom p = 0.
	KindEqZero
	// KindBinEq is the atom a = b over two non-composite arithmetic terms,
	// canonicalized so that a precedes b in the term order.
	KindBinEq
	// KindOr is a Boolean disjunction. Conjunction is expressed through
	// negation.
	KindOr
)

// Type is the sort of a term.
type Type int

const (
	// Bool is the Boolean sort.
	Bool Type = iota
	// Real is the rational sort.
	Real
)

// Term is a term handle. The least significant bit carries the polarity,
// so negation does not allocate.
type Term int

// Null is the invalid term.
const Null = Term(-1)

// Not negates a Boolean term.
func (t Term) Not() Term {
	return t ^ 1
}

// Positive reports whether the term has positive polarity.
func (t Term) Positive() bool {
	return t&1 == 0
}

// Pos strips the polarity.
func (t Term) Pos() Term {
	return t &^ 1
}

func (t Term) index() int {
	return int(t >> 1)
}

func positiveTerm(index int) Term {
	return Term(index << 1)
}

// descriptor is the stored shape of one positive term.
type descriptor struct {
	kind Kind
	typ  Type
	args []Term
	rat  *big.Rat
	name string
}

// Manager owns the term table. Composite terms are hash-consed: building
// the same term twice returns the same handle.
type Manager struct {
	table []descriptor
	known map[string]Term

	symbols map[string]Term
	names   map[Term]string
}

// NewManager returns a term table holding the primitive terms.
func NewManager() *Manager {
	m := &Manager{
		known:   map[string]Term{},
		symbols: map[string]Term{},
		names:   map[Term]string{},
	}
	// slot 0: the constant true
	m.table = append(m.table, descriptor{kind: KindConstant, typ: Bool})
	// slot 1: the rational zero
	m.table = append(m.table, descriptor{kind: KindRational, typ: Real, rat: new(big.Rat)})
	m.known[m.key(descriptor{kind: KindRational, typ: Real, rat: new(big.Rat)})] = positiveTerm(1)
	return m
}

// True returns the Boolean constant true.
func (m *Manager) True() Term {
	return positiveTerm(0)
}

// False returns the Boolean constant false.
func (m *Manager) False() Term {
	return m.True().Not()
}

// Zero returns the rational constant zero.
func (m *Manager) Zero() Term {
	return positiveTerm(1)
}

// Kind returns the kind of the term.
func (m *Manager) Kind(t Term) Kind {
	return m.table[t.index()].kind
}

// TypeOf returns the sort of the term.
func (m *Manager) TypeOf(t Term) Type {
	return m.table[t.index()].typ
}

// Args returns the arguments of a composite term.
func (m *Manager) Args(t Term) []Term {
	return m.table[t.index()].args
}

// RatValue returns the value of a rational literal, or the coefficient of
// a product.
func (m *Manager) RatValue(t Term) *big.Rat {
	return m.table[t.index()].rat
}

// NewBoolVar declares a fresh uninterpreted Boolean constant. It is never
// hash-consed.
func (m *Manager) NewBoolVar(name string) Term {
	return m.newUninterpreted(name, Bool)
}

// NewRealVar declares a fresh uninterpreted rational constant. It is never
// hash-consed.
func (m *Manager) NewRealVar(name string) Term {
	return m.newUninterpreted(name, Real)
}

func (m *Manager) newUninterpreted(name string, typ Type) Term {
	t := positiveTerm(len(m.table))
	m.table = append(m.table, descriptor{kind: KindUninterpreted, typ: typ, name: name})
	if name != "" {
		m.SetTermName(t, name)
	}
	return t
}

// SetTermName binds a symbol to a term.
func (m *Manager) SetTermName(t Term, name string) {
	m.symbols[name] = t
	m.names[t] = name
}

// ByName resolves a symbol, returning Null when unbound.
func (m *Manager) ByName(name string) Term {
	if t, ok := m.symbols[name]; ok {
		return t
	}
	return Null
}

// Name returns the symbol of a term, or its printed form.
func (m *Manager) Name(t Term) string {
	if name, ok := m.names[t.Pos()]; ok {
		if !t.Positive() {
			return "not " + name
		}
		return name
	}
	return fmt.Sprintf("t%d", t.index())
}

// RatConst interns a rational literal.
func (m *Manager) RatConst(value *big.Rat) Term {
	return m.intern(descriptor{kind: KindRational, typ: Real, rat: new(big.Rat).Set(value)})
}

// Product interns the arithmetic product coef * v. v must be an
// uninterpreted rational constant.
func (m *Manager) Product(coef *big.Rat, v Term) Term {
	return m.intern(descriptor{kind: KindProduct, typ: Real, args: []Term{v}, rat: new(big.Rat).Set(coef)})
}

// Poly interns a polynomial over products and rational literals.
func (m *Manager) Poly(args ...Term) Term {
	if len(args) == 1 {
		return args[0]
	}
	sorted := append([]Term(nil), args...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return m.intern(descriptor{kind: KindPoly, typ: Real, args: sorted})
}

// GeqZero interns the atom p >= 0.
func (m *Manager) GeqZero(p Term) Term {
	return m.intern(descriptor{kind: KindGeqZero, typ: Bool, args: []Term{p}})
}

// EqZero interns the atom p = 0.
func (m *Manager) EqZero(p Term) Term {
	return m.intern(descriptor{kind: KindEqZero, typ: Bool, args: []Term{p}})
}

// BinEq interns the atom a = b. The arguments must be non-composite
// arithmetic terms; they are swapped if needed so the smaller handle comes
// first.
func (m *Manager) BinEq(a, b Term) Term {
	if b < a {
		a, b = b, a
	}
	return m.intern(descriptor{kind: KindBinEq, typ: Bool, args: []Term{a, b}})
}

// Or interns a disjunction. Duplicate arguments collapse, a true argument
// or a complementary pair folds to true, and single-argument disjunctions
// are transparent.
func (m *Manager) Or(args ...Term) Term {
	seen := map[Term]bool{}
	flat := make([]Term, 0, len(args))
	for _, a := range args {
		if a == m.True() {
			return m.True()
		}
		if a == m.False() || seen[a] {
			continue
		}
		if seen[a.Not()] {
			return m.True()
		}
		seen[a] = true
		flat = append(flat, a)
	}
	switch len(flat) {
	case 0:
		return m.False()
	case 1:
		return flat[0]
	}
	sort.Slice(flat, func(i, j int) bool { return flat[i] < flat[j] })
	return m.intern(descriptor{kind: KindOr, typ: Bool, args: flat})
}

// And is the disjunction's dual, expressed through negation.
func (m *Manager) And(args ...Term) Term {
	negated := make([]Term, len(args))
	for i, a := range args {
		negated[i] = a.Not()
	}
	return m.Or(negated...).Not()
}

// Implies returns a => b.
func (m *Manager) Implies(a, b Term) Term {
	return m.Or(a.Not(), b)
}

func (m *Manager) intern(d descriptor) Term {
	key := m.key(d)
	if t, ok := m.known[key]; ok {
		return t
	}
	t := positiveTerm(len(m.table))
	m.table = append(m.table, d)
	m.known[key] = t
	return t
}

func (m *Manager) key(d descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d", d.kind, d.typ)
	if d.rat != nil {
		fmt.Fprintf(&b, "|%s", d.rat.RatString())
	}
	for _, a := range d.args {
		fmt.Fprintf(&b, "|%d", a)
	}
	return b.String()
}
