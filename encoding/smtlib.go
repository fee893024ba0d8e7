// Package encoding reads a subset of the SMT-LIB 2 format: declarations of
// Bool and Real constants, assertions over and/or/not/=>, linear
// arithmetic comparisons and check-sat.
package encoding

import (
	"bufio"
	"io"
	"math/big"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/stepanhen/yaga/terms"
)

// Script is a parsed input file: the asserted formulas in order.
type Script struct {
	Assertions []terms.Term
}

// node is one s-expression: either an atom or a list.
type node struct {
	atom string
	list []node
}

// Parse reads SMT-LIB commands from r and internalizes them into the term
// manager.
func Parse(r io.Reader, tm *terms.Manager) (*Script, error) {
	tokens, err := tokenize(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}

	script := &Script{}
	for len(tokens) > 0 {
		var cmd node
		cmd, tokens, err = parseNode(tokens)
		if err != nil {
			return nil, err
		}
		if err := evalCommand(cmd, tm, script); err != nil {
			return nil, err
		}
	}
	return script, nil
}

func tokenize(r *bufio.Reader) ([]string, error) {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	for {
		c, _, err := r.ReadRune()
		if err == io.EOF {
			flush()
			return tokens, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "read input")
		}
		switch {
		case c == ';':
			flush()
			if _, err := r.ReadString('\n'); err != nil && err != io.EOF {
				return nil, errors.Wrap(err, "read input")
			}
		case c == '(' || c == ')':
			flush()
			tokens = append(tokens, string(c))
		case unicode.IsSpace(c):
			flush()
		default:
			current.WriteRune(c)
		}
	}
}

func parseNode(tokens []string) (node, []string, error) {
	if len(tokens) == 0 {
		return node{}, nil, errors.New("unexpected end of input")
	}
	tok := tokens[0]
	tokens = tokens[1:]
	if tok == ")" {
		return node{}, nil, errors.New("unexpected ')'")
	}
	if tok != "(" {
		return node{atom: tok}, tokens, nil
	}
	n := node{list: []node{}}
	for {
		if len(tokens) == 0 {
			return node{}, nil, errors.New("missing ')'")
		}
		if tokens[0] == ")" {
			return n, tokens[1:], nil
		}
		var child node
		var err error
		child, tokens, err = parseNode(tokens)
		if err != nil {
			return node{}, nil, err
		}
		n.list = append(n.list, child)
	}
}

func evalCommand(cmd node, tm *terms.Manager, script *Script) error {
	if cmd.list == nil || len(cmd.list) == 0 {
		return errors.Errorf("unexpected token %q", cmd.atom)
	}
	head := cmd.list[0].atom
	switch head {
	case "set-logic", "set-info", "set-option", "check-sat", "get-model", "exit", "push", "pop":
		return nil

	case "declare-fun":
		if len(cmd.list) != 4 || len(cmd.list[2].list) != 0 {
			return errors.New("declare-fun expects a constant declaration")
		}
		return declare(tm, cmd.list[1].atom, cmd.list[3].atom)

	case "declare-const":
		if len(cmd.list) != 3 {
			return errors.New("declare-const expects a name and a sort")
		}
		return declare(tm, cmd.list[1].atom, cmd.list[2].atom)

	case "assert":
		if len(cmd.list) != 2 {
			return errors.New("assert expects one formula")
		}
		t, err := evalFormula(cmd.list[1], tm)
		if err != nil {
			return err
		}
		script.Assertions = append(script.Assertions, t)
		return nil
	}
	return errors.Errorf("unsupported command %q", head)
}

func declare(tm *terms.Manager, name, sort string) error {
	if tm.ByName(name) != terms.Null {
		return errors.Errorf("symbol %q is already declared", name)
	}
	switch sort {
	case "Bool":
		tm.NewBoolVar(name)
	case "Real":
		tm.NewRealVar(name)
	default:
		return errors.Errorf("unsupported sort %q", sort)
	}
	return nil
}

func evalFormula(n node, tm *terms.Manager) (terms.Term, error) {
	if n.list == nil {
		switch n.atom {
		case "true":
			return tm.True(), nil
		case "false":
			return tm.False(), nil
		}
		t := tm.ByName(n.atom)
		if t == terms.Null || tm.TypeOf(t) != terms.Bool {
			return terms.Null, errors.Errorf("%q is not a Boolean symbol", n.atom)
		}
		return t, nil
	}
	if len(n.list) == 0 {
		return terms.Null, errors.New("empty application")
	}
	head := n.list[0].atom
	args := n.list[1:]

	switch head {
	case "not":
		if len(args) != 1 {
			return terms.Null, errors.New("not expects one argument")
		}
		t, err := evalFormula(args[0], tm)
		if err != nil {
			return terms.Null, err
		}
		return t.Not(), nil

	case "and", "or":
		parts := make([]terms.Term, len(args))
		for i, a := range args {
			t, err := evalFormula(a, tm)
			if err != nil {
				return terms.Null, err
			}
			parts[i] = t
		}
		if head == "and" {
			return tm.And(parts...), nil
		}
		return tm.Or(parts...), nil

	case "=>":
		if len(args) != 2 {
			return terms.Null, errors.New("=> expects two arguments")
		}
		a, err := evalFormula(args[0], tm)
		if err != nil {
			return terms.Null, err
		}
		b, err := evalFormula(args[1], tm)
		if err != nil {
			return terms.Null, err
		}
		return tm.Implies(a, b), nil

	case "<=", "<", ">=", ">", "=", "distinct":
		if len(args) != 2 {
			return terms.Null, errors.Errorf("%s expects two arguments", head)
		}
		a, err := evalPoly(args[0], tm)
		if err != nil {
			return terms.Null, err
		}
		b, err := evalPoly(args[1], tm)
		if err != nil {
			return terms.Null, err
		}
		return comparison(tm, head, a, b)
	}
	return terms.Null, errors.Errorf("unsupported operator %q", head)
}

// poly is a linear polynomial under construction.
type poly struct {
	coefs    map[terms.Term]*big.Rat
	constant *big.Rat
}

func newPoly() poly {
	return poly{coefs: map[terms.Term]*big.Rat{}, constant: new(big.Rat)}
}

func (p poly) add(other poly, scale *big.Rat) {
	for v, c := range other.coefs {
		scaled := new(big.Rat).Mul(c, scale)
		if prev, ok := p.coefs[v]; ok {
			prev.Add(prev, scaled)
		} else {
			p.coefs[v] = scaled
		}
	}
	p.constant.Add(p.constant, new(big.Rat).Mul(other.constant, scale))
}

func (p poly) isConstant() bool {
	for _, c := range p.coefs {
		if c.Sign() != 0 {
			return false
		}
	}
	return true
}

// term converts the polynomial into a term-table polynomial.
func (p poly) term(tm *terms.Manager) terms.Term {
	args := []terms.Term{}
	for v, c := range p.coefs {
		if c.Sign() != 0 {
			args = append(args, tm.Product(c, v))
		}
	}
	if p.constant.Sign() != 0 || len(args) == 0 {
		args = append(args, tm.RatConst(p.constant))
	}
	return tm.Poly(args...)
}

func evalPoly(n node, tm *terms.Manager) (poly, error) {
	p := newPoly()
	one := big.NewRat(1, 1)
	if n.list == nil {
		if value, ok := new(big.Rat).SetString(n.atom); ok {
			p.constant.Set(value)
			return p, nil
		}
		t := tm.ByName(n.atom)
		if t == terms.Null || tm.TypeOf(t) != terms.Real {
			return poly{}, errors.Errorf("%q is not an arithmetic symbol", n.atom)
		}
		p.coefs[t] = new(big.Rat).Set(one)
		return p, nil
	}
	if len(n.list) == 0 {
		return poly{}, errors.New("empty application")
	}
	head := n.list[0].atom
	args := n.list[1:]

	switch head {
	case "+":
		for _, a := range args {
			q, err := evalPoly(a, tm)
			if err != nil {
				return poly{}, err
			}
			p.add(q, one)
		}
		return p, nil

	case "-":
		if len(args) == 1 {
			q, err := evalPoly(args[0], tm)
			if err != nil {
				return poly{}, err
			}
			p.add(q, big.NewRat(-1, 1))
			return p, nil
		}
		first := true
		for _, a := range args {
			q, err := evalPoly(a, tm)
			if err != nil {
				return poly{}, err
			}
			if first {
				p.add(q, one)
				first = false
			} else {
				p.add(q, big.NewRat(-1, 1))
			}
		}
		return p, nil

	case "*":
		if len(args) != 2 {
			return poly{}, errors.New("* expects two arguments")
		}
		a, err := evalPoly(args[0], tm)
		if err != nil {
			return poly{}, err
		}
		b, err := evalPoly(args[1], tm)
		if err != nil {
			return poly{}, err
		}
		if a.isConstant() {
			p.add(b, a.constant)
			return p, nil
		}
		if b.isConstant() {
			p.add(a, b.constant)
			return p, nil
		}
		return poly{}, errors.New("nonlinear product")

	case "/":
		if len(args) != 2 {
			return poly{}, errors.New("/ expects two arguments")
		}
		a, err := evalPoly(args[0], tm)
		if err != nil {
			return poly{}, err
		}
		b, err := evalPoly(args[1], tm)
		if err != nil {
			return poly{}, err
		}
		if !b.isConstant() || b.constant.Sign() == 0 {
			return poly{}, errors.New("division by a non-constant")
		}
		p.add(a, new(big.Rat).Inv(b.constant))
		return p, nil
	}
	return poly{}, errors.Errorf("unsupported arithmetic operator %q", head)
}

// comparison builds the atom for a <op> b as a term over a - b.
func comparison(tm *terms.Manager, op string, a, b poly) (terms.Term, error) {
	diff := newPoly()
	diff.add(a, big.NewRat(1, 1))
	diff.add(b, big.NewRat(-1, 1))

	switch op {
	case ">=":
		// a - b >= 0
		return tm.GeqZero(diff.term(tm)), nil
	case "<":
		// a < b is not (a >= b)
		return tm.GeqZero(diff.term(tm)).Not(), nil
	case "<=":
		// a <= b is b - a >= 0
		neg := newPoly()
		neg.add(diff, big.NewRat(-1, 1))
		return tm.GeqZero(neg.term(tm)), nil
	case ">":
		// a > b is not (b - a >= 0)
		neg := newPoly()
		neg.add(diff, big.NewRat(-1, 1))
		return tm.GeqZero(neg.term(tm)).Not(), nil
	case "=":
		return tm.EqZero(diff.term(tm)), nil
	case "distinct":
		return tm.EqZero(diff.term(tm)).Not(), nil
	}
	return terms.Null, errors.Errorf("unsupported comparison %q", op)
}
