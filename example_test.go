package yaga_test

import (
	"context"
	"fmt"
	"math/big"

	"github.com/stepanhen/yaga"
	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/lit"
	"github.com/stepanhen/yaga/lra"
)

// Solve a small mixed instance: (p or x <= 0) and not p and x >= 1 has no
// model, while dropping the last constraint has one.
func Example() {
	smt := yaga.New(config.New())
	p := smt.MakeVar(lit.Boolean)
	x := smt.MakeVar(lit.Rational)

	one := big.NewRat(1, 1)
	le0, _ := smt.Constrain([]lit.Var{x}, []*big.Rat{one}, lra.LE, new(big.Rat))
	lt1, _ := smt.Constrain([]lit.Var{x}, []*big.Rat{one}, lra.LT, one)

	smt.AssertClause(lit.New(p.Ord(), false), le0.Lit())
	smt.AssertClause(lit.New(p.Ord(), true))
	smt.AssertClause(lt1.Lit().Not()) // x >= 1

	result, _ := smt.Check(context.Background())
	fmt.Println(result)
	// Output: unsat
}
