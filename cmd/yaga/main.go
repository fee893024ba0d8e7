// Command yaga solves SMT-LIB files over quantifier-free linear real
// arithmetic. Exit codes: 0 sat, 10 unsat, 20 unknown, anything else is an
// error.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stepanhen/yaga"
	"github.com/stepanhen/yaga/config"
	"github.com/stepanhen/yaga/encoding"
	"github.com/stepanhen/yaga/order"
	"github.com/stepanhen/yaga/solver"
)

const (
	exitSat     = 0
	exitUnsat   = 10
	exitUnknown = 20
	exitError   = 1
)

type options struct {
	phase     string
	varOrder  string
	timeout   time.Duration
	verbose   bool
	noBounds  bool
	noImplied bool
}

func main() {
	opts := &options{}
	root := &cobra.Command{
		Use:           "yaga",
		Short:         "yaga is an MCSat SMT solver for linear real arithmetic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	solveCmd := &cobra.Command{
		Use:   "solve <input-file>",
		Short: "decide satisfiability of an SMT-LIB input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return solve(args[0], opts)
		},
	}
	addFlags(solveCmd.Flags(), opts)
	root.AddCommand(solveCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitError)
	}
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.phase, "phase", "cache", "Boolean decision polarity: positive, negative or cache")
	flags.StringVar(&opts.varOrder, "order", "first", "variable order: first or activity")
	flags.DurationVar(&opts.timeout, "timeout", 0, "give up after this long (0 means no limit)")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	flags.BoolVar(&opts.noBounds, "no-prop-bounds", false, "disable bound-implication propagation")
	flags.BoolVar(&opts.noImplied, "no-prop-unassigned", false, "disable semantic propagation of entailed atoms")
}

func solve(path string, opts *options) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	smt := yaga.New(cfg)
	if opts.varOrder == "activity" {
		smt.Solver().SetVariableOrder(order.NewActivity(cfg))
	}

	script, err := encoding.Parse(f, smt.Terms())
	if err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	for _, assertion := range script.Assertions {
		if err := smt.AssertFormula(assertion); err != nil {
			return errors.Wrap(err, "assert")
		}
	}

	ctx := context.Background()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := smt.Check(ctx)
	if err != nil {
		return err
	}
	logStats(cfg.Logger, smt.Solver(), time.Since(start))

	fmt.Println(result)
	switch result {
	case solver.Sat:
		os.Exit(exitSat)
	case solver.Unsat:
		os.Exit(exitUnsat)
	}
	os.Exit(exitUnknown)
	return nil
}

func buildConfig(opts *options) (*config.Config, error) {
	cfg := config.New()
	phase, err := config.ParsePhase(opts.phase)
	if err != nil {
		return nil, err
	}
	cfg.BoolPhase = phase
	cfg.PropBounds = !opts.noBounds
	cfg.PropUnassigned = !opts.noImplied
	if opts.verbose {
		cfg.Logger.SetLevel(logrus.DebugLevel)
	}
	if opts.varOrder != "first" && opts.varOrder != "activity" {
		return nil, errors.Errorf("unknown variable order %q", opts.varOrder)
	}
	return cfg, nil
}

func logStats(logger *logrus.Logger, s *solver.Solver, elapsed time.Duration) {
	logger.WithFields(logrus.Fields{
		"time":            elapsed.Seconds(),
		"conflicts":       s.NumConflicts(),
		"learned_clauses": s.NumLearnedClauses(),
		"decisions":       s.NumDecisions(),
		"restarts":        s.NumRestarts(),
	}).Info("finished solving")
}
