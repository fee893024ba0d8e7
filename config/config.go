package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Phase selects the polarity of Boolean decisions.
type Phase int

const (
	// PhaseCache decides the last value the variable was assigned.
	PhaseCache Phase = iota
	// PhasePositive always decides true.
	PhasePositive
	// PhaseNegative always decides false.
	PhaseNegative
)

// ParsePhase parses a phase strategy name.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "cache":
		return PhaseCache, nil
	case "positive":
		return PhasePositive, nil
	case "negative":
		return PhaseNegative, nil
	}
	return PhaseCache, fmt.Errorf("unknown phase strategy %q", s)
}

// String implements the Stringer interface.
func (p Phase) String() string {
	switch p {
	case PhasePositive:
		return "positive"
	case PhaseNegative:
		return "negative"
	default:
		return "cache"
	}
}

// Config holds solver options.
type Config struct {
	// Logger is the solver's logger.
	Logger *logrus.Logger

	// BoolPhase is the polarity strategy for Boolean decisions.
	BoolPhase Phase
	// PropBounds enables bound-implication propagation in the LRA theory.
	PropBounds bool
	// PropUnassigned enables semantic propagation of unassigned atoms
	// entailed by current bounds.
	PropUnassigned bool
	// ReturnAllConflicts makes LRA propagation report every conflict found
	// in one pass instead of stopping at the first.
	ReturnAllConflicts bool

	// VarDecay is the variable activity decay constant of the activity
	// variable order.
	VarDecay float64
	// RestartBase is the conflict cap multiplier of the restart policy.
	RestartBase int
}

// New returns a config with default options.
func New() *Config {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return &Config{
		Logger:         logger,
		BoolPhase:      PhaseCache,
		PropBounds:     true,
		PropUnassigned: true,
		VarDecay:       0.95,
		RestartBase:    100,
	}
}
