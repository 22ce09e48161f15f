package model

import (
	"fmt"
)

// ConfigurationError is raised before any Run starts when the experiment
// cannot be set up: empty roster or catalog, no trials, no rewards.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// SimulationError wraps an engine failure with the Run it happened in.
type SimulationError struct {
	Trial  int
	Reward float64
	Seed   int64
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation (trial %d, reward %s, seed %d): %v", e.Trial, FormatReward(e.Reward), e.Seed, e.Err)
}

func (e *SimulationError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a filesystem or database failure.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
