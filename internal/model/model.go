package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Experiment is one invocation of the harness: a top-level seed, a number of
// trials, and the reward values tested in the order supplied.
type Experiment struct {
	ID        string    `json:"id"`
	Seed      int64     `json:"seed"`
	Trials    int       `json:"trials"`
	Rewards   []float64 `json:"rewards"`
	Labels    []string  `json:"labels"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is the outcome of one (trial, reward) pair.
type Run struct {
	Trial       int        `json:"trial"`
	RewardIndex int        `json:"reward_index"`
	Reward      float64    `json:"reward"`
	Seed        int64      `json:"seed"`
	Winner      string     `json:"winner"`
	Generations []Snapshot `json:"generations"`
}

// Fixated reports whether the final generation holds a single strategy.
func (r *Run) Fixated() bool {
	if len(r.Generations) == 0 {
		return false
	}
	last := r.Generations[len(r.Generations)-1]
	nonzero := 0
	for _, c := range last.Counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero == 1
}

// ProgressEvent is published to progress observers after each Run.
type ProgressEvent struct {
	ExperimentID string `json:"experiment_id"`
	Completed    int    `json:"completed"`
	Total        int    `json:"total"`
	Label        string `json:"label"`
	Color        string `json:"color"`
}

// CheckRewards rejects an empty reward list and any value that is not a
// finite number.
func CheckRewards(rewards []float64) error {
	if len(rewards) == 0 {
		return &ConfigurationError{Field: "rewards", Reason: "no reward values"}
	}
	for _, r := range rewards {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return &ConfigurationError{Field: "rewards", Reason: fmt.Sprintf("%v is not a finite number", r)}
		}
	}
	return nil
}

// FormatReward renders a reward value for file names and the overview as the
// shortest round-trip decimal. Plain notation always carries a fractional
// part (3 -> "3.0"); exponents below -4 or from 16 up switch to scientific
// notation with a signed two-digit exponent (1e16 -> "1e+16").
func FormatReward(r float64) string {
	switch {
	case math.IsNaN(r):
		return "nan"
	case math.IsInf(r, 1):
		return "inf"
	case math.IsInf(r, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(r, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && r != 0 && (exp < -4 || exp >= 16) {
		return sci
	}
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
