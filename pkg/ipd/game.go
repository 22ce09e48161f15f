// Package ipd implements the iterated prisoner's dilemma: a payoff matrix,
// a catalog of rule-based strategies, fixed-length matches, round robin
// tournaments, and a Moran birth-death population process.
package ipd

import "fmt"

// Action is a single move in one round of a match.
type Action byte

const (
	C Action = 'C' // cooperate
	D Action = 'D' // defect
)

func (a Action) String() string {
	return string(a)
}

// Flip returns the opposite action.
func (a Action) Flip() Action {
	if a == C {
		return D
	}
	return C
}

// Game is the payoff matrix of the prisoner's dilemma.
type Game struct {
	R float64 // reward for mutual cooperation
	S float64 // sucker's payoff
	T float64 // temptation to defect
	P float64 // punishment for mutual defection
}

// DefaultGame is the standard (R, S, T, P) = (3, 0, 5, 1) matrix.
var DefaultGame = Game{R: 3, S: 0, T: 5, P: 1}

// NewGame returns the standard matrix with the mutual-cooperation reward replaced.
func NewGame(reward float64) Game {
	g := DefaultGame
	g.R = reward
	return g
}

// Score returns the payoffs for the row and column player of one round.
func (g Game) Score(a, b Action) (float64, float64) {
	switch {
	case a == C && b == C:
		return g.R, g.R
	case a == C && b == D:
		return g.S, g.T
	case a == D && b == C:
		return g.T, g.S
	default:
		return g.P, g.P
	}
}

func (g Game) String() string {
	return fmt.Sprintf("Game(R=%g, S=%g, T=%g, P=%g)", g.R, g.S, g.T, g.P)
}
