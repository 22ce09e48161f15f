package ipd

import (
	"fmt"
	"math/rand"
)

// Classifier describes properties of a strategy that callers filter on.
type Classifier struct {
	Stochastic bool // draws from the match random source
	UsesLength bool // reads the match length
	ObeysRules bool // plays only from the public history of the match
}

// View is what a strategy sees when choosing its next move.
type View struct {
	Own      []Action
	Opponent []Action
	Turns    int // match length
	rng      *rand.Rand

	next *Action // opponent's move this round, set only for rule breakers
}

// Round returns the zero-based index of the round being decided.
func (v *View) Round() int {
	return len(v.Own)
}

// Remaining returns how many rounds are left including the current one.
func (v *View) Remaining() int {
	return v.Turns - len(v.Own)
}

// OpponentLast returns the opponent's previous move, or C on the first round.
func (v *View) OpponentLast() Action {
	if len(v.Opponent) == 0 {
		return C
	}
	return v.Opponent[len(v.Opponent)-1]
}

// OpponentDefections counts the opponent's defections so far.
func (v *View) OpponentDefections() int {
	n := 0
	for _, a := range v.Opponent {
		if a == D {
			n++
		}
	}
	return n
}

// OpponentNext returns the move the opponent is about to make. ok is false
// unless the match handed it over, which only happens for strategies that do
// not obey the rules.
func (v *View) OpponentNext() (a Action, ok bool) {
	if v.next == nil {
		return 0, false
	}
	return *v.next, true
}

// RandomAction cooperates with probability p.
func (v *View) RandomAction(p float64) Action {
	if v.rng.Float64() < p {
		return C
	}
	return D
}

// Strategy is a named decision rule. Strategies are values and carry no
// per-match state; everything they need is derived from the View.
type Strategy struct {
	Name       string
	Classifier Classifier
	decide     func(v *View) Action
}

// Decide returns the next move for the given view.
func (s Strategy) Decide(v *View) Action {
	return s.decide(v)
}

func (s Strategy) String() string {
	return s.Name
}

// Stochastic reports whether the strategy draws from the random source.
func (s Strategy) Stochastic() bool {
	return s.Classifier.Stochastic
}

// ObeysRules is the eligibility predicate for the full-catalog roster.
func ObeysRules(s Strategy) bool {
	return s.Classifier.ObeysRules
}

func deterministic(name string, decide func(v *View) Action) Strategy {
	return Strategy{
		Name:       name,
		Classifier: Classifier{ObeysRules: true},
		decide:     decide,
	}
}

func stochastic(name string, decide func(v *View) Action) Strategy {
	return Strategy{
		Name:       name,
		Classifier: Classifier{Stochastic: true, ObeysRules: true},
		decide:     decide,
	}
}

func cycler(pattern string) Strategy {
	return deterministic("Cycler "+pattern, func(v *View) Action {
		return Action(pattern[v.Round()%len(pattern)])
	})
}

// Random cooperates with probability p each round.
func Random(p float64) Strategy {
	return stochastic(fmt.Sprintf("Random: %g", p), func(v *View) Action {
		return v.RandomAction(p)
	})
}

// GTFT is generous tit for tat: it forgives a defection with probability p.
func GTFT(p float64) Strategy {
	return stochastic(fmt.Sprintf("GTFT: %g", p), func(v *View) Action {
		if v.OpponentLast() == C {
			return C
		}
		return v.RandomAction(p)
	})
}

var (
	Cooperator = deterministic("Cooperator", func(*View) Action { return C })
	Defector   = deterministic("Defector", func(*View) Action { return D })

	TitForTat = deterministic("Tit For Tat", func(v *View) Action {
		return v.OpponentLast()
	})

	TitFor2Tats = deterministic("Tit For 2 Tats", func(v *View) Action {
		n := len(v.Opponent)
		if n >= 2 && v.Opponent[n-1] == D && v.Opponent[n-2] == D {
			return D
		}
		return C
	})

	TwoTitsForTat = deterministic("Two Tits For Tat", func(v *View) Action {
		n := len(v.Opponent)
		for i := n - 1; i >= 0 && i >= n-2; i-- {
			if v.Opponent[i] == D {
				return D
			}
		}
		return C
	})

	SuspiciousTitForTat = deterministic("Suspicious Tit For Tat", func(v *View) Action {
		if v.Round() == 0 {
			return D
		}
		return v.OpponentLast()
	})

	Grudger = deterministic("Grudger", func(v *View) Action {
		if v.OpponentDefections() > 0 {
			return D
		}
		return C
	})

	Alternator = deterministic("Alternator", func(v *View) Action {
		if v.Round()%2 == 0 {
			return C
		}
		return D
	})

	WinStayLoseShift = deterministic("Win-Stay Lose-Shift", func(v *View) Action {
		if v.Round() == 0 {
			return C
		}
		last := v.Own[len(v.Own)-1]
		if v.OpponentLast() == C {
			return last
		}
		return last.Flip()
	})

	Bully = deterministic("Bully", func(v *View) Action {
		if v.Round() == 0 {
			return D
		}
		return v.OpponentLast().Flip()
	})

	Prober = deterministic("Prober", func(v *View) Action {
		switch v.Round() {
		case 0:
			return D
		case 1, 2:
			return C
		}
		if v.Opponent[1] == C && v.Opponent[2] == C {
			return D
		}
		return v.OpponentLast()
	})

	SoftGoByMajority = deterministic("Soft Go By Majority", func(v *View) Action {
		d := v.OpponentDefections()
		if len(v.Opponent)-d >= d {
			return C
		}
		return D
	})

	HardGoByMajority = deterministic("Hard Go By Majority", func(v *View) Action {
		d := v.OpponentDefections()
		if len(v.Opponent)-d > d {
			return C
		}
		return D
	})

	FoolMeOnce = deterministic("Fool Me Once", func(v *View) Action {
		if v.OpponentDefections() > 1 {
			return D
		}
		return C
	})

	SpitefulTitForTat = deterministic("Spiteful Tit For Tat", func(v *View) Action {
		for i := 1; i < len(v.Opponent); i++ {
			if v.Opponent[i] == D && v.Opponent[i-1] == D {
				return D
			}
		}
		return v.OpponentLast()
	})

	Handshake = deterministic("Handshake", func(v *View) Action {
		switch v.Round() {
		case 0:
			return C
		case 1:
			return D
		}
		if v.Opponent[0] == C && v.Opponent[1] == D {
			return C
		}
		return D
	})

	BackStabber = Strategy{
		Name:       "BackStabber",
		Classifier: Classifier{UsesLength: true, ObeysRules: true},
		decide: func(v *View) Action {
			if v.Remaining() <= 2 {
				return D
			}
			if v.OpponentDefections() > 3 {
				return D
			}
			return C
		},
	}

	// Geller reads the opponent's coming move and mirrors it.
	Geller = Strategy{
		Name:       "Geller",
		Classifier: Classifier{},
		decide: func(v *View) Action {
			if a, ok := v.OpponentNext(); ok {
				return a
			}
			return C
		},
	}

	CyclerCCD = cycler("CCD")
	CyclerDDC = cycler("DDC")
)
