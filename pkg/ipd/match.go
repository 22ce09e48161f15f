package ipd

import "math/rand"

// MatchResult holds the move history and total payoffs of one match.
type MatchResult struct {
	MovesA []Action
	MovesB []Action
	ScoreA float64
	ScoreB float64
}

// Winner returns the label of the higher scorer, or "" on a tie.
func (r *MatchResult) Winner(a, b Strategy) string {
	switch {
	case r.ScoreA > r.ScoreB:
		return a.Name
	case r.ScoreB > r.ScoreA:
		return b.Name
	}
	return ""
}

// Play runs a match of the given number of turns between a and b.
// Stochastic strategies draw from rng; a deterministic pairing never touches it.
// A strategy that does not obey the rules decides after a rule-abiding
// opponent and sees its move; two rule breakers see nothing.
func Play(a, b Strategy, turns int, game Game, rng *rand.Rand) *MatchResult {
	res := &MatchResult{
		MovesA: make([]Action, 0, turns),
		MovesB: make([]Action, 0, turns),
	}
	va := View{Turns: turns, rng: rng}
	vb := View{Turns: turns, rng: rng}
	for i := 0; i < turns; i++ {
		va.Own, va.Opponent = res.MovesA, res.MovesB
		vb.Own, vb.Opponent = res.MovesB, res.MovesA
		ma, mb := decidePair(a, b, &va, &vb)
		sa, sb := game.Score(ma, mb)
		res.ScoreA += sa
		res.ScoreB += sb
		res.MovesA = append(res.MovesA, ma)
		res.MovesB = append(res.MovesB, mb)
	}
	return res
}

func decidePair(a, b Strategy, va, vb *View) (Action, Action) {
	va.next, vb.next = nil, nil
	switch {
	case !ObeysRules(a) && ObeysRules(b):
		mb := b.Decide(vb)
		va.next = &mb
		return a.Decide(va), mb
	case ObeysRules(a) && !ObeysRules(b):
		ma := a.Decide(va)
		vb.next = &ma
		return ma, b.Decide(vb)
	}
	return a.Decide(va), b.Decide(vb)
}
