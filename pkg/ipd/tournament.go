package ipd

import (
	"errors"
	"math/rand"
	"sort"
)

// ErrNoPlayers is returned when a tournament or process is built without players.
var ErrNoPlayers = errors.New("no players")

// Tournament is a round robin between distinct players, repeated a fixed
// number of times with one seeded random source.
type Tournament struct {
	Players     []Strategy
	Turns       int
	Repetitions int
	Game        Game
	Seed        int64
}

// Standing is one player's row in the tournament table.
type Standing struct {
	Name  string
	Score float64
	Wins  int
}

// TournamentResult holds standings ranked best-first.
type TournamentResult struct {
	Standings []Standing
}

// RankedNames returns player labels best-first.
func (r *TournamentResult) RankedNames() []string {
	names := make([]string, len(r.Standings))
	for i, s := range r.Standings {
		names[i] = s.Name
	}
	return names
}

// Play runs every pairing and ranks players by cumulative score descending.
// Ties keep the order in which players were supplied.
func (t *Tournament) Play() (*TournamentResult, error) {
	if len(t.Players) == 0 {
		return nil, ErrNoPlayers
	}
	reps := t.Repetitions
	if reps < 1 {
		reps = 1
	}
	rng := rand.New(rand.NewSource(t.Seed))

	standings := make([]Standing, len(t.Players))
	for i, p := range t.Players {
		standings[i].Name = p.Name
	}

	for rep := 0; rep < reps; rep++ {
		for i := 0; i < len(t.Players); i++ {
			for j := i + 1; j < len(t.Players); j++ {
				a, b := t.Players[i], t.Players[j]
				res := Play(a, b, t.Turns, t.Game, rng)
				standings[i].Score += res.ScoreA
				standings[j].Score += res.ScoreB
				switch res.Winner(a, b) {
				case a.Name:
					standings[i].Wins++
				case b.Name:
					standings[j].Wins++
				}
			}
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	return &TournamentResult{Standings: standings}, nil
}
