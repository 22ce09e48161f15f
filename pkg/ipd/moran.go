package ipd

import (
	"errors"
	"math/rand"
	"sort"
)

// ErrEmptyPopulation is returned when a Moran process has no individuals.
var ErrEmptyPopulation = errors.New("empty population")

// Population maps a strategy label to the number of individuals playing it.
type Population map[string]int

// Total returns the number of individuals.
func (p Population) Total() int {
	n := 0
	for _, c := range p {
		n += c
	}
	return n
}

// MoranConfig configures a MoranProcess.
type MoranConfig struct {
	Turns          int   // match length between two individuals
	Game           Game  // payoff matrix
	Seed           int64 // random source for selection and stochastic play
	MaxGenerations int   // 0 = run until fixation
}

// MoranProcess is a birth-death process over a fixed-size population. Each
// generation every pair of individuals plays one match; one individual is
// chosen to reproduce with probability proportional to its total score and
// its clone replaces a uniformly chosen other individual.
type MoranProcess struct {
	cfg         MoranConfig
	players     []Strategy
	rng         *rand.Rand
	cache       map[[2]string][2]float64
	populations []Population
	winner      string
	fixated     bool
}

// NewMoranProcess copies players into a new process.
func NewMoranProcess(players []Strategy, cfg MoranConfig) (*MoranProcess, error) {
	if len(players) == 0 {
		return nil, ErrEmptyPopulation
	}
	if cfg.Turns < 1 {
		return nil, errors.New("turns must be positive")
	}
	m := &MoranProcess{
		cfg:     cfg,
		players: append([]Strategy(nil), players...),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		cache:   make(map[[2]string][2]float64),
	}
	m.record()
	return m, nil
}

// Play runs the process to fixation or the generation cap and returns the
// population at every generation, starting with the initial one.
func (m *MoranProcess) Play() []Population {
	for !m.fixated {
		if m.cfg.MaxGenerations > 0 && len(m.populations) > m.cfg.MaxGenerations {
			m.winner = majority(m.populations[len(m.populations)-1])
			break
		}
		m.step()
	}
	return m.populations
}

// Fixated reports whether a single strategy remains.
func (m *MoranProcess) Fixated() bool {
	return m.fixated
}

// Winner is the surviving label on fixation. When the generation cap is hit
// first it is the most numerous label, ties broken lexicographically.
func (m *MoranProcess) Winner() string {
	return m.winner
}

func (m *MoranProcess) step() {
	scores := m.scoreAll()
	birth := m.birth(scores)
	death := m.death(birth)
	m.players[death] = m.players[birth]
	m.record()
}

func (m *MoranProcess) record() {
	pop := make(Population)
	for _, p := range m.players {
		pop[p.Name]++
	}
	m.populations = append(m.populations, pop)
	if len(pop) == 1 {
		m.fixated = true
		m.winner = m.players[0].Name
	}
}

func (m *MoranProcess) scoreAll() []float64 {
	scores := make([]float64, len(m.players))
	for i := 0; i < len(m.players); i++ {
		for j := i + 1; j < len(m.players); j++ {
			a, b := m.matchScores(m.players[i], m.players[j])
			scores[i] += a
			scores[j] += b
		}
	}
	return scores
}

// matchScores caches pairings where neither side is stochastic; those
// never draw from the random source so caching does not change the stream.
func (m *MoranProcess) matchScores(a, b Strategy) (float64, float64) {
	if a.Stochastic() || b.Stochastic() {
		res := Play(a, b, m.cfg.Turns, m.cfg.Game, m.rng)
		return res.ScoreA, res.ScoreB
	}
	key := [2]string{a.Name, b.Name}
	if s, ok := m.cache[key]; ok {
		return s[0], s[1]
	}
	res := Play(a, b, m.cfg.Turns, m.cfg.Game, m.rng)
	m.cache[key] = [2]float64{res.ScoreA, res.ScoreB}
	return res.ScoreA, res.ScoreB
}

func (m *MoranProcess) birth(scores []float64) int {
	total := 0.0
	for _, s := range scores {
		total += s
	}
	if total <= 0 {
		return m.rng.Intn(len(scores))
	}
	r := m.rng.Float64() * total
	acc := 0.0
	for i, s := range scores {
		acc += s
		if r < acc {
			return i
		}
	}
	return len(scores) - 1
}

func (m *MoranProcess) death(birth int) int {
	k := m.rng.Intn(len(m.players) - 1)
	if k >= birth {
		k++
	}
	return k
}

func majority(pop Population) string {
	labels := make([]string, 0, len(pop))
	for l := range pop {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	best := ""
	for _, l := range labels {
		if best == "" || pop[l] > pop[best] {
			best = l
		}
	}
	return best
}
