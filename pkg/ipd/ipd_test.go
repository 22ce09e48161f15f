package ipd

import (
	"math/rand"
	"testing"
)

func movesString(moves []Action) string {
	b := make([]byte, len(moves))
	for i, m := range moves {
		b[i] = byte(m)
	}
	return string(b)
}

// --- Game tests ---

func TestGameScore(t *testing.T) {
	g := NewGame(4)
	tests := []struct {
		a, b   Action
		sa, sb float64
	}{
		{C, C, 4, 4},
		{C, D, 0, 5},
		{D, C, 5, 0},
		{D, D, 1, 1},
	}
	for _, tt := range tests {
		sa, sb := g.Score(tt.a, tt.b)
		if sa != tt.sa || sb != tt.sb {
			t.Errorf("Score(%s, %s) = (%g, %g), want (%g, %g)", tt.a, tt.b, sa, sb, tt.sa, tt.sb)
		}
	}
}

func TestNewGameOnlyChangesReward(t *testing.T) {
	g := NewGame(3.5)
	if g.S != DefaultGame.S || g.T != DefaultGame.T || g.P != DefaultGame.P {
		t.Errorf("expected S/T/P unchanged, got %v", g)
	}
	if g.R != 3.5 {
		t.Errorf("expected R=3.5, got %g", g.R)
	}
}

// --- Strategy tests ---

func TestStrategyMoves(t *testing.T) {
	tests := []struct {
		a, b         Strategy
		turns        int
		wantA, wantB string
	}{
		{TitForTat, Defector, 4, "CDDD", "DDDD"},
		{TitForTat, Alternator, 5, "CCDCD", "CDCDC"},
		{SuspiciousTitForTat, TitForTat, 4, "DCDC", "CDCD"},
		{Grudger, Alternator, 4, "CCDD", "CDCD"},
		{TitFor2Tats, Defector, 4, "CCDD", "DDDD"},
		{TwoTitsForTat, Alternator, 5, "CCDDD", "CDCDC"},
		{WinStayLoseShift, Defector, 4, "CDCD", "DDDD"},
		{Bully, Cooperator, 3, "DDD", "CCC"},
		{Prober, Cooperator, 5, "DCCDD", "CCCCC"},
		{Prober, TitForTat, 5, "DCCCC", "CDCCC"},
		{CyclerCCD, Cooperator, 5, "CCDCC", "CCCCC"},
		{CyclerDDC, Cooperator, 4, "DDCD", "CCCC"},
		{FoolMeOnce, Alternator, 5, "CCCCD", "CDCDC"},
		{SpitefulTitForTat, CyclerDDC, 5, "CDDDD", "DDCDD"},
		{Handshake, Handshake, 4, "CDCC", "CDCC"},
		{Handshake, Cooperator, 4, "CDDD", "CCCC"},
		{BackStabber, Cooperator, 5, "CCCDD", "CCCCC"},
		{HardGoByMajority, Cooperator, 3, "DCC", "CCC"},
		{SoftGoByMajority, Defector, 3, "CDD", "DDD"},
	}
	for _, tt := range tests {
		t.Run(tt.a.Name+" vs "+tt.b.Name, func(t *testing.T) {
			res := Play(tt.a, tt.b, tt.turns, DefaultGame, rand.New(rand.NewSource(1)))
			if got := movesString(res.MovesA); got != tt.wantA {
				t.Errorf("%s moves = %s, want %s", tt.a.Name, got, tt.wantA)
			}
			if got := movesString(res.MovesB); got != tt.wantB {
				t.Errorf("%s moves = %s, want %s", tt.b.Name, got, tt.wantB)
			}
		})
	}
}

func TestCatalogLabelsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range Catalog() {
		if s.Name == "" {
			t.Fatal("strategy with empty name")
		}
		if seen[s.Name] {
			t.Errorf("duplicate label %q", s.Name)
		}
		seen[s.Name] = true
	}
}

func TestLookup(t *testing.T) {
	s, err := Lookup("GTFT: 0.33")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !s.Stochastic() {
		t.Error("expected GTFT to be stochastic")
	}
	if _, err := Lookup("Nope"); err == nil {
		t.Error("expected error for unknown label")
	}
	if _, err := LookupAll([]string{"Grudger", "Nope"}); err == nil {
		t.Error("expected LookupAll to fail on unknown label")
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	got := Filter(Catalog(), func(s Strategy) bool { return !s.Stochastic() })
	prev := -1
	for _, s := range got {
		if s.Stochastic() {
			t.Errorf("stochastic strategy %q kept", s.Name)
		}
		idx := -1
		for i, c := range Catalog() {
			if c.Name == s.Name {
				idx = i
			}
		}
		if idx <= prev {
			t.Errorf("order not preserved at %q", s.Name)
		}
		prev = idx
	}
	eligible := Filter(Catalog(), ObeysRules)
	if len(eligible) != len(Catalog())-1 {
		t.Errorf("expected only Geller to be filtered out, kept %d of %d", len(eligible), len(Catalog()))
	}
	for _, s := range eligible {
		if s.Name == "Geller" {
			t.Error("Geller does not obey the rules")
		}
	}
}

// --- Tournament tests ---

func TestTournamentDeterministic(t *testing.T) {
	tour := Tournament{Players: Catalog(), Turns: 50, Repetitions: 2, Game: DefaultGame, Seed: 100}
	r1, err := tour.Play()
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	r2, err := tour.Play()
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	n1, n2 := r1.RankedNames(), r2.RankedNames()
	if len(n1) != len(Catalog()) {
		t.Fatalf("expected %d names, got %d", len(Catalog()), len(n1))
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("ranking differs at %d: %q vs %q", i, n1[i], n2[i])
		}
	}
	for i := 1; i < len(r1.Standings); i++ {
		if r1.Standings[i].Score > r1.Standings[i-1].Score {
			t.Errorf("standings not sorted at %d", i)
		}
	}
}

func TestTournamentRanksDefectorOverCooperator(t *testing.T) {
	tour := Tournament{Players: []Strategy{Cooperator, Defector}, Turns: 10, Game: DefaultGame}
	res, err := tour.Play()
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	names := res.RankedNames()
	if names[0] != "Defector" || names[1] != "Cooperator" {
		t.Errorf("unexpected ranking %v", names)
	}
	if res.Standings[0].Score != 50 || res.Standings[0].Wins != 1 {
		t.Errorf("unexpected defector standing %+v", res.Standings[0])
	}
}

func TestTournamentTieKeepsInputOrder(t *testing.T) {
	tour := Tournament{Players: []Strategy{Grudger, TitForTat, Cooperator}, Turns: 10, Game: DefaultGame}
	res, err := tour.Play()
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	want := []string{"Grudger", "Tit For Tat", "Cooperator"}
	for i, n := range res.RankedNames() {
		if n != want[i] {
			t.Fatalf("ranking = %v, want %v", res.RankedNames(), want)
		}
	}
}

func TestTournamentEmpty(t *testing.T) {
	tour := Tournament{Turns: 10}
	if _, err := tour.Play(); err != ErrNoPlayers {
		t.Errorf("expected ErrNoPlayers, got %v", err)
	}
}

// --- Moran tests ---

func TestMoranFixation(t *testing.T) {
	players := []Strategy{Cooperator, Defector, Cooperator, Defector}
	m, err := NewMoranProcess(players, MoranConfig{Turns: 10, Game: DefaultGame, Seed: 7})
	if err != nil {
		t.Fatalf("NewMoranProcess: %v", err)
	}
	pops := m.Play()
	if !m.Fixated() {
		t.Fatal("expected fixation")
	}
	for i, p := range pops {
		if p.Total() != 4 {
			t.Fatalf("generation %d has %d individuals, want 4", i, p.Total())
		}
	}
	if pops[0]["Cooperator"] != 2 || pops[0]["Defector"] != 2 {
		t.Errorf("unexpected initial population %v", pops[0])
	}
	last := pops[len(pops)-1]
	if len(last) != 1 || last[m.Winner()] != 4 {
		t.Errorf("last population %v does not match winner %q", last, m.Winner())
	}
}

func TestMoranDeterministic(t *testing.T) {
	players := []Strategy{TitForTat, Random(0.5), Defector, GTFT(0.33)}
	run := func() ([]Population, string) {
		m, err := NewMoranProcess(append(players, players...), MoranConfig{Turns: 20, Game: NewGame(3.5), Seed: 42})
		if err != nil {
			t.Fatalf("NewMoranProcess: %v", err)
		}
		return m.Play(), m.Winner()
	}
	p1, w1 := run()
	p2, w2 := run()
	if w1 != w2 || len(p1) != len(p2) {
		t.Fatalf("runs differ: %q/%d vs %q/%d", w1, len(p1), w2, len(p2))
	}
	for i := range p1 {
		for k, v := range p1[i] {
			if p2[i][k] != v {
				t.Fatalf("generation %d differs for %q", i, k)
			}
		}
	}
}

func TestMoranGenerationCap(t *testing.T) {
	players := []Strategy{Cooperator, Cooperator, Cooperator, Defector, Defector, TitForTat}
	m, err := NewMoranProcess(players, MoranConfig{Turns: 5, Game: DefaultGame, Seed: 3, MaxGenerations: 1})
	if err != nil {
		t.Fatalf("NewMoranProcess: %v", err)
	}
	pops := m.Play()
	if len(pops) != 2 {
		t.Fatalf("expected 2 snapshots with cap 1, got %d", len(pops))
	}
	if m.Fixated() {
		t.Fatal("six individuals cannot fixate in one step")
	}
	want := majority(pops[1])
	if m.Winner() != want {
		t.Errorf("winner = %q, want %q", m.Winner(), want)
	}
}

func TestMoranSingleStrategyIsFixated(t *testing.T) {
	m, err := NewMoranProcess([]Strategy{Grudger, Grudger}, MoranConfig{Turns: 5, Game: DefaultGame})
	if err != nil {
		t.Fatalf("NewMoranProcess: %v", err)
	}
	pops := m.Play()
	if len(pops) != 1 || m.Winner() != "Grudger" {
		t.Errorf("expected immediate fixation, got %d generations winner %q", len(pops), m.Winner())
	}
}

func TestMoranErrors(t *testing.T) {
	if _, err := NewMoranProcess(nil, MoranConfig{Turns: 5}); err != ErrEmptyPopulation {
		t.Errorf("expected ErrEmptyPopulation, got %v", err)
	}
	if _, err := NewMoranProcess([]Strategy{Defector}, MoranConfig{}); err == nil {
		t.Error("expected error for zero turns")
	}
}

func TestMajorityTieBreak(t *testing.T) {
	if got := majority(Population{"B": 2, "A": 2, "C": 1}); got != "A" {
		t.Errorf("majority = %q, want A", got)
	}
}

func TestGellerMirrorsOpponentNextMove(t *testing.T) {
	tests := []struct {
		opp  Strategy
		want string
	}{
		{Alternator, "CDCDCD"},
		{SuspiciousTitForTat, "DDDDDD"},
		{Cooperator, "CCCCCC"},
		{Geller, "CCCCCC"},
	}
	for _, tt := range tests {
		res := Play(Geller, tt.opp, 6, DefaultGame, rand.New(rand.NewSource(1)))
		if got := movesString(res.MovesA); got != tt.want {
			t.Errorf("Geller vs %s = %s, want %s", tt.opp.Name, got, tt.want)
		}
		// order of the pair must not matter
		res = Play(tt.opp, Geller, 6, DefaultGame, rand.New(rand.NewSource(1)))
		if got := movesString(res.MovesB); got != tt.want {
			t.Errorf("%s vs Geller = %s, want %s", tt.opp.Name, got, tt.want)
		}
	}
}
