package experiment

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/internal/results"
	"github.com/freeeve/reward-moran/internal/roster"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

// fakeEngine returns canned outcomes and fails for selected seeds.
type fakeEngine struct {
	outcome  func(cfg EngineConfig) *Outcome
	failSeed map[int64]bool

	mu   sync.Mutex
	seen []EngineConfig
}

func (f *fakeEngine) Configure(cfg EngineConfig) (Simulation, error) {
	f.mu.Lock()
	f.seen = append(f.seen, cfg)
	f.mu.Unlock()
	if f.failSeed[cfg.Seed] {
		return nil, errors.New("boom")
	}
	return fakeSim{f.outcome(cfg)}, nil
}

type fakeSim struct{ out *Outcome }

func (s fakeSim) Run() (*Outcome, error) { return s.out, nil }

func twoStrategyRoster(t *testing.T) *roster.Roster {
	t.Helper()
	r, err := roster.New([]ipd.Strategy{ipd.Cooperator, ipd.Defector}, 2)
	if err != nil {
		t.Fatalf("roster.New: %v", err)
	}
	return r
}

func defectorWins(EngineConfig) *Outcome {
	return &Outcome{
		Populations: []ipd.Population{
			{"Cooperator": 2, "Defector": 2},
			{"Cooperator": 1, "Defector": 3},
			{"Defector": 4},
		},
		Winner: "Defector",
	}
}

func newRunner(t *testing.T, root string, engine Engine) *Runner {
	t.Helper()
	return &Runner{
		Roster: twoStrategyRoster(t),
		Engine: engine,
		Store:  results.NewStore(root),
		Turns:  10,
	}
}

// --- Driver tests ---

func TestDriverPassesRewardAndSeed(t *testing.T) {
	eng := &fakeEngine{outcome: defectorWins}
	d := &Driver{Engine: eng, Roster: twoStrategyRoster(t), Turns: 25}
	if _, err := d.RunOne(RunSpec{Trial: 1, Reward: 4.5, Seed: 77}); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	cfg := eng.seen[0]
	if cfg.Seed != 77 || cfg.Turns != 25 || cfg.Game.R != 4.5 || cfg.Game.T != 5 {
		t.Errorf("unexpected engine config %+v", cfg)
	}
	if len(cfg.Population) != 4 {
		t.Errorf("population size %d, want 4", len(cfg.Population))
	}
}

func TestDriverRejectsBrokenOutcomes(t *testing.T) {
	tests := []struct {
		name string
		out  *Outcome
	}{
		{"no generations", &Outcome{Winner: "Defector"}},
		{"not conserved", &Outcome{Populations: []ipd.Population{{"Defector": 3}}, Winner: "Defector"}},
		{"unknown label", &Outcome{Populations: []ipd.Population{{"Grudger": 4}}, Winner: "Defector"}},
		{"unknown winner", &Outcome{Populations: []ipd.Population{{"Defector": 4}}, Winner: "Grudger"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.out
			d := &Driver{Engine: &fakeEngine{outcome: func(EngineConfig) *Outcome { return out }}, Roster: twoStrategyRoster(t), Turns: 5}
			_, err := d.RunOne(RunSpec{Trial: 2, Reward: 3.0, Seed: 9})
			var simErr *model.SimulationError
			if !errors.As(err, &simErr) {
				t.Fatalf("expected SimulationError, got %v", err)
			}
			if simErr.Trial != 2 || simErr.Seed != 9 {
				t.Errorf("missing run context: %+v", simErr)
			}
		})
	}
}

func TestDriverEngineFailure(t *testing.T) {
	d := &Driver{Engine: MoranEngine{}, Roster: twoStrategyRoster(t), Turns: 0}
	_, err := d.RunOne(RunSpec{Trial: 1, Reward: 3.0, Seed: 1})
	var simErr *model.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
}

// --- Runner tests ---

func TestExperimentEndToEnd(t *testing.T) {
	root := filepath.Join(t.TempDir(), "results")
	r := newRunner(t, root, MoranEngine{})
	sum, err := r.Run(context.Background(), Params{Trials: 1, Rewards: []float64{3.0}, Seed: 100})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Completed != 1 || sum.Failed != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	store := results.NewStore(root)
	snaps, err := store.Load(1, 3.0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "trial-1", "trial-1_reward-3.0.json")); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if snaps[0].Total() != 4 {
		t.Errorf("first generation total = %d, want 4", snaps[0].Total())
	}
	last := snaps[len(snaps)-1]
	winner := ""
	for i, c := range last.Counts {
		if c == 4 {
			winner = last.Labels[i]
		} else if c != 0 {
			t.Errorf("last generation not fixated: %+v", last)
		}
	}
	if winner == "" {
		t.Fatalf("no label with count 4 in %+v", last)
	}

	entries, err := store.ReadOverview()
	if err != nil {
		t.Fatalf("ReadOverview: %v", err)
	}
	if len(entries) != 1 || entries[0].Winner != winner || entries[0].Reward != "3.0" {
		t.Errorf("unexpected overview %+v (winner %q)", entries, winner)
	}
	seed, _ := DeriveSeed(100, 1, 0, []float64{3.0})
	if entries[0].Seed != seed {
		t.Errorf("overview seed = %d, want %d", entries[0].Seed, seed)
	}
}

func TestExperimentDeterministic(t *testing.T) {
	params := Params{Trials: 2, Rewards: []float64{3.0, 4.5}, Seed: 100}
	read := func(root string) (string, map[string]string) {
		overview, err := os.ReadFile(filepath.Join(root, results.OverviewFile))
		if err != nil {
			t.Fatalf("read overview: %v", err)
		}
		files := make(map[string]string)
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err == nil && strings.HasSuffix(path, ".json") {
				data, _ := os.ReadFile(path)
				rel, _ := filepath.Rel(root, path)
				files[rel] = string(data)
			}
			return nil
		})
		return string(overview), files
	}

	rootA := filepath.Join(t.TempDir(), "a")
	rootB := filepath.Join(t.TempDir(), "b")
	rA := newRunner(t, rootA, MoranEngine{})
	rB := newRunner(t, rootB, MoranEngine{})
	rB.Workers = 3
	if _, err := rA.Run(context.Background(), params); err != nil {
		t.Fatalf("sequential Run: %v", err)
	}
	if _, err := rB.Run(context.Background(), params); err != nil {
		t.Fatalf("parallel Run: %v", err)
	}

	ovA, filesA := read(rootA)
	ovB, filesB := read(rootB)
	if ovA != ovB {
		t.Errorf("overview differs:\n%s\nvs\n%s", ovA, ovB)
	}
	if len(filesA) != 4 || len(filesA) != len(filesB) {
		t.Fatalf("expected 4 artifacts each, got %d and %d", len(filesA), len(filesB))
	}
	for name, data := range filesA {
		if filesB[name] != data {
			t.Errorf("artifact %s differs", name)
		}
	}
}

func TestExperimentConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"no trials", Params{Trials: 0, Rewards: []float64{3.0}}},
		{"no rewards", Params{Trials: 1}},
		{"nan reward", Params{Trials: 1, Rewards: []float64{3.0, math.NaN()}}},
		{"infinite reward", Params{Trials: 1, Rewards: []float64{math.Inf(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "results")
			r := newRunner(t, root, MoranEngine{})
			_, err := r.Run(context.Background(), tt.params)
			var cfgErr *model.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if _, err := os.Stat(root); !os.IsNotExist(err) {
				t.Error("nothing should be written before validation passes")
			}
		})
	}
}

func TestExperimentAbortsOnSimulationError(t *testing.T) {
	rewards := []float64{3.0, 3.5}
	failing, _ := DeriveSeed(5, 1, 1, rewards)
	root := t.TempDir()
	r := newRunner(t, root, &fakeEngine{outcome: defectorWins, failSeed: map[int64]bool{failing: true}})

	sum, err := r.Run(context.Background(), Params{Trials: 2, Rewards: rewards, Seed: 5})
	var simErr *model.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if simErr.Trial != 1 || simErr.Reward != 3.5 || simErr.Seed != failing {
		t.Errorf("unexpected error context %+v", simErr)
	}
	if sum.Completed != 1 {
		t.Errorf("expected 1 completed run before abort, got %d", sum.Completed)
	}
	if _, err := os.Stat(filepath.Join(root, "trial-1", "trial-1_reward-3.5.json")); !os.IsNotExist(err) {
		t.Error("failed run must not leave an artifact")
	}
	if _, err := os.Stat(filepath.Join(root, "trial-2")); !os.IsNotExist(err) {
		t.Error("batch should stop at the failed run")
	}
}

func TestExperimentContinueOnError(t *testing.T) {
	rewards := []float64{3.0, 3.5}
	failing, _ := DeriveSeed(5, 1, 1, rewards)
	for _, workers := range []int{1, 2} {
		root := t.TempDir()
		r := newRunner(t, root, &fakeEngine{outcome: defectorWins, failSeed: map[int64]bool{failing: true}})
		r.ContinueOnError = true
		r.Workers = workers

		sum, err := r.Run(context.Background(), Params{Trials: 2, Rewards: rewards, Seed: 5})
		if err != nil {
			t.Fatalf("workers=%d: Run: %v", workers, err)
		}
		if sum.Completed != 3 || sum.Failed != 1 {
			t.Errorf("workers=%d: unexpected summary %+v", workers, sum)
		}
		entries, err := results.NewStore(root).ReadOverview()
		if err != nil {
			t.Fatalf("ReadOverview: %v", err)
		}
		if len(entries) != 3 {
			t.Errorf("workers=%d: expected 3 overview entries, got %d", workers, len(entries))
		}
		later, _ := DeriveSeed(5, 2, 1, rewards)
		if entries[2].Seed != later {
			t.Errorf("workers=%d: later seeds must not shift after a failure", workers)
		}
	}
}

func TestExperimentProgress(t *testing.T) {
	var completed []int
	var colors []string
	obs := ObserverFunc(func(c, total int, label string) {
		completed = append(completed, c)
		colors = append(colors, ProgressColor(c, total))
	})

	r := newRunner(t, t.TempDir(), &fakeEngine{outcome: defectorWins})
	r.Observer = obs
	if _, err := r.Run(context.Background(), Params{Trials: 2, Rewards: []float64{3.0}, Seed: 1, ShowProgress: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []int{0, 1, 2}
	if len(completed) != len(want) {
		t.Fatalf("progress calls = %v, want %v", completed, want)
	}
	if colors[0] != "#ff0000" || colors[1] != "#ffff00" || colors[2] != "#00ff00" {
		t.Errorf("colors = %v", colors)
	}

	completed = nil
	r.Store = results.NewStore(t.TempDir())
	if _, err := r.Run(context.Background(), Params{Trials: 2, Rewards: []float64{3.0}, Seed: 1}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(completed) != 0 {
		t.Errorf("observer called with progress disabled: %v", completed)
	}
}

func TestExperimentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newRunner(t, t.TempDir(), &fakeEngine{outcome: defectorWins})
	if _, err := r.Run(ctx, Params{Trials: 1, Rewards: []float64{3.0}, Seed: 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
