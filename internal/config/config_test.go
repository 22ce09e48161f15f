package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/freeeve/reward-moran/internal/model"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Experiment.Seed != 100 || cfg.Experiment.Trials != 10 || cfg.Experiment.Copies != 3 || cfg.Experiment.Turns != 50 {
		t.Errorf("unexpected experiment defaults %+v", cfg.Experiment)
	}
	want := []float64{3.0, 3.5, 4.0, 4.5}
	if len(cfg.Experiment.Rewards) != len(want) {
		t.Fatalf("rewards = %v", cfg.Experiment.Rewards)
	}
	for i := range want {
		if cfg.Experiment.Rewards[i] != want[i] {
			t.Errorf("rewards = %v, want %v", cfg.Experiment.Rewards, want)
		}
	}
	if cfg.Qualifier.Top != 20 {
		t.Errorf("qualifier top = %d, want 20", cfg.Qualifier.Top)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moran.yaml")
	data := `experiment:
  trials: 2
  rewards: [4.5, 3.0]
  roster: [Cooperator, Defector]
qualifier:
  top: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Experiment.Trials != 2 || cfg.Experiment.Rewards[0] != 4.5 || len(cfg.Experiment.Roster) != 2 {
		t.Errorf("file values not applied: %+v", cfg.Experiment)
	}
	if cfg.Experiment.Seed != 100 || cfg.Experiment.Copies != 3 {
		t.Errorf("unset fields should keep defaults: %+v", cfg.Experiment)
	}
	if cfg.Qualifier.Top != 5 || cfg.Qualifier.Turns != 50 {
		t.Errorf("unexpected qualifier %+v", cfg.Qualifier)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MORAN_SEED", "7")
	t.Setenv("RESULTS_DIR", "/tmp/out")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Experiment.Seed != 7 || cfg.Experiment.ResultsDir != "/tmp/out" || cfg.RedisURL != "redis://cache:6379/1" {
		t.Errorf("env not applied: %+v", cfg)
	}

	t.Setenv("MORAN_SEED", "abc")
	_, err = Load("")
	var cfgErr *model.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("experiment: [1, 2"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"zero trials", func(c *Config) { c.Experiment.Trials = 0 }, "trials"},
		{"no rewards", func(c *Config) { c.Experiment.Rewards = nil }, "rewards"},
		{"nan reward", func(c *Config) { c.Experiment.Rewards = []float64{3, math.NaN()} }, "rewards"},
		{"infinite reward", func(c *Config) { c.Experiment.Rewards = []float64{math.Inf(1)} }, "rewards"},
		{"no copies", func(c *Config) { c.Experiment.Copies = 0 }, "copies"},
		{"zero turns", func(c *Config) { c.Experiment.Turns = 0 }, "turns"},
		{"zero workers", func(c *Config) { c.Experiment.Workers = 0 }, "workers"},
		{"negative cap", func(c *Config) { c.Experiment.MaxGenerations = -1 }, "max_generations"},
		{"no results dir", func(c *Config) { c.Experiment.ResultsDir = "" }, "results_dir"},
		{"zero top", func(c *Config) { c.Qualifier.Top = 0 }, "qualifier.top"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mut(cfg)
			var cfgErr *model.ConfigurationError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) || cfgErr.Field != tt.field {
				t.Errorf("Validate() = %v, want field %q", err, tt.field)
			}
		})
	}
}
