// Package config loads harness settings: defaults, then an optional YAML
// file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/freeeve/reward-moran/internal/model"
)

// Config holds everything the CLI needs.
type Config struct {
	Experiment  ExperimentConfig `yaml:"experiment"`
	Qualifier   QualifierConfig  `yaml:"qualifier"`
	DatabaseURL string           `yaml:"database_url"`
	RedisURL    string           `yaml:"redis_url"`
	ListenAddr  string           `yaml:"listen_addr"`
	LogLevel    string           `yaml:"log_level"`
}

// ExperimentConfig configures a batch of Moran runs.
type ExperimentConfig struct {
	Trials          int       `yaml:"trials"`
	Rewards         []float64 `yaml:"rewards"`
	Seed            int64     `yaml:"seed"`
	Copies          int       `yaml:"copies"`
	Turns           int       `yaml:"turns"`
	MaxGenerations  int       `yaml:"max_generations"` // 0 = until fixation
	ResultsDir      string    `yaml:"results_dir"`
	Workers         int       `yaml:"workers"`
	ContinueOnError bool      `yaml:"continue_on_error"`
	ShowProgress    bool      `yaml:"show_progress"`

	// Roster lists strategy names. Empty means the built-in qualified roster.
	Roster []string `yaml:"roster"`
}

// QualifierConfig configures the round-robin qualifier.
type QualifierConfig struct {
	Seed        int64 `yaml:"seed"`
	Turns       int   `yaml:"turns"`
	Repetitions int   `yaml:"repetitions"`
	Top         int   `yaml:"top"`
}

// Default returns the settings of the published experiment.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Trials:     10,
			Rewards:    []float64{3.0, 3.5, 4.0, 4.5},
			Seed:       100,
			Copies:     3,
			Turns:      50,
			ResultsDir: "results",
			Workers:    1,
		},
		Qualifier: QualifierConfig{
			Seed:        100,
			Turns:       50,
			Repetitions: 1,
			Top:         20,
		},
		LogLevel: "info",
	}
}

// Load applies an optional YAML file and then environment overrides on top
// of Default. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("MORAN_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &model.ConfigurationError{Field: "MORAN_SEED", Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		cfg.Experiment.Seed = seed
	}
	cfg.Experiment.ResultsDir = envOrDefault("RESULTS_DIR", cfg.Experiment.ResultsDir)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.ListenAddr = envOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	return nil
}

// Validate rejects settings no experiment can run with.
func (c *Config) Validate() error {
	e := c.Experiment
	if err := model.CheckRewards(e.Rewards); err != nil {
		return err
	}
	switch {
	case e.Trials < 1:
		return &model.ConfigurationError{Field: "trials", Reason: "must be positive"}
	case e.Copies < 1:
		return &model.ConfigurationError{Field: "copies", Reason: "must be at least 1"}
	case e.Turns < 1:
		return &model.ConfigurationError{Field: "turns", Reason: "must be positive"}
	case e.Workers < 1:
		return &model.ConfigurationError{Field: "workers", Reason: "must be at least 1"}
	case e.MaxGenerations < 0:
		return &model.ConfigurationError{Field: "max_generations", Reason: "must not be negative"}
	case e.ResultsDir == "":
		return &model.ConfigurationError{Field: "results_dir", Reason: "empty"}
	case c.Qualifier.Top < 1:
		return &model.ConfigurationError{Field: "qualifier.top", Reason: "must be at least 1"}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
