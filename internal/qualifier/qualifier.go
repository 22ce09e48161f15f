// Package qualifier ranks a strategy catalog with a round robin tournament
// so the harness can take the top of the table as its roster.
package qualifier

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

// DefaultTurns is the match length of the qualifier tournament.
const DefaultTurns = 50

// Config configures a qualifier tournament.
type Config struct {
	Seed        int64
	Turns       int // 0 = DefaultTurns
	Repetitions int // 0 = 1
}

// Qualify returns catalog labels ranked best-first by cumulative score.
// The same seed and catalog always produce the same ranking.
func Qualify(catalog []ipd.Strategy, cfg Config) ([]string, error) {
	if len(catalog) == 0 {
		return nil, &model.ConfigurationError{Field: "catalog", Reason: "no strategies"}
	}
	if cfg.Seed < 0 {
		return nil, &model.ConfigurationError{Field: "seed", Reason: "must be non-negative"}
	}
	if cfg.Turns == 0 {
		cfg.Turns = DefaultTurns
	}
	if cfg.Turns < 0 {
		return nil, &model.ConfigurationError{Field: "turns", Reason: "must be positive"}
	}

	t := ipd.Tournament{
		Players:     catalog,
		Turns:       cfg.Turns,
		Repetitions: cfg.Repetitions,
		Game:        ipd.DefaultGame,
		Seed:        cfg.Seed,
	}
	res, err := t.Play()
	if err != nil {
		return nil, fmt.Errorf("qualifier tournament: %w", err)
	}

	names := res.RankedNames()
	log.Info().
		Int64("seed", cfg.Seed).
		Int("players", len(catalog)).
		Int("turns", cfg.Turns).
		Str("leader", names[0]).
		Msg("Qualifier finished")
	return names, nil
}

// Top returns at most k names from the front of ranked.
func Top(ranked []string, k int) []string {
	if k < 0 || k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}
