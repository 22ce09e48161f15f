package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/reward-moran/internal/config"
	"github.com/freeeve/reward-moran/internal/experiment"
	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/internal/repository/redis"
	"github.com/freeeve/reward-moran/internal/results"
)

// replayResult is what replay reports for one re-run simulation.
type replayResult struct {
	Trial          int    `json:"trial"`
	Reward         string `json:"reward"`
	Seed           int64  `json:"seed"`
	SeedSource     string `json:"seed_source"`
	Winner         string `json:"winner"`
	Generations    int    `json:"generations"`
	RecordedWinner string `json:"recorded_winner,omitempty"`
	WinnerSource   string `json:"winner_source,omitempty"`
}

func newReplayCmd(a *app) *cobra.Command {
	def := config.Default().Experiment
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run one (trial, reward) simulation and check it against the recorded winner",
		Long: `replay re-runs a single simulation of an experiment. The seed comes from
the Redis run index when --redis and --id are given, otherwise it is derived
from the experiment seed, the trial and the reward's position in --reward.
The roster and match settings must match the original experiment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := applyExperimentFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			trial, _ := cmd.Flags().GetInt("trial")
			value, _ := cmd.Flags().GetFloat64("reward-value")
			res, err := replay(cmd, cfg, trial, value)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Trial %d, reward %s\nSeed: %d (%s)\nWinner: %s after %d generations\n",
					res.Trial, res.Reward, res.Seed, res.SeedSource, res.Winner, res.Generations)
				if res.RecordedWinner != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Recorded winner: %s (%s)\n", res.RecordedWinner, res.WinnerSource)
				}
			}
			if res.RecordedWinner != "" && res.RecordedWinner != res.Winner {
				return fmt.Errorf("replay of trial %d reward %s won by %s, recorded %s",
					res.Trial, res.Reward, res.Winner, res.RecordedWinner)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Int("trial", 1, "Trial to replay (1-based)")
	f.Float64("reward-value", def.Rewards[0], "Reward value of the run to replay")
	f.Float64Slice("reward", def.Rewards, "The experiment's reward values, in seed draw order")
	f.Int64("seed", def.Seed, "Experiment seed")
	f.Int("copies", def.Copies, "Individuals per strategy")
	f.Int("turns", def.Turns, "Turns per match")
	f.Int("max-generations", def.MaxGenerations, "Stop after this many generations (0 = until fixation)")
	f.String("results", def.ResultsDir, "Results directory holding overview.txt")
	f.StringSlice("roster", nil, "Strategy names (repeatable); default is the qualified roster")
	f.Bool("eligible", false, "Use every rule-abiding catalog strategy as the roster")
	f.Int("qualify-top", 0, "Run the qualifier first and use its top N strategies")
	f.Int64("qualifier-seed", config.Default().Qualifier.Seed, "Qualifier tournament seed")
	f.String("redis", "", "Read the run's seed and winner from this Redis")
	f.String("id", "", "Experiment ID in the Redis run index")
	return cmd
}

func replay(cmd *cobra.Command, cfg *config.Config, trial int, value float64) (*replayResult, error) {
	e := cfg.Experiment
	ctx := cmd.Context()
	res := &replayResult{Trial: trial, Reward: model.FormatReward(value)}

	var index *redis.RunIndex
	if cfg.RedisURL != "" {
		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			return nil, &model.ConfigurationError{Field: "id", Reason: "required with --redis"}
		}
		rc, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		index = redis.NewRunIndex(rc, id)

		seed, ok, err := index.Seed(ctx, trial, value)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Seed, res.SeedSource = seed, "redis"
		}
	}
	if res.SeedSource == "" {
		idx := rewardIndex(e.Rewards, value)
		if idx < 0 {
			return nil, &model.ConfigurationError{Field: "reward-value",
				Reason: fmt.Sprintf("%s is not one of the experiment rewards", res.Reward)}
		}
		seed, err := experiment.DeriveSeed(e.Seed, trial, idx, e.Rewards)
		if err != nil {
			return nil, &model.ConfigurationError{Field: "trial", Reason: err.Error()}
		}
		res.Seed, res.SeedSource = seed, "derived"
	}

	ros, err := buildRoster(cmd, cfg)
	if err != nil {
		return nil, err
	}
	d := &experiment.Driver{
		Engine:         experiment.MoranEngine{},
		Roster:         ros,
		Turns:          e.Turns,
		MaxGenerations: e.MaxGenerations,
	}
	out, err := d.RunOne(experiment.RunSpec{Trial: trial, Reward: value, Seed: res.Seed})
	if err != nil {
		return nil, err
	}
	res.Winner, res.Generations = out.Winner, len(out.Populations)

	if index != nil {
		winners, err := index.Winners(ctx)
		if err != nil {
			return nil, err
		}
		if w, ok := winners[redis.RunField(trial, value)]; ok {
			res.RecordedWinner, res.WinnerSource = w, "redis"
		}
	}
	if res.RecordedWinner == "" {
		entries, err := results.NewStore(e.ResultsDir).ReadOverview()
		if err != nil {
			log.Debug().Err(err).Msg("No overview to compare the replay against")
		}
		for _, en := range entries {
			if en.Trial == trial && en.Reward == res.Reward {
				res.RecordedWinner, res.WinnerSource = en.Winner, "overview"
			}
		}
	}
	log.Info().
		Int("trial", trial).
		Str("reward", res.Reward).
		Int64("seed", res.Seed).
		Str("winner", res.Winner).
		Msg("Replayed run")
	return res, nil
}

// rewardIndex is the position of value in rewards, -1 when absent.
func rewardIndex(rewards []float64, value float64) int {
	for i, r := range rewards {
		if r == value {
			return i
		}
	}
	return -1
}
