package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/reward-moran/internal/config"
	"github.com/freeeve/reward-moran/internal/qualifier"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

func newQualifyCmd(a *app) *cobra.Command {
	def := config.Default().Qualifier
	cmd := &cobra.Command{
		Use:   "qualify",
		Short: "Rank the strategy catalog with a round robin tournament",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			applyQualifierFlags(cmd, &cfg.Qualifier)

			ranked, err := runQualifier(cfg.Qualifier)
			if err != nil {
				return err
			}
			top := qualifier.Top(ranked, cfg.Qualifier.Top)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"seed":   cfg.Qualifier.Seed,
					"turns":  cfg.Qualifier.Turns,
					"ranked": top,
				})
			}
			for i, name := range top {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, name)
			}
			return nil
		},
	}
	cmd.Flags().Int64("seed", def.Seed, "Tournament seed")
	cmd.Flags().Int("turns", def.Turns, "Turns per match")
	cmd.Flags().Int("repetitions", def.Repetitions, "Matches per pairing")
	cmd.Flags().Int("top", def.Top, "How many strategies to print")
	return cmd
}

func applyQualifierFlags(cmd *cobra.Command, q *config.QualifierConfig) {
	f := cmd.Flags()
	if f.Changed("seed") {
		q.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("turns") {
		q.Turns, _ = f.GetInt("turns")
	}
	if f.Changed("repetitions") {
		q.Repetitions, _ = f.GetInt("repetitions")
	}
	if f.Changed("top") {
		q.Top, _ = f.GetInt("top")
	}
}

// runQualifier ranks every rule-abiding catalog strategy.
func runQualifier(q config.QualifierConfig) ([]string, error) {
	return qualifier.Qualify(ipd.Filter(ipd.Catalog(), ipd.ObeysRules), qualifier.Config{
		Seed:        q.Seed,
		Turns:       q.Turns,
		Repetitions: q.Repetitions,
	})
}
