package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/internal/repository/postgres"
	"github.com/freeeve/reward-moran/internal/results"
)

func newSummarizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Tally winners per reward value from a finished experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if expID, _ := cmd.Flags().GetString("experiment"); expID != "" {
				return summarizeDB(cmd, a, expID, jsonOut)
			}

			dir := a.cfg.Experiment.ResultsDir
			if cmd.Flags().Changed("results") {
				dir, _ = cmd.Flags().GetString("results")
			}
			sums, err := results.NewStore(dir).Summarize()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), sums)
			}
			return printSummaries(cmd.OutOrStdout(), sums)
		},
	}
	cmd.Flags().String("results", "", "Results directory (default from config)")
	cmd.Flags().String("experiment", "", "Summarize this Postgres experiment ID instead of a results directory")
	cmd.Flags().String("db", "", "Postgres URL used with --experiment")
	return cmd
}

func summarizeDB(cmd *cobra.Command, a *app, expID string, jsonOut bool) error {
	dbURL := a.cfg.DatabaseURL
	if cmd.Flags().Changed("db") {
		dbURL, _ = cmd.Flags().GetString("db")
	}
	if dbURL == "" {
		return &model.ConfigurationError{Field: "db", Reason: "required with --experiment"}
	}

	db, err := postgres.Connect(cmd.Context(), dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := postgres.NewRunRepo(db)
	exp, err := repo.FindExperiment(cmd.Context(), expID)
	if err != nil {
		return err
	}
	if exp == nil {
		return fmt.Errorf("experiment %s not found", expID)
	}
	runs, err := repo.ListRuns(cmd.Context(), expID)
	if err != nil {
		return err
	}
	sums := results.SummarizeRuns(exp.Rewards, runs)
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), sums)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s (seed %d, %d trials)\n", exp.ID, exp.Seed, exp.Trials)
	return printSummaries(cmd.OutOrStdout(), sums)
}

func printSummaries(w io.Writer, sums []results.RewardSummary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REWARD\tRUNS\tMEAN GENERATIONS\tWINNERS")
	for _, rs := range sums {
		var parts []string
		for _, name := range rs.TopWinners() {
			parts = append(parts, fmt.Sprintf("%s (%d)", name, rs.Winners[name]))
		}
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%s\n", rs.Reward, rs.Runs, rs.MeanGeneration, strings.Join(parts, ", "))
	}
	return tw.Flush()
}
