package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/reward-moran/internal/config"
	"github.com/freeeve/reward-moran/internal/experiment"
	"github.com/freeeve/reward-moran/internal/handler"
	"github.com/freeeve/reward-moran/internal/progress"
	"github.com/freeeve/reward-moran/internal/qualifier"
	"github.com/freeeve/reward-moran/internal/repository/postgres"
	"github.com/freeeve/reward-moran/internal/repository/redis"
	"github.com/freeeve/reward-moran/internal/results"
	"github.com/freeeve/reward-moran/internal/roster"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

func newExperimentCmd(a *app) *cobra.Command {
	def := config.Default().Experiment
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run every (trial, reward) Moran process and write the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if err := applyExperimentFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runExperiment(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.Int("trials", def.Trials, "Number of trials")
	f.Float64Slice("reward", def.Rewards, "Reward values, in seed draw order (repeatable)")
	f.Int64("seed", def.Seed, "Experiment seed")
	f.Int("copies", def.Copies, "Individuals per strategy")
	f.Int("turns", def.Turns, "Turns per match")
	f.Int("max-generations", def.MaxGenerations, "Stop a run after this many generations (0 = until fixation)")
	f.String("results", def.ResultsDir, "Results directory")
	f.Int("workers", def.Workers, "Concurrent runs")
	f.Bool("progress", false, "Draw a progress bar on stderr")
	f.Bool("continue-on-error", false, "Log and skip failed runs instead of aborting")
	f.Bool("yes", false, "Do not ask before overwriting the results directory")
	f.StringSlice("roster", nil, "Strategy names (repeatable); default is the qualified roster")
	f.Bool("eligible", false, "Use every rule-abiding catalog strategy as the roster")
	f.Int("qualify-top", 0, "Run the qualifier first and use its top N strategies")
	f.String("db", "", "Mirror runs into this Postgres database")
	f.String("redis", "", "Publish progress and run seeds to this Redis")
	f.String("listen", "", "Serve live progress over WebSocket on this address")
	f.String("id", "", "Experiment ID (default: seed and start time)")
	// qualifier settings used by --qualify-top
	f.Int64("qualifier-seed", config.Default().Qualifier.Seed, "Qualifier tournament seed")
	return cmd
}

func applyExperimentFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	e := &cfg.Experiment
	if f.Changed("trials") {
		e.Trials, _ = f.GetInt("trials")
	}
	if f.Changed("reward") {
		e.Rewards, _ = f.GetFloat64Slice("reward")
	}
	if f.Changed("seed") {
		e.Seed, _ = f.GetInt64("seed")
	}
	if f.Changed("copies") {
		e.Copies, _ = f.GetInt("copies")
	}
	if f.Changed("turns") {
		e.Turns, _ = f.GetInt("turns")
	}
	if f.Changed("max-generations") {
		e.MaxGenerations, _ = f.GetInt("max-generations")
	}
	if f.Changed("results") {
		e.ResultsDir, _ = f.GetString("results")
	}
	if f.Changed("workers") {
		e.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("continue-on-error") {
		e.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
	if f.Changed("roster") {
		e.Roster, _ = f.GetStringSlice("roster")
	}
	if f.Changed("qualifier-seed") {
		cfg.Qualifier.Seed, _ = f.GetInt64("qualifier-seed")
	}
	if f.Changed("db") {
		cfg.DatabaseURL, _ = f.GetString("db")
	}
	if f.Changed("redis") {
		cfg.RedisURL, _ = f.GetString("redis")
	}
	if f.Changed("listen") {
		cfg.ListenAddr, _ = f.GetString("listen")
	}
	if n, _ := f.GetInt("qualify-top"); n < 0 {
		return fmt.Errorf("--qualify-top must not be negative")
	}
	return nil
}

// buildRoster picks the roster source: qualifier, explicit names, the
// eligible catalog, or the built-in qualified list.
func buildRoster(cmd *cobra.Command, cfg *config.Config) (*roster.Roster, error) {
	copies := cfg.Experiment.Copies
	if top, _ := cmd.Flags().GetInt("qualify-top"); top > 0 {
		ranked, err := runQualifier(cfg.Qualifier)
		if err != nil {
			return nil, err
		}
		return roster.FromNames(qualifier.Top(ranked, top), copies)
	}
	if len(cfg.Experiment.Roster) > 0 {
		return roster.FromNames(cfg.Experiment.Roster, copies)
	}
	if eligible, _ := cmd.Flags().GetBool("eligible"); eligible {
		return roster.FromCatalog(ipd.Catalog(), ipd.ObeysRules, copies)
	}
	return roster.FromNames(roster.Qualified, copies)
}

// confirmOverwrite asks before an existing results directory is reused.
func confirmOverwrite(in io.Reader, out io.Writer, dir string) (bool, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	fmt.Fprintf(out, "Results in %s will be overwritten. Proceed? [y/N] ", dir)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func runExperiment(cmd *cobra.Command, cfg *config.Config) error {
	e := cfg.Experiment
	ros, err := buildRoster(cmd, cfg)
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirmOverwrite(cmd.InOrStdin(), cmd.ErrOrStderr(), e.ResultsDir)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = fmt.Sprintf("%d-%s", e.Seed, time.Now().UTC().Format("20060102T150405"))
	}

	stores := experiment.Stores{results.NewStore(e.ResultsDir)}
	var observers experiment.Observers
	if showBar, _ := cmd.Flags().GetBool("progress"); showBar || e.ShowProgress {
		observers = append(observers, progress.NewBar())
	}

	var pg *postgres.RunStore
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		pg = postgres.NewRunStore(postgres.NewRunRepo(db))
		stores = append(stores, pg)
	}

	var rc *redis.Client
	if cfg.RedisURL != "" {
		rc, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		stores = append(stores, redis.NewRunIndex(rc, id))
		observers = append(observers, redis.NewProgressPublisher(rc, id))
	}

	if cfg.ListenAddr != "" {
		hub := handler.NewHub()
		var src handler.ProgressSource
		if rc != nil {
			src = rc
		}
		stop, err := serveProgress(cfg.ListenAddr, handler.NewRouter(hub, src))
		if err != nil {
			return err
		}
		defer stop()
		observers = append(observers, hub.Observer(id))
	}

	runner := &experiment.Runner{
		Roster:          ros,
		Engine:          experiment.MoranEngine{},
		Store:           stores,
		Observer:        observers,
		Turns:           e.Turns,
		MaxGenerations:  e.MaxGenerations,
		Workers:         e.Workers,
		ContinueOnError: e.ContinueOnError,
	}
	sum, err := runner.Run(ctx, experiment.Params{
		ID:           id,
		Trials:       e.Trials,
		Rewards:      e.Rewards,
		Seed:         e.Seed,
		ShowProgress: len(observers) > 0,
	})
	if err != nil {
		return err
	}

	var dbID string
	if pg != nil {
		dbID = pg.ExperimentID()
	}
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		out := map[string]any{
			"id":        id,
			"completed": sum.Completed,
			"failed":    sum.Failed,
			"winners":   sum.Winners,
			"results":   e.ResultsDir,
		}
		if dbID != "" {
			out["db_experiment"] = dbID
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Experiment %s finished: %d runs in %s. Results are in %s\n",
		id, sum.Completed, sum.Elapsed.Truncate(time.Millisecond), e.ResultsDir)
	if dbID != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Summarize from Postgres with: moran summarize --experiment %s\n", dbID)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d runs failed and were skipped\n", sum.Failed)
	}
	return nil
}

// serveProgress starts the progress server and returns a function that
// shuts it down.
func serveProgress(addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Progress server failed")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Progress server listening")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}, nil
}
