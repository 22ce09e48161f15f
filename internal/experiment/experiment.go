// Package experiment drives a batch of seeded Moran simulations over
// trials x reward values, normalizes their populations, and hands every Run
// to a Store.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/internal/roster"
)

// Params are the experiment entry point's arguments.
type Params struct {
	ID           string
	Trials       int
	Rewards      []float64 // order matters: it fixes the seed draw order
	Seed         int64
	ShowProgress bool
}

// Runner owns everything a batch needs. Runs execute in plan order unless
// Workers > 1, in which case seeds are still derived up front and Runs are
// persisted in plan order once they are done.
type Runner struct {
	Roster          *roster.Roster
	Engine          Engine
	Store           Store
	Observer        Observer
	Turns           int
	MaxGenerations  int
	Workers         int
	ContinueOnError bool
}

// Summary counts what a batch did.
type Summary struct {
	Experiment *model.Experiment
	Completed  int
	Failed     int
	Winners    map[string]int
	Elapsed    time.Duration
}

type runResult struct {
	out *Outcome
	err error
}

// Run executes the whole trials x rewards matrix.
func (r *Runner) Run(ctx context.Context, p Params) (*Summary, error) {
	if err := r.validate(p); err != nil {
		return nil, err
	}

	exp := &model.Experiment{
		ID:        p.ID,
		Seed:      p.Seed,
		Trials:    p.Trials,
		Rewards:   append([]float64(nil), p.Rewards...),
		Labels:    r.Roster.Labels(),
		Turns:     r.Turns,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.Store.Begin(ctx, exp); err != nil {
		return nil, persistErr("begin", err)
	}

	plan := Plan(p.Seed, p.Trials, p.Rewards)
	driver := &Driver{Engine: r.Engine, Roster: r.Roster, Turns: r.Turns, MaxGenerations: r.MaxGenerations}

	var obs Observer = Observers{}
	if p.ShowProgress && r.Observer != nil {
		obs = r.Observer
	}

	sum := &Summary{Experiment: exp, Winners: make(map[string]int)}
	start := time.Now()
	log.Info().
		Str("experiment", exp.ID).
		Int64("seed", p.Seed).
		Int("trials", p.Trials).
		Int("runs", len(plan)).
		Int("population", r.Roster.Size()).
		Msg("Experiment started")

	var err error
	if r.Workers > 1 {
		err = r.runParallel(ctx, driver, plan, p.Trials, obs, sum)
	} else {
		err = r.runSequential(ctx, driver, plan, p.Trials, obs, sum)
	}
	sum.Elapsed = time.Since(start)
	if err != nil {
		return sum, err
	}

	log.Info().
		Str("experiment", exp.ID).
		Int("completed", sum.Completed).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.Elapsed).
		Msg("Experiment finished")
	return sum, nil
}

func (r *Runner) validate(p Params) error {
	if err := model.CheckRewards(p.Rewards); err != nil {
		return err
	}
	switch {
	case r.Roster == nil:
		return &model.ConfigurationError{Field: "roster", Reason: "no strategies"}
	case p.Trials < 1:
		return &model.ConfigurationError{Field: "trials", Reason: "must be positive"}
	case r.Turns < 1:
		return &model.ConfigurationError{Field: "turns", Reason: "must be positive"}
	case r.Engine == nil:
		return &model.ConfigurationError{Field: "engine", Reason: "not set"}
	case r.Store == nil:
		return &model.ConfigurationError{Field: "store", Reason: "not set"}
	}
	return nil
}

func (r *Runner) runSequential(ctx context.Context, d *Driver, plan []RunSpec, trials int, obs Observer, sum *Summary) error {
	total := len(plan)
	obs.OnProgress(0, total, TrialLabel(1, trials))
	for i, spec := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := d.RunOne(spec)
		if err := r.commit(ctx, spec, runResult{out, err}, d.Roster.Labels(), sum); err != nil {
			return err
		}
		obs.OnProgress(i+1, total, TrialLabel(spec.Trial, trials))
	}
	return nil
}

func (r *Runner) runParallel(ctx context.Context, d *Driver, plan []RunSpec, trials int, obs Observer, sum *Summary) error {
	total := len(plan)
	sobs := &syncObserver{obs: obs}
	sobs.OnProgress(0, total, TrialLabel(1, trials))

	results := make([]runResult, total)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0
	sem := make(chan struct{}, r.Workers)

	for i, spec := range plan {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, spec RunSpec) {
			defer wg.Done()
			defer func() { <-sem }()

			if ctx.Err() != nil {
				results[idx] = runResult{err: ctx.Err()}
				return
			}
			out, err := d.RunOne(spec)
			results[idx] = runResult{out, err}

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			sobs.OnProgress(n, total, TrialLabel(spec.Trial, trials))
		}(i, spec)
	}
	wg.Wait()

	for i, spec := range plan {
		if err := r.commit(ctx, spec, results[i], d.Roster.Labels(), sum); err != nil {
			return err
		}
	}
	return nil
}

// commit logs and persists one Run, or decides what a failure means.
func (r *Runner) commit(ctx context.Context, spec RunSpec, res runResult, labels []string, sum *Summary) error {
	if res.err != nil {
		var simErr *model.SimulationError
		if !errors.As(res.err, &simErr) {
			return res.err
		}
		sum.Failed++
		log.Error().
			Err(res.err).
			Int("trial", spec.Trial).
			Float64("reward", spec.Reward).
			Int64("seed", spec.Seed).
			Bool("skipped", r.ContinueOnError).
			Msg("Run failed")
		if r.ContinueOnError {
			return nil
		}
		return res.err
	}

	run := &model.Run{
		Trial:       spec.Trial,
		RewardIndex: spec.RewardIndex,
		Reward:      spec.Reward,
		Seed:        spec.Seed,
		Winner:      res.out.Winner,
		Generations: Normalize(res.out.Populations, labels),
	}
	if err := r.Store.Save(ctx, run); err != nil {
		return persistErr(fmt.Sprintf("save %s", spec), err)
	}

	sum.Completed++
	sum.Winners[run.Winner]++
	log.Info().
		Int("trial", run.Trial).
		Str("reward", model.FormatReward(run.Reward)).
		Int64("seed", run.Seed).
		Str("winner", run.Winner).
		Int("generations", len(run.Generations)).
		Bool("fixated", run.Fixated()).
		Msg("Run completed")
	return nil
}

func persistErr(op string, err error) error {
	var pe *model.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &model.PersistenceError{Op: op, Err: err}
}
