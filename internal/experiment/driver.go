package experiment

import (
	"errors"
	"fmt"

	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/internal/roster"
	"github.com/freeeve/reward-moran/pkg/ipd"
)

// Driver runs single simulations. It never writes files; persistence is the
// caller's job.
type Driver struct {
	Engine         Engine
	Roster         *roster.Roster
	Turns          int
	MaxGenerations int
}

// RunOne builds the population, configures the engine with the Run's seed
// and a payoff matrix parameterised by its reward, and runs it to the end.
// Any engine failure or broken output comes back as a *model.SimulationError.
func (d *Driver) RunOne(spec RunSpec) (*Outcome, error) {
	fail := func(err error) error {
		return &model.SimulationError{Trial: spec.Trial, Reward: spec.Reward, Seed: spec.Seed, Err: err}
	}
	if d.Roster == nil {
		return nil, fail(errors.New("no roster"))
	}

	sim, err := d.Engine.Configure(EngineConfig{
		Population:     d.Roster.Population(),
		Turns:          d.Turns,
		Game:           ipd.NewGame(spec.Reward),
		Seed:           spec.Seed,
		MaxGenerations: d.MaxGenerations,
	})
	if err != nil {
		return nil, fail(fmt.Errorf("configure: %w", err))
	}
	out, err := sim.Run()
	if err != nil {
		return nil, fail(err)
	}
	if err := d.check(out); err != nil {
		return nil, fail(err)
	}
	return out, nil
}

func (d *Driver) check(out *Outcome) error {
	if out == nil || len(out.Populations) == 0 {
		return errors.New("engine returned no generations")
	}
	size := d.Roster.Size()
	for i, pop := range out.Populations {
		if total := pop.Total(); total != size {
			return fmt.Errorf("generation %d has %d individuals, want %d", i, total, size)
		}
		for label, c := range pop {
			if c < 0 {
				return fmt.Errorf("generation %d: negative count for %q", i, label)
			}
			if !d.Roster.Has(label) {
				return fmt.Errorf("generation %d: unknown strategy %q", i, label)
			}
		}
	}
	if !d.Roster.Has(out.Winner) {
		return fmt.Errorf("winner %q is not a roster strategy", out.Winner)
	}
	return nil
}
