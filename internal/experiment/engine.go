package experiment

import (
	"github.com/freeeve/reward-moran/pkg/ipd"
)

// EngineConfig is everything a simulation needs for one Run.
type EngineConfig struct {
	Population     []ipd.Strategy
	Turns          int
	Game           ipd.Game
	Seed           int64
	MaxGenerations int
}

// Outcome is what a simulation produces: the population at every generation
// (labels with zero count may be missing) and the engine's winner.
type Outcome struct {
	Populations []ipd.Population
	Winner      string
}

// Engine configures one simulation per Run.
type Engine interface {
	Configure(cfg EngineConfig) (Simulation, error)
}

// Simulation is owned by exactly one Run and discarded after Run returns.
type Simulation interface {
	Run() (*Outcome, error)
}

// MoranEngine runs ipd.MoranProcess simulations.
type MoranEngine struct{}

// Configure builds a Moran process for cfg.
func (MoranEngine) Configure(cfg EngineConfig) (Simulation, error) {
	p, err := ipd.NewMoranProcess(cfg.Population, ipd.MoranConfig{
		Turns:          cfg.Turns,
		Game:           cfg.Game,
		Seed:           cfg.Seed,
		MaxGenerations: cfg.MaxGenerations,
	})
	if err != nil {
		return nil, err
	}
	return moranSimulation{p}, nil
}

type moranSimulation struct {
	p *ipd.MoranProcess
}

func (s moranSimulation) Run() (*Outcome, error) {
	pops := s.p.Play()
	return &Outcome{Populations: pops, Winner: s.p.Winner()}, nil
}
