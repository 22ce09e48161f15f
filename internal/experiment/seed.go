package experiment

import (
	"fmt"
	"math/rand"

	"github.com/freeeve/reward-moran/internal/model"
)

// Derived seeds are drawn from [MinSeed, MaxSeed].
const (
	MinSeed = 1
	MaxSeed = 1_000_000
)

// SeedSource is the single random source of an experiment. Every Run's seed
// is one draw from it, so the draw order fixes every result.
type SeedSource struct {
	rng *rand.Rand
}

// NewSeedSource seeds a source from the experiment seed.
func NewSeedSource(experimentSeed int64) *SeedSource {
	return &SeedSource{rng: rand.New(rand.NewSource(experimentSeed))}
}

// Next draws the next Run seed.
func (s *SeedSource) Next() int64 {
	return MinSeed + s.rng.Int63n(MaxSeed-MinSeed+1)
}

// RunSpec identifies one Run and carries its derived seed.
type RunSpec struct {
	Trial       int // 1-based
	RewardIndex int // position in the supplied reward order
	Reward      float64
	Seed        int64
}

func (s RunSpec) String() string {
	return fmt.Sprintf("trial %d reward %s", s.Trial, model.FormatReward(s.Reward))
}

// Plan derives every Run's seed up front: trials ascending in the outer
// loop, rewards in the supplied order in the inner loop. Rewards are never
// re-sorted; a different order yields different seeds.
func Plan(experimentSeed int64, trials int, rewards []float64) []RunSpec {
	src := NewSeedSource(experimentSeed)
	specs := make([]RunSpec, 0, trials*len(rewards))
	for trial := 1; trial <= trials; trial++ {
		for i, reward := range rewards {
			specs = append(specs, RunSpec{
				Trial:       trial,
				RewardIndex: i,
				Reward:      reward,
				Seed:        src.Next(),
			})
		}
	}
	return specs
}

// DeriveSeed returns the seed of a single Run by replaying the experiment's
// draws up to it.
func DeriveSeed(experimentSeed int64, trial, rewardIndex int, rewards []float64) (int64, error) {
	if trial < 1 {
		return 0, fmt.Errorf("trial %d out of range", trial)
	}
	if rewardIndex < 0 || rewardIndex >= len(rewards) {
		return 0, fmt.Errorf("reward index %d out of range", rewardIndex)
	}
	src := NewSeedSource(experimentSeed)
	n := (trial-1)*len(rewards) + rewardIndex
	for i := 0; i < n; i++ {
		src.Next()
	}
	return src.Next(), nil
}
