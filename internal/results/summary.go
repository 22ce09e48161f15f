package results

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/freeeve/reward-moran/internal/model"
)

// RewardSummary aggregates every trial run at one reward value.
type RewardSummary struct {
	Reward         string         `json:"reward"`
	Runs           int            `json:"runs"`
	Winners        map[string]int `json:"winners"`
	MeanGeneration float64        `json:"mean_generations"`
}

// Summarize reads the overview and every artifact it references and tallies
// winners and run lengths per reward value, in first-seen reward order.
func (s *Store) Summarize() ([]RewardSummary, error) {
	entries, err := s.ReadOverview()
	if err != nil {
		return nil, err
	}

	var order []string
	byReward := make(map[string]*RewardSummary)
	gens := make(map[string]int)
	for _, e := range entries {
		rs, ok := byReward[e.Reward]
		if !ok {
			rs = &RewardSummary{Reward: e.Reward, Winners: make(map[string]int)}
			byReward[e.Reward] = rs
			order = append(order, e.Reward)
		}
		rs.Runs++
		rs.Winners[e.Winner]++

		reward, err := strconv.ParseFloat(e.Reward, 64)
		if err != nil {
			return nil, fmt.Errorf("reward %q: %w", e.Reward, err)
		}
		snaps, err := s.Load(e.Trial, reward)
		if err != nil {
			return nil, err
		}
		gens[e.Reward] += len(snaps)
	}

	out := make([]RewardSummary, 0, len(order))
	for _, r := range order {
		rs := byReward[r]
		rs.MeanGeneration = float64(gens[r]) / float64(rs.Runs)
		out = append(out, *rs)
	}
	return out, nil
}

// SummarizeRuns tallies runs already in memory, such as those read back from
// Postgres, per reward value in the order of rewards. Rewards without runs
// are left out.
func SummarizeRuns(rewards []float64, runs []model.Run) []RewardSummary {
	byReward := make(map[string]*RewardSummary, len(rewards))
	gens := make(map[string]int, len(rewards))
	for _, run := range runs {
		key := model.FormatReward(run.Reward)
		rs, ok := byReward[key]
		if !ok {
			rs = &RewardSummary{Reward: key, Winners: make(map[string]int)}
			byReward[key] = rs
		}
		rs.Runs++
		rs.Winners[run.Winner]++
		gens[key] += len(run.Generations)
	}

	out := make([]RewardSummary, 0, len(byReward))
	for _, r := range rewards {
		key := model.FormatReward(r)
		rs, ok := byReward[key]
		if !ok {
			continue
		}
		rs.MeanGeneration = float64(gens[key]) / float64(rs.Runs)
		out = append(out, *rs)
		delete(byReward, key)
	}
	return out
}

// TopWinners returns winner labels by descending count, ties by label.
func (rs RewardSummary) TopWinners() []string {
	names := make([]string, 0, len(rs.Winners))
	for n := range rs.Winners {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if rs.Winners[names[i]] != rs.Winners[names[j]] {
			return rs.Winners[names[i]] > rs.Winners[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
