package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/reward-moran/internal/model"
)

func seedsKey(expID string) string   { return "experiment:" + expID + ":seeds" }
func winnersKey(expID string) string { return "experiment:" + expID + ":winners" }

// RunField is the hash field of one Run in the seed and winner indexes.
func RunField(trial int, reward float64) string {
	return fmt.Sprintf("trial-%d_reward-%s", trial, model.FormatReward(reward))
}

// RunIndex caches each Run's seed and winner so a single Run can be
// reproduced without reading the results directory.
type RunIndex struct {
	client       *Client
	experimentID string
}

// NewRunIndex creates a RunIndex for one experiment.
func NewRunIndex(c *Client, experimentID string) *RunIndex {
	return &RunIndex{client: c, experimentID: experimentID}
}

// Begin clears whatever a previous experiment with the same ID left behind.
func (r *RunIndex) Begin(ctx context.Context, _ *model.Experiment) error {
	if err := r.client.rdb.Del(ctx, seedsKey(r.experimentID), winnersKey(r.experimentID)).Err(); err != nil {
		return &model.PersistenceError{Op: "redis del", Path: seedsKey(r.experimentID), Err: err}
	}
	return nil
}

// Save records the Run's seed and winner.
func (r *RunIndex) Save(ctx context.Context, run *model.Run) error {
	field := RunField(run.Trial, run.Reward)
	_, err := r.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, seedsKey(r.experimentID), field, run.Seed)
		pipe.HSet(ctx, winnersKey(r.experimentID), field, run.Winner)
		pipe.Expire(ctx, seedsKey(r.experimentID), progressTTL)
		pipe.Expire(ctx, winnersKey(r.experimentID), progressTTL)
		return nil
	})
	if err != nil {
		return &model.PersistenceError{Op: "redis hset", Path: seedsKey(r.experimentID), Err: err}
	}
	return nil
}

// Seed returns the cached seed of a Run. ok is false when it is unknown.
func (r *RunIndex) Seed(ctx context.Context, trial int, reward float64) (seed int64, ok bool, err error) {
	v, err := r.client.rdb.HGet(ctx, seedsKey(r.experimentID), RunField(trial, reward)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get seed: %w", err)
	}
	seed, err = strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse seed: %w", err)
	}
	return seed, true, nil
}

// Winners returns the cached winner of every saved Run keyed by
// "trial-{t}_reward-{r}".
func (r *RunIndex) Winners(ctx context.Context) (map[string]string, error) {
	w, err := r.client.rdb.HGetAll(ctx, winnersKey(r.experimentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get winners: %w", err)
	}
	return w, nil
}
