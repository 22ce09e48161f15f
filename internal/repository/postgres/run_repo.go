package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/freeeve/reward-moran/internal/model"
)

// RunRepo handles experiment and run database operations.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// CreateExperiment inserts an experiment and returns its database ID.
func (r *RunRepo) CreateExperiment(ctx context.Context, exp *model.Experiment) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO experiments (name, seed, trials, rewards, labels, turns, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		exp.ID, exp.Seed, exp.Trials, pq.Array(exp.Rewards), pq.Array(exp.Labels), exp.Turns, exp.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create experiment: %w", err)
	}
	return id, nil
}

// FindExperiment returns an experiment by database ID, or nil if absent.
func (r *RunRepo) FindExperiment(ctx context.Context, id string) (*model.Experiment, error) {
	var exp model.Experiment
	var rewards pq.Float64Array
	var labels pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT name, seed, trials, rewards, labels, turns, created_at
		 FROM experiments WHERE id = $1`, id,
	).Scan(&exp.ID, &exp.Seed, &exp.Trials, &rewards, &labels, &exp.Turns, &exp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find experiment: %w", err)
	}
	exp.Rewards = rewards
	exp.Labels = labels
	return &exp, nil
}

// SaveRun inserts a run, replacing any earlier run with the same trial and
// reward in the experiment.
func (r *RunRepo) SaveRun(ctx context.Context, experimentID string, run *model.Run) error {
	snaps, err := json.Marshal(run.Generations)
	if err != nil {
		return fmt.Errorf("marshal snapshots: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (experiment_id, trial, reward_index, reward, seed, winner, generations, snapshots)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (experiment_id, trial, reward_index) DO UPDATE
		 SET reward = EXCLUDED.reward, seed = EXCLUDED.seed, winner = EXCLUDED.winner,
		     generations = EXCLUDED.generations, snapshots = EXCLUDED.snapshots, saved_at = now()`,
		experimentID, run.Trial, run.RewardIndex, run.Reward, run.Seed, run.Winner, len(run.Generations), snaps,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// ListRuns returns an experiment's runs in plan order. Snapshots come back
// keyed by the experiment's sorted labels; JSONB does not keep the key order
// they were written in.
func (r *RunRepo) ListRuns(ctx context.Context, experimentID string) ([]model.Run, error) {
	var labels pq.StringArray
	err := r.db.QueryRowContext(ctx,
		`SELECT labels FROM experiments WHERE id = $1`, experimentID,
	).Scan(&labels)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT trial, reward_index, reward, seed, winner, snapshots
		 FROM runs WHERE experiment_id = $1
		 ORDER BY trial, reward_index`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var snaps []byte
		if err := rows.Scan(&run.Trial, &run.RewardIndex, &run.Reward, &run.Seed, &run.Winner, &snaps); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal(snaps, &run.Generations); err != nil {
			return nil, fmt.Errorf("decode snapshots (trial %d): %w", run.Trial, err)
		}
		for i, g := range run.Generations {
			run.Generations[i] = g.Align(labels)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunStore mirrors an experiment into Postgres. Begin creates the
// experiment row; Save upserts one run.
type RunStore struct {
	repo *RunRepo
	id   string
}

// NewRunStore creates a RunStore backed by repo.
func NewRunStore(repo *RunRepo) *RunStore {
	return &RunStore{repo: repo}
}

// ExperimentID returns the database ID assigned by Begin.
func (s *RunStore) ExperimentID() string {
	return s.id
}

// Begin creates the experiment row.
func (s *RunStore) Begin(ctx context.Context, exp *model.Experiment) error {
	id, err := s.repo.CreateExperiment(ctx, exp)
	if err != nil {
		return &model.PersistenceError{Op: "postgres begin", Err: err}
	}
	s.id = id
	return nil
}

// Save writes one run.
func (s *RunStore) Save(ctx context.Context, run *model.Run) error {
	if s.id == "" {
		return &model.PersistenceError{Op: "postgres save", Err: fmt.Errorf("experiment not started")}
	}
	if err := s.repo.SaveRun(ctx, s.id, run); err != nil {
		return &model.PersistenceError{Op: "postgres save", Err: err}
	}
	return nil
}
