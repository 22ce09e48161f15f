// Package results lays out an experiment on disk: one cumulative overview
// text file and one JSON artifact per Run.
//
//	{root}/overview.txt
//	{root}/trial-{t}/trial-{t}_reward-{r}.json
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/freeeve/reward-moran/internal/model"
)

// OverviewFile is the name of the cumulative text summary.
const OverviewFile = "overview.txt"

// Store writes results under a root directory.
type Store struct {
	root string
}

// NewStore returns a store rooted at root. Nothing is created until Begin.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the results directory.
func (s *Store) Root() string {
	return s.root
}

// OverviewPath returns the path of overview.txt.
func (s *Store) OverviewPath() string {
	return filepath.Join(s.root, OverviewFile)
}

// TrialDir returns the directory holding a trial's artifacts.
func (s *Store) TrialDir(trial int) string {
	return filepath.Join(s.root, fmt.Sprintf("trial-%d", trial))
}

// ArtifactPath returns the JSON artifact path of one Run.
func (s *Store) ArtifactPath(trial int, reward float64) string {
	return filepath.Join(s.TrialDir(trial), fmt.Sprintf("trial-%d_reward-%s.json", trial, model.FormatReward(reward)))
}

// Begin creates the root directory if needed and truncates the overview.
func (s *Store) Begin(_ context.Context, _ *model.Experiment) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return &model.PersistenceError{Op: "mkdir", Path: s.root, Err: err}
	}
	if err := os.WriteFile(s.OverviewPath(), nil, 0o644); err != nil {
		return &model.PersistenceError{Op: "truncate", Path: s.OverviewPath(), Err: err}
	}
	return nil
}

// Save writes the Run's artifact, replacing any previous one, then appends
// its overview block. The artifact is renamed into place so a failed write
// never leaves a partial file.
func (s *Store) Save(_ context.Context, run *model.Run) error {
	dir := s.TrialDir(run.Trial)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &model.PersistenceError{Op: "mkdir", Path: dir, Err: err}
	}

	path := s.ArtifactPath(run.Trial, run.Reward)
	data, err := json.MarshalIndent(run.Generations, "", "    ")
	if err != nil {
		return &model.PersistenceError{Op: "encode", Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &model.PersistenceError{Op: "write", Path: path, Err: err}
	}

	if err := s.appendOverview(OverviewBlock(run)); err != nil {
		return &model.PersistenceError{Op: "append", Path: s.OverviewPath(), Err: err}
	}
	return nil
}

// OverviewBlock renders one Run's overview entry.
func OverviewBlock(run *model.Run) string {
	return fmt.Sprintf("Trial %d, reward %s\nSeed: %d\nWinner: %s\n\n",
		run.Trial, model.FormatReward(run.Reward), run.Seed, run.Winner)
}

// appendOverview writes the whole block with a single write call.
func (s *Store) appendOverview(block string) error {
	f, err := os.OpenFile(s.OverviewPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(block)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
